// Package widget implements the chat widget core: an append-only chat log that
// renders untrusted text literally, and a client that sends one message at a time
// to the backend's /api/chat endpoint.
package widget

import "time"

// Role identifies who authored a message in the chat log.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is a single chat bubble. Messages are never mutated after they are appended.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
