package widget

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// View receives messages produced by the Client.
type View interface {
	Append(role Role, text string)
}

// Log is the default View: an ordered, append-only list of messages that notifies a
// scroll hook after every append. It is safe for concurrent use.
type Log struct {
	mu       sync.RWMutex
	messages []Message
	onAppend func(Message)
}

// NewLog creates an empty chat log. onAppend may be nil.
func NewLog(onAppend func(Message)) *Log {
	return &Log{
		messages: make([]Message, 0, 32),
		onAppend: onAppend,
	}
}

// SetOnAppend replaces the hook invoked after each append, typically the front-end's
// "scroll to newest" action.
func (l *Log) SetOnAppend(fn func(Message)) {
	l.mu.Lock()
	l.onAppend = fn
	l.mu.Unlock()
}

// Append inserts a message at the end of the log and then runs the scroll hook.
func (l *Log) Append(role Role, text string) {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	l.mu.Lock()
	l.messages = append(l.messages, msg)
	hook := l.onAppend
	l.mu.Unlock()

	// The hook runs outside the lock so it may read the log back.
	if hook != nil {
		hook(msg)
	}
}

// Messages returns a copy of the log in display order.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	copied := make([]Message, len(l.messages))
	copy(copied, l.messages)
	return copied
}

// Last returns the newest message, if any.
func (l *Log) Last() (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.messages) == 0 {
		return Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// Len reports how many messages have been appended.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
