package chat

// Request is the body of POST /api/chat.
type Request struct {
	Message string `json:"message"`
	// KB is optional free-form knowledge sent by the widget to ground the reply.
	KB string `json:"kb,omitempty"`
	// Lang forces the reply language: "en", "es" or "ja".
	Lang string `json:"lang,omitempty"`
}

// Reply is the success body of POST /api/chat. Failures use {"error": "..."}.
type Reply struct {
	Reply string `json:"reply"`
}
