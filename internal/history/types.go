package history

import (
	"time"

	"chat-widget/internal/chatapi"
)

// History represents all conversation sessions
type History struct {
	Sessions []Session `json:"sessions"`
}

// Session is the server side record of one widget session
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Message represents a single message in a conversation
type Message struct {
	Role       string              `json:"role"` // "user" or "assistant"
	Content    string              `json:"content"`
	Timestamp  time.Time           `json:"timestamp"`
	References []chatapi.Reference `json:"references,omitempty"`
}
