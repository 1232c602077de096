package chat

import "time"

// Session captures a transient anonymous conversation.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot is a consistent view of a conversation at one instant.
type Snapshot struct {
	Session   Session   `json:"session"`
	Messages  []Message `json:"messages"`
	Composing bool      `json:"composing"`
}
