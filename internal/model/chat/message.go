package chat

import (
	"time"

	"github.com/zhouzirui/moodflip/internal/analysis/emotion"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one turn of the transcript. Emotion is only set on bot turns and records the
// emotion the reply was composed against.
type Message struct {
	ID        string        `json:"id"`
	SessionID string        `json:"sessionId"`
	Role      Role          `json:"role"`
	Text      string        `json:"text"`
	Emotion   emotion.Label `json:"emotion,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}
