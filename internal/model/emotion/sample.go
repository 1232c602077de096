package emotion

import (
	"time"

	analysis "github.com/zhouzirui/moodflip/internal/analysis/emotion"
)

// Frame is a single captured camera image.
type Frame struct {
	Data       []byte    `json:"-"`
	MIMEType   string    `json:"mimeType"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Empty reports whether the frame carries no image data.
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}

// RawClassification maps a backend-specific label set to confidences.
type RawClassification map[string]float64

// Sample is the normalized result of one successful sampling call. It is never mutated;
// the next sample supersedes it.
type Sample struct {
	Label      analysis.Label `json:"label"`
	Canonical  bool           `json:"canonical"`
	Confidence float64        `json:"confidence"`
	Backend    string         `json:"backend"`
	Timestamp  time.Time      `json:"timestamp"`
}

// PromptLabel is the label as seen by enumeration-constrained consumers.
func (s Sample) PromptLabel() analysis.Label {
	if !s.Canonical {
		return analysis.Unknown
	}
	return s.Label
}
