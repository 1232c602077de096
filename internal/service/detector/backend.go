package detector

import (
	"context"
	"errors"
	"time"

	"github.com/zhouzirui/moodflip/internal/model/emotion"
)

// Kind names a backend slot. Slots are ordered by preference.
type Kind string

const (
	Primary   Kind = "primary"
	Secondary Kind = "secondary"
	Simulated Kind = "simulated"
)

var (
	ErrUnavailable = errors.New("detector backend unavailable")
	ErrNotReady    = errors.New("detector backend not initialized")
	ErrNoFrame     = errors.New("no camera frame available")
	ErrNoFace      = errors.New("no face detected")
	ErrNotSelected = errors.New("no detector backend committed")
	ErrSamplerBusy = errors.New("sampling loop already running")
)

// Backend is one interchangeable emotion-sensing strategy.
type Backend interface {
	Kind() Kind
	// Initialize provisions the backend. It is idempotent and may block on network fetches.
	Initialize(ctx context.Context) error
	// Sample classifies a frame into the backend's own label vocabulary.
	Sample(ctx context.Context, frame emotion.Frame) (emotion.RawClassification, error)
	// Interval is the polling cadence the sampling loop uses for this backend.
	Interval() time.Duration
}

func (k Kind) rank() int {
	switch k {
	case Primary:
		return 0
	case Secondary:
		return 1
	case Simulated:
		return 2
	default:
		return 3
	}
}
