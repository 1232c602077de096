package detector

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zhouzirui/moodflip/internal/model/emotion"
)

const defaultSampleTimeout = 2 * time.Second

// FrameSource hands out the camera stream for one sampling lifetime.
type FrameSource interface {
	Open(ctx context.Context) (FrameStream, error)
}

// FrameStream exposes the most recent frame. Close releases the underlying capture.
type FrameStream interface {
	Latest() (emotion.Frame, bool)
	Close() error
}

// Publisher receives every successful sample.
type Publisher interface {
	Publish(sample emotion.Sample)
}

// Sampler polls the committed backend and publishes normalized samples.
type Sampler struct {
	cascade       *Cascade
	publisher     Publisher
	sampleTimeout time.Duration
	logger        *slog.Logger
	running       atomic.Bool
}

// NewSampler builds a sampler over the backend committed by cascade.
func NewSampler(cascade *Cascade, publisher Publisher, sampleTimeout time.Duration, logger *slog.Logger) *Sampler {
	if sampleTimeout <= 0 {
		sampleTimeout = defaultSampleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{
		cascade:       cascade,
		publisher:     publisher,
		sampleTimeout: sampleTimeout,
		logger:        logger,
	}
}

// Running reports whether a sampling loop currently owns the camera.
func (s *Sampler) Running() bool {
	return s.running.Load()
}

// Run owns the frame stream and the polling ticker until ctx is done. Both are released on
// every exit path.
func (s *Sampler) Run(ctx context.Context, source FrameSource) error {
	backend := s.cascade.Active()
	if backend == nil {
		return ErrNotSelected
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrSamplerBusy
	}
	defer s.running.Store(false)

	stream, err := source.Open(ctx)
	if err != nil {
		return fmt.Errorf("open frame source: %w", err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			s.logger.Warn("failed to release frame stream", "error", err)
		}
	}()

	ticker := time.NewTicker(backend.Interval())
	defer ticker.Stop()

	s.logger.Info("sampling started", "backend", backend.Kind(), "interval", backend.Interval())
	defer s.logger.Info("sampling stopped", "backend", backend.Kind())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx, backend, stream)
		}
	}
}

func (s *Sampler) tick(ctx context.Context, backend *Adapter, stream FrameStream) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sample panicked", "backend", backend.Kind(), "panic", r)
		}
	}()

	frame, _ := stream.Latest()

	sampleCtx, cancel := context.WithTimeout(ctx, s.sampleTimeout)
	defer cancel()

	sample, err := backend.Sample(sampleCtx, frame)
	if err != nil {
		s.logger.Debug("sample skipped", "backend", backend.Kind(), "error", err)
		return
	}

	// torn down while the call was in flight
	if ctx.Err() != nil {
		return
	}
	s.publisher.Publish(sample)
}
