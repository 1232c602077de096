package detector

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zhouzirui/moodflip/internal/model/emotion"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeBackend struct {
	kind     Kind
	initErr  error
	initHook func(ctx context.Context) error
	raw      emotion.RawClassification
	err      error
	interval time.Duration
	inits    atomic.Int32
	samples  atomic.Int32
	panicOn  bool
}

func (f *fakeBackend) Kind() Kind { return f.kind }

func (f *fakeBackend) Interval() time.Duration {
	if f.interval == 0 {
		return 5 * time.Millisecond
	}
	return f.interval
}

func (f *fakeBackend) Initialize(ctx context.Context) error {
	f.inits.Add(1)
	if f.initHook != nil {
		return f.initHook(ctx)
	}
	return f.initErr
}

func (f *fakeBackend) Sample(context.Context, emotion.Frame) (emotion.RawClassification, error) {
	f.samples.Add(1)
	if f.panicOn {
		panic("boom")
	}
	return f.raw, f.err
}
