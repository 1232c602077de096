package detector

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

const defaultInitTimeout = 10 * time.Second

// Attempt records the outcome of probing one backend.
type Attempt struct {
	Kind     Kind          `json:"kind"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Selection is the one-shot outcome of the cascade.
type Selection struct {
	Kind       Kind      `json:"kind"`
	Attempts   []Attempt `json:"attempts"`
	Simulated  bool      `json:"simulated"`
	Notice     string    `json:"notice,omitempty"`
	SelectedAt time.Time `json:"selectedAt"`

	active *Adapter
}

// Cascade commits, once per session, to the first backend that initializes.
type Cascade struct {
	candidates  []*Adapter
	initTimeout time.Duration
	logger      *slog.Logger

	once      sync.Once
	mu        sync.RWMutex
	selection *Selection
}

// NewCascade orders candidates primary → secondary → simulated. A simulator is appended
// when none is supplied so selection always terminates with an active backend.
func NewCascade(logger *slog.Logger, initTimeout time.Duration, candidates ...*Adapter) *Cascade {
	if initTimeout <= 0 {
		initTimeout = defaultInitTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	ordered := slices.Clone(candidates)
	slices.SortStableFunc(ordered, func(a, b *Adapter) int {
		return a.Kind().rank() - b.Kind().rank()
	})
	if !slices.ContainsFunc(ordered, func(a *Adapter) bool { return a.Kind() == Simulated }) {
		ordered = append(ordered, NewAdapter(NewSimulator(uint64(time.Now().UnixNano()), 0), nil))
	}

	return &Cascade{
		candidates:  ordered,
		initTimeout: initTimeout,
		logger:      logger,
	}
}

// Select probes the candidates the first time it is called and returns the committed
// selection on every call. Backends are never re-probed.
func (c *Cascade) Select(ctx context.Context) *Selection {
	c.once.Do(func() {
		selection := c.run(ctx)
		c.mu.Lock()
		c.selection = selection
		c.mu.Unlock()
	})
	return c.Selection()
}

// Selection returns the committed selection, or nil before Select has finished.
func (c *Cascade) Selection() *Selection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selection
}

// Active returns the committed backend, or nil before Select has finished.
func (c *Cascade) Active() *Adapter {
	selection := c.Selection()
	if selection == nil {
		return nil
	}
	return selection.active
}

func (c *Cascade) run(ctx context.Context) *Selection {
	selection := &Selection{}

	for _, candidate := range c.candidates {
		kind := candidate.Kind()
		start := time.Now()

		var err error
		if kind == Simulated {
			err = candidate.Initialize(context.WithoutCancel(ctx))
		} else {
			err = c.probe(ctx, candidate)
		}

		attempt := Attempt{Kind: kind, OK: err == nil, Duration: time.Since(start)}
		if err != nil {
			attempt.Error = err.Error()
		}
		selection.Attempts = append(selection.Attempts, attempt)

		if err != nil && kind != Simulated {
			c.logger.Warn("detector backend unavailable, trying next", "backend", kind, "error", err)
			continue
		}
		if err != nil {
			c.logger.Error("simulator failed to initialize, committing anyway", "error", err)
		}

		selection.Kind = kind
		selection.active = candidate
		break
	}

	selection.SelectedAt = time.Now().UTC()
	if selection.Kind == Simulated {
		selection.Simulated = true
		selection.Notice = "all real detector backends unavailable, running in simulation"
	}
	c.logger.Info("detector backend committed", "backend", selection.Kind, "attempts", len(selection.Attempts))
	return selection
}

// probe bounds Initialize by the init timeout. A backend that ignores its context is
// abandoned when the timeout fires.
func (c *Cascade) probe(ctx context.Context, candidate *Adapter) error {
	ctx, cancel := context.WithTimeout(ctx, c.initTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("initialize panicked: %v", r)
			}
		}()
		done <- candidate.Initialize(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
}
