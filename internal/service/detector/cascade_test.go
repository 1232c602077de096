package detector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCascadePrefersPrimary(t *testing.T) {
	primary := &fakeBackend{kind: Primary}
	secondary := &fakeBackend{kind: Secondary}

	cascade := NewCascade(discardLogger(), time.Second, NewAdapter(secondary, nil), NewAdapter(primary, nil))
	selection := cascade.Select(context.Background())

	if selection.Kind != Primary {
		t.Fatalf("expected primary, got %s", selection.Kind)
	}
	if secondary.inits.Load() != 0 {
		t.Fatalf("secondary should not be probed once primary succeeds")
	}
	if selection.Simulated {
		t.Fatalf("expected real backend")
	}
}

func TestCascadeFallsThroughToSecondary(t *testing.T) {
	primary := &fakeBackend{kind: Primary, initErr: ErrUnavailable}
	secondary := &fakeBackend{kind: Secondary}

	cascade := NewCascade(discardLogger(), time.Second, NewAdapter(primary, nil), NewAdapter(secondary, nil))
	selection := cascade.Select(context.Background())

	if selection.Kind != Secondary {
		t.Fatalf("expected secondary, got %s", selection.Kind)
	}
	if len(selection.Attempts) != 2 || selection.Attempts[0].OK || !selection.Attempts[1].OK {
		t.Fatalf("unexpected attempts: %+v", selection.Attempts)
	}
}

func TestCascadeAlwaysTerminatesInSimulation(t *testing.T) {
	primary := &fakeBackend{kind: Primary, initErr: errors.New("model fetch failed")}
	secondary := &fakeBackend{kind: Secondary, initErr: ErrUnavailable}

	cascade := NewCascade(discardLogger(), time.Second, NewAdapter(primary, nil), NewAdapter(secondary, nil))
	selection := cascade.Select(context.Background())

	if selection.Kind != Simulated || !selection.Simulated {
		t.Fatalf("expected simulated, got %+v", selection)
	}
	if selection.Notice == "" {
		t.Fatalf("expected a simulation notice")
	}
	if cascade.Active() == nil {
		t.Fatalf("expected an active backend")
	}
}

func TestCascadeIsOneShot(t *testing.T) {
	primary := &fakeBackend{kind: Primary, initErr: ErrUnavailable}
	cascade := NewCascade(discardLogger(), time.Second, NewAdapter(primary, nil))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cascade.Select(context.Background())
		}()
	}
	wg.Wait()

	// a later recovery of primary must not trigger a re-probe
	primary.initErr = nil
	selection := cascade.Select(context.Background())

	if primary.inits.Load() != 1 {
		t.Fatalf("expected exactly one probe, got %d", primary.inits.Load())
	}
	if selection.Kind != Simulated {
		t.Fatalf("expected selection to stay simulated, got %s", selection.Kind)
	}
}

func TestCascadeInitTimeout(t *testing.T) {
	hanging := &fakeBackend{kind: Primary, initHook: func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	}}
	secondary := &fakeBackend{kind: Secondary}

	cascade := NewCascade(discardLogger(), 20*time.Millisecond, NewAdapter(hanging, nil), NewAdapter(secondary, nil))
	selection := cascade.Select(context.Background())

	if selection.Kind != Secondary {
		t.Fatalf("expected secondary after primary timeout, got %s", selection.Kind)
	}
	if selection.Attempts[0].OK {
		t.Fatalf("expected timed out attempt to be recorded as failure")
	}
}

func TestCascadeRecoversInitializePanic(t *testing.T) {
	panicking := &fakeBackend{kind: Primary, initHook: func(context.Context) error {
		panic("wasm runtime exploded")
	}}

	cascade := NewCascade(discardLogger(), time.Second, NewAdapter(panicking, nil))
	selection := cascade.Select(context.Background())

	if selection.Kind != Simulated {
		t.Fatalf("expected simulated after panic, got %s", selection.Kind)
	}
}

func TestCascadeSelectionNilBeforeSelect(t *testing.T) {
	cascade := NewCascade(discardLogger(), time.Second)
	if cascade.Selection() != nil || cascade.Active() != nil {
		t.Fatalf("expected nil selection before Select")
	}
}

func TestCascadeUsesSuppliedSimulator(t *testing.T) {
	sim := NewSimulator(3, 10*time.Millisecond)
	cascade := NewCascade(discardLogger(), time.Second, NewAdapter(sim, nil))
	cascade.Select(context.Background())

	if got := cascade.Active().Interval(); got != 10*time.Millisecond {
		t.Fatalf("expected supplied simulator to be used, got interval %v", got)
	}
}
