package service

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeInferior is an InferiorClient whose per-segment behavior is
// configurable per test: some segments respond immediately, others never
// respond (to exercise grace-period and await-timeout behavior).
type fakeInferior struct {
	mu       sync.Mutex
	blocked  map[string]bool
	released map[string]bool
}

func newFakeInferior() *fakeInferior {
	return &fakeInferior{blocked: make(map[string]bool), released: make(map[string]bool)}
}

func (f *fakeInferior) Define(ctx context.Context, seg Segment) error { return nil }

func (f *fakeInferior) Activate(ctx context.Context, seg Segment) error {
	f.mu.Lock()
	blocked := f.blocked[seg.ID]
	f.mu.Unlock()
	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeInferior) Deactivate(ctx context.Context, seg Segment) error { return nil }

func (f *fakeInferior) Release(ctx context.Context, seg Segment) error {
	f.mu.Lock()
	blocked := f.blocked[seg.ID]
	f.mu.Unlock()
	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	f.released[seg.ID] = true
	f.mu.Unlock()
	return nil
}

func (f *fakeInferior) Status(ctx context.Context, seg Segment) (State, error) {
	return Active, nil
}

func (f *fakeInferior) Watch(ctx context.Context, seg Segment) (<-chan StatusEvent, error) {
	ch := make(chan StatusEvent)
	return ch, nil
}

func TestDefineTransitionsToInactive(t *testing.T) {
	inf := newFakeInferior()
	svc := New(1, inf)
	if err := svc.Define(context.Background(), []Segment{{ID: "s1"}}); err != nil {
		t.Fatalf("Define: %v", err)
	}
	if svc.State() != Inactive {
		t.Errorf("State() = %v, want Inactive", svc.State())
	}
}

func TestDefineTwiceFails(t *testing.T) {
	inf := newFakeInferior()
	svc := New(1, inf)
	_ = svc.Define(context.Background(), nil)
	if err := svc.Define(context.Background(), nil); err == nil {
		t.Error("expected error redefining an already-defined service")
	}
}

func TestActivateDeactivateLifecycle(t *testing.T) {
	inf := newFakeInferior()
	svc := New(1, inf)
	_ = svc.Define(context.Background(), []Segment{{ID: "s1"}})

	if err := svc.Activate(context.Background()); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if svc.State() != Active {
		t.Fatalf("State() = %v, want Active", svc.State())
	}

	// Idempotent.
	if err := svc.Activate(context.Background()); err != nil {
		t.Errorf("second Activate should be a no-op: %v", err)
	}

	if err := svc.Deactivate(context.Background()); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	got := svc.AwaitStatus([]State{Inactive}, 100*time.Millisecond)
	if got != Inactive {
		t.Errorf("AwaitStatus = %v, want Inactive", got)
	}
}

func TestAwaitStatusTimesOutWithoutError(t *testing.T) {
	inf := newFakeInferior()
	inf.blocked["s1"] = true
	svc := New(1, inf)
	_ = svc.Define(context.Background(), []Segment{{ID: "s1"}})

	go svc.Activate(context.Background())

	got := svc.AwaitStatus([]State{Active}, 30*time.Millisecond)
	if got != Activating {
		t.Errorf("AwaitStatus after timeout = %v, want Activating (never-reporting child)", got)
	}
}

// TestAwaitStatusReturnsImmediatelyOnReleased checks that awaiting a state
// other than Released returns right away once the service has reached
// Released, instead of blocking for the full timeout: Released is
// terminal, so the awaited state change can never happen.
func TestAwaitStatusReturnsImmediatelyOnReleased(t *testing.T) {
	inf := newFakeInferior()
	svc := New(1, inf)
	_ = svc.Define(context.Background(), nil)
	if err := svc.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}

	start := time.Now()
	got := svc.AwaitStatus([]State{Active}, time.Second)
	elapsed := time.Since(start)

	if got != Released {
		t.Errorf("AwaitStatus = %v, want Released", got)
	}
	if elapsed > 100*time.Millisecond {
		t.Errorf("AwaitStatus blocked for %v awaiting Active on an already-Released service", elapsed)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	inf := newFakeInferior()
	svc := New(1, inf)
	_ = svc.Define(context.Background(), nil)
	if err := svc.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := svc.Release(context.Background()); err != nil {
		t.Errorf("second Release should be a no-op: %v", err)
	}
	if svc.State() != Released {
		t.Errorf("State() = %v, want Released", svc.State())
	}
}

func TestReleaseProceedsDespiteLostChild(t *testing.T) {
	inf := newFakeInferior()
	inf.blocked["lost"] = true

	parent := New(1, inf, WithGraceTimeout(20*time.Millisecond))
	child := New(2, inf)
	_ = parent.AddChild(child)
	_ = parent.Define(context.Background(), nil)
	_ = child.Define(context.Background(), []Segment{{ID: "lost"}})

	start := time.Now()
	if err := parent.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed > time.Second {
		t.Errorf("Release took too long waiting on a lost child: %v", elapsed)
	}
	if parent.State() != Released {
		t.Errorf("parent State() = %v, want Released despite lost child", parent.State())
	}
}

func TestActivateFailsOnInferiorError(t *testing.T) {
	inf := &failingInferior{}
	svc := New(1, inf)
	_ = svc.Define(context.Background(), []Segment{{ID: "s1"}})
	if err := svc.Activate(context.Background()); err == nil {
		t.Error("expected Activate to fail when inferior.Activate errors")
	}
	if svc.State() != Failed {
		t.Errorf("State() = %v, want Failed", svc.State())
	}
}

type failingInferior struct{}

func (failingInferior) Define(ctx context.Context, seg Segment) error     { return nil }
func (failingInferior) Activate(ctx context.Context, seg Segment) error   { return context.Canceled }
func (failingInferior) Deactivate(ctx context.Context, seg Segment) error { return nil }
func (failingInferior) Release(ctx context.Context, seg Segment) error    { return nil }
func (failingInferior) Status(ctx context.Context, seg Segment) (State, error) {
	return Failed, nil
}
func (failingInferior) Watch(ctx context.Context, seg Segment) (<-chan StatusEvent, error) {
	return make(chan StatusEvent), nil
}
