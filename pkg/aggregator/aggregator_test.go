package aggregator

import (
	"context"
	"testing"

	"github.com/dpbroker/dpb/pkg/service"
	"github.com/dpbroker/dpb/pkg/trunk"
)

type nopInferior struct{}

func (nopInferior) Define(ctx context.Context, seg service.Segment) error     { return nil }
func (nopInferior) Activate(ctx context.Context, seg service.Segment) error   { return nil }
func (nopInferior) Deactivate(ctx context.Context, seg service.Segment) error { return nil }
func (nopInferior) Release(ctx context.Context, seg service.Segment) error    { return nil }
func (nopInferior) Status(ctx context.Context, seg service.Segment) (service.State, error) {
	return service.Active, nil
}
func (nopInferior) Watch(ctx context.Context, seg service.Segment) (<-chan service.StatusEvent, error) {
	return make(chan service.StatusEvent), nil
}

func TestAddRemoveTerminal(t *testing.T) {
	agg := New("core")
	if err := agg.AddTerminal("n1", "inferiorA"); err != nil {
		t.Fatalf("AddTerminal: %v", err)
	}
	if err := agg.AddTerminal("n1", "inferiorA"); err == nil {
		t.Error("expected conflict adding a duplicate terminal")
	}
	if err := agg.RemoveTerminal("n1"); err != nil {
		t.Fatalf("RemoveTerminal: %v", err)
	}
	if _, err := agg.GetTerminal("n1"); err == nil {
		t.Error("expected not-found after removal")
	}
}

func TestAddTrunkRequiresKnownTerminals(t *testing.T) {
	agg := New("core")
	tr := trunk.New("t1", "n1", "n2")
	if err := agg.AddTrunk(tr); err == nil {
		t.Error("expected error adding a trunk with unregistered terminals")
	}

	_ = agg.AddTerminal("n1", "inferiorA")
	_ = agg.AddTerminal("n2", "inferiorB")
	if err := agg.AddTrunk(tr); err != nil {
		t.Fatalf("AddTrunk: %v", err)
	}

	found, err := agg.FindTrunk("t1")
	if err != nil || found != tr {
		t.Fatalf("FindTrunk: got %v, %v", found, err)
	}
}

func TestRemoveTerminalBlockedByTrunk(t *testing.T) {
	agg := New("core")
	_ = agg.AddTerminal("n1", "inferiorA")
	_ = agg.AddTerminal("n2", "inferiorB")
	_ = agg.AddTrunk(trunk.New("t1", "n1", "n2"))

	if err := agg.RemoveTerminal("n1"); err == nil {
		t.Error("expected error removing a terminal bound by a trunk")
	}
}

func TestNewServiceAssignsIncreasingIDs(t *testing.T) {
	agg := New("core")
	s1 := agg.NewService(nopInferior{})
	s2 := agg.NewService(nopInferior{})
	if s1.ID() == s2.ID() {
		t.Fatal("expected distinct service ids")
	}
	if _, err := agg.GetService(s1.ID()); err != nil {
		t.Errorf("GetService(%d): %v", s1.ID(), err)
	}
	ids := agg.GetServiceIDs()
	if len(ids) != 2 {
		t.Errorf("GetServiceIDs() = %v, want 2 entries", ids)
	}
}

func TestRemoveServiceRequiresReleased(t *testing.T) {
	agg := New("core")
	svc := agg.NewService(nopInferior{})
	if err := agg.RemoveService(svc.ID()); err == nil {
		t.Error("expected error removing a non-released service")
	}
	_ = svc.Define(context.Background(), nil)
	_ = svc.Release(context.Background())
	if err := agg.RemoveService(svc.ID()); err != nil {
		t.Errorf("RemoveService after release: %v", err)
	}
}
