package topology

import (
	"testing"

	"github.com/dpbroker/dpb/pkg/trunk"
)

func TestBuildSkipsUncommissionedTrunks(t *testing.T) {
	t1 := trunk.New("t1", "a", "b")
	t1.Commission()
	t2 := trunk.New("t2", "b", "c")
	// t2 left uncommissioned.

	g := Build([]*trunk.Trunk{t1, t2}, nil, nil)
	vertices := g.Vertices()
	for _, v := range vertices {
		if v == "c" {
			t.Errorf("uncommissioned trunk's terminal %q should not appear in topology", v)
		}
	}
	if len(g.Neighbors("b")) != 1 {
		t.Errorf("expected exactly one edge reachable from b, got %d", len(g.Neighbors("b")))
	}
}

func TestBuildAllowsDuplicateEdges(t *testing.T) {
	t1 := trunk.New("t1", "a", "b")
	t1.Commission()
	t2 := trunk.New("t2", "a", "b")
	t2.Commission()

	g := Build([]*trunk.Trunk{t1, t2}, nil, nil)
	if got := len(g.Neighbors("a")); got != 2 {
		t.Errorf("expected 2 parallel edges from a, got %d", got)
	}

	undirected := g.UndirectedEdges()
	if len(undirected) != 2 {
		t.Errorf("expected 2 undirected edges for 2 parallel trunks, got %d", len(undirected))
	}
}

func TestBuildBothDirectionsTraversable(t *testing.T) {
	tr := trunk.New("t1", "a", "b")
	tr.Commission()
	_ = tr.Provide(10, 4)

	g := Build([]*trunk.Trunk{tr}, nil, nil)

	fromA := g.Neighbors("a")
	if len(fromA) != 1 || fromA[0].To != "b" {
		t.Fatalf("expected edge a->b, got %+v", fromA)
	}
	if fromA[0].View.OutCapacity() != 10 {
		t.Errorf("forward edge OutCapacity = %v, want 10", fromA[0].View.OutCapacity())
	}

	fromB := g.Neighbors("b")
	if len(fromB) != 1 || fromB[0].To != "a" {
		t.Fatalf("expected edge b->a, got %+v", fromB)
	}
	if fromB[0].View.OutCapacity() != 4 {
		t.Errorf("reversed edge OutCapacity = %v, want 4", fromB[0].View.OutCapacity())
	}
}

func TestBuildIncludesSyntheticEdges(t *testing.T) {
	extra := []*Edge{{From: "x", To: "y", Cost: 3}}
	g := Build(nil, nil, extra)
	if len(g.Neighbors("x")) != 1 {
		t.Fatalf("expected synthetic edge from x")
	}
	if len(g.Neighbors("y")) != 1 {
		t.Fatalf("expected synthetic reverse edge from y")
	}
}

func TestDefaultCostUniform(t *testing.T) {
	t1 := trunk.New("t1", "a", "b")
	if DefaultCost(t1) != 1 {
		t.Error("DefaultCost should be 1 for any trunk")
	}
}
