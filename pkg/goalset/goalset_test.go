package goalset

import (
	"math/big"
	"testing"
)

func TestBigIntRoundTrip(t *testing.T) {
	degree := 128
	s, err := FromBits(degree, 63, 64, 65)
	if err != nil {
		t.Fatalf("FromBits: %v", err)
	}

	want, _ := new(big.Int).SetString("38000000000000000", 16)
	got := s.ToBigInt()
	if got.Cmp(want) != 0 {
		t.Errorf("ToBigInt() = %x, want %x", got, want)
	}

	roundTripped, err := FromBigInt(degree, got)
	if err != nil {
		t.Fatalf("FromBigInt: %v", err)
	}
	if !roundTripped.Equal(s) {
		t.Errorf("round trip mismatch: got %v, want %v", roundTripped, s)
	}
}

func TestString(t *testing.T) {
	s, err := FromBits(128, 63, 64, 65)
	if err != nil {
		t.Fatalf("FromBits: %v", err)
	}
	if got := s.String(); got != "{63-65}" {
		t.Errorf("String() = %q, want %q", got, "{63-65}")
	}
}

func TestComplementInvolution(t *testing.T) {
	s, err := FromBits(10, 1, 3, 4, 7)
	if err != nil {
		t.Fatalf("FromBits: %v", err)
	}
	if got := s.Complement().Complement(); !got.Equal(s) {
		t.Errorf("complement(complement(s)) = %v, want %v", got, s)
	}
}

func TestUnionIntersectWithComplement(t *testing.T) {
	degree := 10
	s, err := FromBits(degree, 1, 3, 4, 7)
	if err != nil {
		t.Fatalf("FromBits: %v", err)
	}
	comp := s.Complement()

	universe, _ := FromBits(degree)
	m := universe.Mutate()
	if err := m.SetRange(0, degree-1); err != nil {
		t.Fatalf("SetRange: %v", err)
	}
	universe = m.Freeze()

	union, err := s.Union(comp)
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	if !union.Equal(universe) {
		t.Errorf("s ∪ ¬s = %v, want universe %v", union, universe)
	}

	empty := New(degree)
	intersect, err := s.Intersect(comp)
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	if !intersect.Equal(empty) {
		t.Errorf("s ∩ ¬s = %v, want empty %v", intersect, empty)
	}
}

func TestDegreeMismatchErrors(t *testing.T) {
	a := New(4)
	b := New(5)
	if _, err := a.Union(b); err == nil {
		t.Error("Union across degrees should error")
	}
	if _, err := a.Intersect(b); err == nil {
		t.Error("Intersect across degrees should error")
	}
	if _, err := a.Difference(b); err == nil {
		t.Error("Difference across degrees should error")
	}
}

func TestAllValidSetsCountAndDistinctness(t *testing.T) {
	for _, degree := range []int{2, 3, 4, 6} {
		sets := AllValidSets(degree)
		want := (1 << uint(degree)) - 2
		if len(sets) != want {
			t.Fatalf("degree %d: got %d sets, want %d", degree, len(sets), want)
		}

		seen := make(map[string]bool, len(sets))
		for _, s := range sets {
			if s.IsEmpty() || s.IsUniverse() {
				t.Errorf("degree %d: AllValidSets yielded trivial set %v", degree, s)
			}
			key := s.ToBigInt().String()
			if seen[key] {
				t.Errorf("degree %d: duplicate set %v", degree, s)
			}
			seen[key] = true
		}
	}
}

func TestAllValidSetsIndependentSnapshots(t *testing.T) {
	sets := AllValidSets(4)
	if len(sets) < 2 {
		t.Fatal("expected at least two sets")
	}
	first := sets[0].ToBigInt()
	m := sets[1].Mutate()
	_ = m.SetBit(0)
	if sets[0].ToBigInt().Cmp(first) != 0 {
		t.Error("mutating one snapshot's mutable copy affected another snapshot")
	}
}

func TestAllValidSetsFuncEarlyStop(t *testing.T) {
	count := 0
	AllValidSetsFunc(5, func(s *Set) bool {
		count++
		return count < 3
	})
	if count != 3 {
		t.Errorf("expected early stop after 3 visits, got %d", count)
	}
}

func TestCompareOrdering(t *testing.T) {
	a, _ := FromBits(8, 1)
	b, _ := FromBits(8, 2)
	if Compare(a, b) >= 0 {
		t.Errorf("Compare(%v,%v) should be negative", a, b)
	}
	if Compare(a, a) != 0 {
		t.Errorf("Compare(a,a) should be zero")
	}
	if Compare(b, a) <= 0 {
		t.Errorf("Compare(%v,%v) should be positive", b, a)
	}
}

func TestCompareByDegree(t *testing.T) {
	a := New(4)
	b := New(8)
	if Compare(a, b) >= 0 {
		t.Error("lower degree should compare less")
	}
}

func TestMutateFreezeNoAliasing(t *testing.T) {
	s, _ := FromBits(8, 1, 2)
	m := s.Mutate()
	_ = m.SetBit(3)
	if s.Contains(3) {
		t.Error("mutating a Mutate() copy affected the original Set")
	}

	frozen := m.Freeze()
	_ = m.ClearBit(3)
	if !frozen.Contains(3) {
		t.Error("further mutation after Freeze affected the frozen snapshot")
	}
}

func TestFromBitsRejectsOutOfRange(t *testing.T) {
	if _, err := FromBits(4, 10); err == nil {
		t.Error("expected error for out-of-range member")
	}
}

func TestMembersAscending(t *testing.T) {
	s, _ := FromBits(20, 17, 3, 9, 0)
	got := s.Members()
	want := []int{0, 3, 9, 17}
	if len(got) != len(want) {
		t.Fatalf("Members() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Members()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
