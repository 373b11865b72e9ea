package bandwidth

import (
	"math"
	"testing"
)

func TestRangeAddAssociativeCommutative(t *testing.T) {
	a := Range{Min: 1, Max: 5}
	b := Range{Min: 2, Max: 3}
	c := Range{Min: 4, Max: 6}

	if !a.Add(b).Equal(b.Add(a)) {
		t.Error("Add should be commutative")
	}
	left := a.Add(b).Add(c)
	right := a.Add(b.Add(c))
	if !left.Equal(right) {
		t.Errorf("Add should be associative: %v != %v", left, right)
	}
}

func TestRangeAddIdentity(t *testing.T) {
	zero := Range{Min: 0, Max: 0}
	a := Range{Min: 3, Max: 7}
	if !a.Add(zero).Equal(a) {
		t.Error("adding the zero range should be identity")
	}
}

func TestRangeAddUnboundedAbsorbs(t *testing.T) {
	u := Unbounded(1)
	a := Range{Min: 1, Max: 5}
	sum := a.Add(u)
	if !math.IsInf(sum.Max, 1) {
		t.Errorf("Add with unbounded range should stay unbounded, got %v", sum)
	}
	if sum.Min != 2 {
		t.Errorf("Min should still add: got %v", sum.Min)
	}
}

func TestRangeMinIdempotent(t *testing.T) {
	a := Range{Min: 3, Max: 8}
	if got := Min(a, a); !got.Equal(a) {
		t.Errorf("Min(a,a) = %v, want %v", got, a)
	}
}

func TestRangeMinCommutative(t *testing.T) {
	a := Range{Min: 1, Max: 9}
	b := Range{Min: 4, Max: 2}
	if !Min(a, b).Equal(Min(b, a)) {
		t.Error("Min should be commutative")
	}
}

func TestRangeValidate(t *testing.T) {
	if err := (Range{Min: -1, Max: 0}).Validate(); err == nil {
		t.Error("negative minimum should fail validation")
	}
	if err := (Range{Min: 5, Max: 2}).Validate(); err == nil {
		t.Error("max below min should fail validation")
	}
	if err := (Range{Min: 1, Max: 5}).Validate(); err != nil {
		t.Errorf("valid range should pass: %v", err)
	}
}

func TestPairFlatten(t *testing.T) {
	p := Pair{Ingress: Range{Min: 2, Max: 2}, Egress: Range{Min: 5, Max: 5}}
	flat := p.Flatten()
	if flat.Min != 2 || flat.Max != 2 {
		t.Errorf("Flatten() = %v, want min of ingress/egress", flat)
	}
}

func TestPairAdd(t *testing.T) {
	p1 := Pair{Ingress: Range{Min: 1}, Egress: Range{Min: 2}}
	p2 := Pair{Ingress: Range{Min: 3}, Egress: Range{Min: 4}}
	sum := p1.Add(p2)
	if sum.Ingress.Min != 4 || sum.Egress.Min != 6 {
		t.Errorf("Add() = %v, want ingress 4 egress 6", sum)
	}
}

func TestRangeString(t *testing.T) {
	if got := (Range{Min: 1, Max: 5}).String(); got != "[1,5]" {
		t.Errorf("String() = %q, want [1,5]", got)
	}
	if got := Unbounded(2).String(); got != "[2,+Inf)" {
		t.Errorf("String() = %q, want [2,+Inf)", got)
	}
}
