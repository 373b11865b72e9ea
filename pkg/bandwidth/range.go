// Package bandwidth implements the BandwidthFunction algebra: bandwidth
// ranges and pairs, and the Flat/Pair/Matrix/Reduced/Tabulated/Scripted
// function family used to describe the capacity a planned tree must carry
// across each non-trivial partition of its endpoints.
package bandwidth

import (
	"fmt"
	"math"

	"github.com/dpbroker/dpb/pkg/util"
)

// Range is a closed bandwidth interval [Min, Max]. Max may be
// +Inf to mean unbounded.
type Range struct {
	Min float64
	Max float64
}

// Unbounded returns a Range with the given minimum and no maximum.
func Unbounded(min float64) Range {
	return Range{Min: min, Max: math.Inf(1)}
}

// Exact returns a Range whose minimum and maximum are both v.
func Exact(v float64) Range {
	return Range{Min: v, Max: v}
}

// Validate reports whether the range is well formed (Min >= 0, Min <= Max).
func (r Range) Validate() error {
	if r.Min < 0 {
		return util.NewValidationError("bandwidth range minimum must be non-negative")
	}
	if r.Max < r.Min {
		return util.NewValidationError("bandwidth range maximum must be >= minimum")
	}
	return nil
}

// Add returns the saturating sum of two ranges: mins add, maxes add, and
// +Inf absorbs any finite value.
func (r Range) Add(other Range) Range {
	return Range{Min: r.Min + other.Min, Max: saturatingAdd(r.Max, other.Max)}
}

func saturatingAdd(a, b float64) float64 {
	if math.IsInf(a, 1) || math.IsInf(b, 1) {
		return math.Inf(1)
	}
	return a + b
}

// Min returns the elementwise minimum of two ranges.
func Min(a, b Range) Range {
	return Range{Min: math.Min(a.Min, b.Min), Max: math.Min(a.Max, b.Max)}
}

// String renders the range as "[min,max]" or "[min,+Inf)" when unbounded.
func (r Range) String() string {
	if math.IsInf(r.Max, 1) {
		return fmt.Sprintf("[%g,+Inf)", r.Min)
	}
	return fmt.Sprintf("[%g,%g]", r.Min, r.Max)
}

// Equal reports whether two ranges have the same bounds.
func (r Range) Equal(other Range) bool {
	return r.Min == other.Min && r.Max == other.Max
}

// Pair holds the ingress (traffic arriving at the partition) and egress
// (traffic leaving it) bandwidth ranges for one side of a goal-set split.
type Pair struct {
	Ingress Range
	Egress  Range
}

// Add returns the elementwise (ingress, egress) sum of two pairs.
func (p Pair) Add(other Pair) Pair {
	return Pair{Ingress: p.Ingress.Add(other.Ingress), Egress: p.Egress.Add(other.Egress)}
}

// Flatten collapses a Pair to a single Range by taking the elementwise
// minimum of ingress and egress, the conservative bound a single trunk must
// carry in either direction.
func (p Pair) Flatten() Range {
	return Min(p.Ingress, p.Egress)
}
