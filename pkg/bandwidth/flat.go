package bandwidth

import (
	"fmt"

	"github.com/dpbroker/dpb/pkg/goalset"
)

// FlatFunction returns the same bandwidth pair for every non-trivial goal
// set, regardless of which endpoints are on which side of the partition.
type FlatFunction struct {
	degree int
	value  Pair
}

// NewFlatFunction builds a FlatFunction of the given degree, carrying value
// across every partition.
func NewFlatFunction(degree int, value Pair) *FlatFunction {
	return &FlatFunction{degree: degree, value: value}
}

// NewFlatRangeFunction builds a FlatFunction whose ingress and egress are
// both r.
func NewFlatRangeFunction(degree int, r Range) *FlatFunction {
	return NewFlatFunction(degree, Pair{Ingress: r, Egress: r})
}

func (f *FlatFunction) Degree() int { return f.degree }

func (f *FlatFunction) Get(s *goalset.Set) (Range, error) {
	p, err := f.GetPair(s)
	if err != nil {
		return Range{}, err
	}
	return p.Flatten(), nil
}

func (f *FlatFunction) GetPair(s *goalset.Set) (Pair, error) {
	if s.Degree() != f.degree {
		return Pair{}, errDegreeMismatch(f.degree, s.Degree())
	}
	return f.value, nil
}

// AsScript emits the function's fixed degree and value as literals; every
// partition gets the same answer regardless of members.
func (f *FlatFunction) AsScript() string {
	return fmt.Sprintf(`if .op == "degree" then %d
elif .op == "get" then %s
else null end`, f.degree, pairJSON(f.value))
}
