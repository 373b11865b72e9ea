package bandwidth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dpbroker/dpb/pkg/goalset"
	"github.com/dpbroker/dpb/pkg/util"
)

// ReducedFunction exposes a coarser, smaller-degree view of a base
// Function: each of its own endpoints stands for one group of the base's
// endpoints. Querying group index g expands it back to the base's full
// degree — the union of every base endpoint the indicated groups stand
// for — before delegating to base. Groups must be pairwise disjoint; if
// they don't cover every base endpoint, the uncovered ones are collected
// into an automatically appended complement group.
type ReducedFunction struct {
	groups []*goalset.Set // bitmasks over base.Degree()
	base   Function
}

// NewReducedFunction builds a ReducedFunction of degree len(groups) (plus
// one if an automatic complement group is appended). groups must be
// pairwise disjoint bitmasks of base's degree.
func NewReducedFunction(base Function, groups []*goalset.Set) (*ReducedFunction, error) {
	if len(groups) == 0 {
		return nil, util.NewValidationError("reduced function requires at least one group")
	}
	fullDegree := base.Degree()

	covered := goalset.New(fullDegree)
	for i, g := range groups {
		if g.Degree() != fullDegree {
			return nil, errDegreeMismatch(fullDegree, g.Degree())
		}
		overlap, err := covered.Intersect(g)
		if err != nil {
			return nil, err
		}
		if !overlap.IsEmpty() {
			return nil, errGroupOverlap(i)
		}
		covered, err = covered.Union(g)
		if err != nil {
			return nil, err
		}
	}

	finalGroups := make([]*goalset.Set, len(groups))
	copy(finalGroups, groups)
	if !covered.IsUniverse() {
		finalGroups = append(finalGroups, covered.Complement())
	}

	return &ReducedFunction{groups: finalGroups, base: base}, nil
}

func (f *ReducedFunction) Degree() int { return len(f.groups) }

// expand unions together every group s selects, producing a set over
// base's full degree.
func (f *ReducedFunction) expand(s *goalset.Set) (*goalset.Set, error) {
	full := goalset.New(f.base.Degree())
	for gi, g := range f.groups {
		if !s.Contains(gi) {
			continue
		}
		var err error
		full, err = full.Union(g)
		if err != nil {
			return nil, err
		}
	}
	return full, nil
}

func (f *ReducedFunction) Get(s *goalset.Set) (Range, error) {
	if s.Degree() != f.Degree() {
		return Range{}, errDegreeMismatch(f.Degree(), s.Degree())
	}
	expanded, err := f.expand(s)
	if err != nil {
		return Range{}, err
	}
	return f.base.Get(expanded)
}

func (f *ReducedFunction) GetPair(s *goalset.Set) (Pair, error) {
	if s.Degree() != f.Degree() {
		return Pair{}, errDegreeMismatch(f.Degree(), s.Degree())
	}
	expanded, err := f.expand(s)
	if err != nil {
		return Pair{}, err
	}
	return f.base.GetPair(expanded)
}

// AsScript composes a script for the reduced view by embedding the base's
// own script: it expands the queried group indices into a base-degree
// member list in jq, then pipes a constructed {"op":"get","members":...}
// request directly into the base's compiled text, which is valid jq since
// any filter expression may follow a pipe.
func (f *ReducedFunction) AsScript() string {
	groupLits := make([]string, len(f.groups))
	for i, g := range f.groups {
		b, _ := json.Marshal(g.Members())
		groupLits[i] = string(b)
	}
	return fmt.Sprintf(`if .op == "degree" then %d
elif .op == "get" then
  (.members) as $s
  | [%s] as $groups
  | (reduce range(0; %d) as $gi ([]; if ($s | index($gi)) then . + $groups[$gi] else . end)) as $expanded
  | ({"op":"get","members":$expanded} | (%s))
else null end`, len(f.groups), strings.Join(groupLits, ","), len(f.groups), f.base.AsScript())
}
