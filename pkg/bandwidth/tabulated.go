package bandwidth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dpbroker/dpb/pkg/goalset"
)

// TabulatedFunction is a dense lookup table of precomputed Pairs, one per
// non-trivial goal set. Built by Tabulate when a function's degree is
// small enough (2^degree-2 <= TabulateThreshold) that evaluating it ahead
// of time is cheaper than repeatedly querying a more expensive function
// (e.g. a ScriptedFunction) during planning.
type TabulatedFunction struct {
	degree int
	table  map[string]Pair
}

func (f *TabulatedFunction) Degree() int { return f.degree }

func (f *TabulatedFunction) GetPair(s *goalset.Set) (Pair, error) {
	if s.Degree() != f.degree {
		return Pair{}, errDegreeMismatch(f.degree, s.Degree())
	}
	p, ok := f.table[s.ToBigInt().String()]
	if !ok {
		return Pair{}, errNotTabulated(s)
	}
	return p, nil
}

func (f *TabulatedFunction) Get(s *goalset.Set) (Range, error) {
	p, err := f.GetPair(s)
	if err != nil {
		return Range{}, err
	}
	return p.Flatten(), nil
}

// AsScript emits the table as a literal lookup: one {"members",...}
// entry per non-trivial goal set, matched by sorted membership rather
// than by bitmask value, since a degree-62 table's bitmasks would need to
// round-trip through jq's native arbitrary-precision numbers exactly —
// member lists keep the comparison simple and exact.
func (f *TabulatedFunction) AsScript() string {
	var entries []string
	goalset.AllValidSetsFunc(f.degree, func(s *goalset.Set) bool {
		p := f.table[s.ToBigInt().String()]
		members, _ := json.Marshal(s.Members())
		entries = append(entries, fmt.Sprintf(`{"members":%s,"ingress":%s,"egress":%s}`,
			members, rangeJSON(p.Ingress), rangeJSON(p.Egress)))
		return true
	})
	return fmt.Sprintf(`if .op == "degree" then %d
elif .op == "get" then
  (.members | sort) as $s
  | [%s] as $table
  | ($table[] | select((.members|sort) == $s) | {"ingress": .ingress, "egress": .egress})
else null end`, f.degree, strings.Join(entries, ","))
}
