package bandwidth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dpbroker/dpb/pkg/goalset"
)

// MatrixFunction assigns a bandwidth Range to each ordered pair of distinct
// endpoints (i,j), i != j — degree*(degree-1) cells — describing the
// point-to-point demand flowing from i to j. The bandwidth required across
// a partition S is the sum of demand crossing it in each direction:
// ingress is flow from outside S into S, egress is flow from S to outside.
type MatrixFunction struct {
	degree int
	cells  map[[2]int]Range
}

// NewMatrixFunction builds a MatrixFunction of the given degree with every
// cell defaulting to the zero Range. Set individual cells with SetCell.
func NewMatrixFunction(degree int) *MatrixFunction {
	return &MatrixFunction{degree: degree, cells: make(map[[2]int]Range)}
}

// SetCell records the demand flowing from endpoint i to endpoint j. i and j
// must be distinct indices in [0,degree).
func (f *MatrixFunction) SetCell(i, j int, r Range) error {
	if i < 0 || i >= f.degree || j < 0 || j >= f.degree {
		return errCellOutOfRange(i, j, f.degree)
	}
	if i == j {
		return errCellDiagonal(i)
	}
	f.cells[[2]int{i, j}] = r
	return nil
}

func (f *MatrixFunction) cell(i, j int) Range {
	return f.cells[[2]int{i, j}]
}

func (f *MatrixFunction) Degree() int { return f.degree }

// Get returns the single directional sum Σ_{i∈S,j∉S} cell(i,j) — demand
// flowing out of S, matching GetPair's Egress. Unlike PairFunction, Matrix
// has no Min-of-both-directions rule: the two directions are independent
// cells, not two readings of the same requirement.
func (f *MatrixFunction) Get(s *goalset.Set) (Range, error) {
	p, err := f.GetPair(s)
	if err != nil {
		return Range{}, err
	}
	return p.Egress, nil
}

func (f *MatrixFunction) GetPair(s *goalset.Set) (Pair, error) {
	if s.Degree() != f.degree {
		return Pair{}, errDegreeMismatch(f.degree, s.Degree())
	}

	var ingress, egress Range
	for i := 0; i < f.degree; i++ {
		for j := 0; j < f.degree; j++ {
			if i == j {
				continue
			}
			inI, inJ := s.Contains(i), s.Contains(j)
			switch {
			case !inI && inJ: // flow from outside into S
				ingress = ingress.Add(f.cell(i, j))
			case inI && !inJ: // flow from S to outside
				egress = egress.Add(f.cell(i, j))
			}
		}
	}
	return Pair{Ingress: ingress, Egress: egress}, nil
}

// AsScript embeds every set cell as a literal {i,j,min,max} entry and
// reduces over them to recompute GetPair's ingress/egress sums. Note that
// since Get delegates to the generic ScriptedFunction.Get (Flatten of
// GetPair), a MatrixFunction round-tripped through AsScript no longer gets
// the single-direction Get this type itself implements — the reconstructed
// function only has GetPair's ingress/egress distinction to work with.
func (f *MatrixFunction) AsScript() string {
	type key struct{ i, j int }
	keys := make([]key, 0, len(f.cells))
	for k := range f.cells {
		keys = append(keys, key{k[0], k[1]})
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].i != keys[b].i {
			return keys[a].i < keys[b].i
		}
		return keys[a].j < keys[b].j
	})

	entries := make([]string, 0, len(keys))
	for _, k := range keys {
		r := f.cells[[2]int{k.i, k.j}]
		entries = append(entries, fmt.Sprintf(`{"i":%d,"j":%d,"min":%s,"max":%s}`,
			k.i, k.j, formatFloat(r.Min), maxJSON(r.Max)))
	}

	return fmt.Sprintf(`%sif .op == "degree" then %d
elif .op == "get" then
  (.members) as $s
  | [%s] as $cells
  | (reduce $cells[] as $c ({"min":0,"max":0};
      if (($s|index($c.i)) and (($s|index($c.j))|not)) then {"min": (.min+$c.min), "max": radd(.max;$c.max)} else . end
    )) as $egress
  | (reduce $cells[] as $c ({"min":0,"max":0};
      if ((($s|index($c.i))|not) and ($s|index($c.j))) then {"min": (.min+$c.min), "max": radd(.max;$c.max)} else . end
    )) as $ingress
  | {"ingress": $ingress, "egress": $egress}
else null end`, raddDef, f.degree, strings.Join(entries, ","))
}
