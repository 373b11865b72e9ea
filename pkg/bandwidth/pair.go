package bandwidth

import (
	"fmt"
	"strings"

	"github.com/dpbroker/dpb/pkg/goalset"
)

// PairFunction assigns each endpoint an ingress and egress bandwidth range.
// The bandwidth required across a partition S is the minimum of the total
// ingress demand from the endpoints in S and the total egress demand from
// the endpoints not in S: f(S) = min(Σ ingress_S, Σ egress_¬S). This models
// a star of independent endpoints, each sourcing and sinking traffic at
// its own rate, with the partition's carrying capacity bounded by whichever
// direction is the tighter cut.
type PairFunction struct {
	degree    int
	endpoints []Pair
}

// NewPairFunction builds a PairFunction from one (ingress, egress) Pair per
// endpoint, in endpoint-index order.
func NewPairFunction(endpoints []Pair) *PairFunction {
	return &PairFunction{degree: len(endpoints), endpoints: endpoints}
}

func (f *PairFunction) Degree() int { return f.degree }

func (f *PairFunction) Get(s *goalset.Set) (Range, error) {
	p, err := f.GetPair(s)
	if err != nil {
		return Range{}, err
	}
	return p.Flatten(), nil
}

func (f *PairFunction) GetPair(s *goalset.Set) (Pair, error) {
	if s.Degree() != f.degree {
		return Pair{}, errDegreeMismatch(f.degree, s.Degree())
	}

	var ingressSum, egressSum Range
	for i := 0; i < f.degree; i++ {
		if s.Contains(i) {
			ingressSum = ingressSum.Add(f.endpoints[i].Ingress)
		} else {
			egressSum = egressSum.Add(f.endpoints[i].Egress)
		}
	}
	return Pair{Ingress: ingressSum, Egress: egressSum}, nil
}

// AsScript embeds each endpoint's ingress/egress range as a literal array
// and reduces over .members to recompute f(S) = min(Σ ingress_S, Σ
// egress_¬S) exactly as GetPair does.
func (f *PairFunction) AsScript() string {
	ingress := make([]string, f.degree)
	egress := make([]string, f.degree)
	for i, e := range f.endpoints {
		ingress[i] = rangeJSON(e.Ingress)
		egress[i] = rangeJSON(e.Egress)
	}
	return fmt.Sprintf(`%sif .op == "degree" then %d
elif .op == "get" then
  (.members) as $s
  | [%s] as $ingress
  | [%s] as $egress
  | (reduce range(0; %d) as $i ({"min":0,"max":0};
      if ($s | index($i)) then {"min": (.min + $ingress[$i].min), "max": radd(.max; $ingress[$i].max)} else . end
    )) as $isum
  | (reduce range(0; %d) as $i ({"min":0,"max":0};
      if ($s | index($i) | not) then {"min": (.min + $egress[$i].min), "max": radd(.max; $egress[$i].max)} else . end
    )) as $esum
  | {"ingress": $isum, "egress": $esum}
else null end`, raddDef, f.degree, strings.Join(ingress, ","), strings.Join(egress, ","), f.degree, f.degree)
}
