package bandwidth

import "github.com/dpbroker/dpb/pkg/goalset"

// TabulateThreshold bounds the degree at which a Function may be
// tabulated into a dense table: tabulation is only offered when
// 2^degree - 2 does not exceed this many entries.
const TabulateThreshold = 1 << 16

// Function maps every non-trivial goal set over [0,Degree) to the
// bandwidth that must be carried across that partition. Implementations
// must be safe for concurrent read access; the planner queries functions
// from multiple goroutines during tree search.
type Function interface {
	// Degree is the number of endpoints the function is defined over.
	Degree() int

	// Get returns the bandwidth Range required across the partition named
	// by s. s must have degree Degree().
	Get(s *goalset.Set) (Range, error)

	// GetPair returns the ingress/egress Pair required across the
	// partition named by s, where defined; functions that only carry a
	// single Range report it as both ingress and egress.
	GetPair(s *goalset.Set) (Pair, error)

	// AsScript renders the function as a self-contained jq program
	// implementing the same {"op":"degree"}/{"op":"get","members":[...]}
	// protocol ScriptedFunction evaluates, so any Function can be handed
	// to another aggregator without that aggregator knowing the concrete
	// Go type on this end.
	AsScript() string
}

// Tabulate evaluates f at every non-trivial goal set and returns the
// result as a TabulatedFunction, provided Degree() is small enough per
// TabulateThreshold. Evaluating f repeatedly (e.g. a ScriptedFunction) is
// the main reason to do this once up front.
func Tabulate(f Function) (*TabulatedFunction, error) {
	degree := f.Degree()
	entries := (int64(1) << uint(degree)) - 2
	if degree > 62 || entries > TabulateThreshold {
		return nil, errTooLargeToTabulate(degree)
	}

	table := make(map[string]Pair, entries)
	var outerErr error
	goalset.AllValidSetsFunc(degree, func(s *goalset.Set) bool {
		p, err := f.GetPair(s)
		if err != nil {
			outerErr = err
			return false
		}
		table[s.ToBigInt().String()] = p
		return true
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return &TabulatedFunction{degree: degree, table: table}, nil
}
