package planner

import (
	"sort"

	"github.com/dpbroker/dpb/pkg/bandwidth"
	"github.com/dpbroker/dpb/pkg/goalset"
)

// delegatedFunctions builds, for every inferior network present in
// req.Endpoints, the bandwidth function that network's own aggregator
// must enforce locally: a singleton group per local endpoint plus one
// group standing in for every endpoint outside the network, reduced from
// the full request function via bandwidth.NewReducedFunction, so the
// inferior only ever has to reason about its own endpoint count.
func delegatedFunctions(req Request) (map[string]bandwidth.Function, error) {
	byNetwork := make(map[string][]Endpoint)
	for _, e := range req.Endpoints {
		byNetwork[e.Network] = append(byNetwork[e.Network], e)
	}

	degree := len(req.Endpoints)
	out := make(map[string]bandwidth.Function, len(byNetwork))
	for network, endpoints := range byNetwork {
		sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Index < endpoints[j].Index })

		local := goalset.New(degree)
		groups := make([]*goalset.Set, 0, len(endpoints))
		for _, e := range endpoints {
			g, err := goalset.FromBits(degree, e.Index)
			if err != nil {
				return nil, err
			}
			groups = append(groups, g)
			local, err = local.Union(g)
			if err != nil {
				return nil, err
			}
		}

		reduced, err := bandwidth.NewReducedFunction(req.Function, groups)
		if err != nil {
			return nil, err
		}
		out[network] = reduced
	}
	return out, nil
}
