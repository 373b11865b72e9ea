// Package planner implements TreePlanner: given a set of endpoints and a
// bandwidth function over them, it builds a minimum-cost spanning tree
// across commissioned trunks, checks every edge in the tree can actually
// carry the cut it represents, prunes and retries when one can't, and on
// success computes the per-inferior-network endpoint groups and
// delegated bandwidth functions the aggregator hands down to each
// inferior network.
package planner

import (
	"fmt"

	"github.com/dpbroker/dpb/pkg/bandwidth"
	"github.com/dpbroker/dpb/pkg/goalset"
	"github.com/dpbroker/dpb/pkg/topology"
	"github.com/dpbroker/dpb/pkg/trunk"
	"github.com/dpbroker/dpb/pkg/util"
)

// Endpoint is one of the goal set's members: an index into the requested
// BandwidthFunction's domain, bound to a concrete terminal on a named
// inferior network.
type Endpoint struct {
	Index    int
	Terminal string
	Network  string
}

// Request describes what a tree must connect and how much bandwidth it
// must carry across every partition of the requested endpoints.
type Request struct {
	Endpoints []Endpoint
	Function  bandwidth.Function
}

// TrunkProvider is the narrow slice of Aggregator the planner needs.
// Accepting an interface here (rather than importing pkg/aggregator
// directly) avoids a planner<->aggregator import cycle, since the
// aggregator package is the one that calls into the planner.
type TrunkProvider interface {
	Trunks() []*trunk.Trunk
	FindTrunk(name string) (*trunk.Trunk, error)
}

// LabelAssignment records the label pair chosen for one trunk used by a
// planned tree.
type LabelAssignment struct {
	TrunkName  string
	StartLabel int
	EndLabel   int
}

// Result is a successfully planned tree.
type Result struct {
	Edges              []*topology.Edge
	Groups             map[string][]Endpoint
	DelegatedFunctions map[string]bandwidth.Function
	Labels             []LabelAssignment
}

const maxPlanAttempts = 64

// Plan searches for a spanning tree over tp's commissioned trunks that
// connects every endpoint in req and can carry req.Function across every
// cut the tree induces, pruning trunks that can't carry their cut and
// retrying until a tree is found or no candidate trunks remain.
func Plan(tp TrunkProvider, req Request) (*Result, error) {
	if len(req.Endpoints) < 2 {
		return nil, util.NewValidationError("plan requires at least two endpoints")
	}
	if req.Function.Degree() != len(req.Endpoints) {
		return nil, util.NewValidationError(
			fmt.Sprintf("bandwidth function degree %d does not match endpoint count %d",
				req.Function.Degree(), len(req.Endpoints)))
	}

	required := make(map[string]bool, len(req.Endpoints))
	terminalIndex := make(map[string]int, len(req.Endpoints))
	for _, e := range req.Endpoints {
		required[e.Terminal] = true
		terminalIndex[e.Terminal] = e.Index
	}

	allTrunks := tp.Trunks()
	excluded := make(map[string]bool)

	var lastErr error
	for attempt := 0; attempt < maxPlanAttempts; attempt++ {
		var candidates []*trunk.Trunk
		for _, t := range allTrunks {
			if !excluded[t.Name()] {
				candidates = append(candidates, t)
			}
		}

		g := topology.Build(candidates, topology.DelayCost, nil)
		if missing := missingTerminals(g, required); len(missing) > 0 {
			return nil, util.NewNotFoundError("terminal", missing[0])
		}

		mst, connected := minimumSpanningTree(g)
		if !connected {
			lastErr = util.NewCapacityError("no spanning tree connects the requested endpoints", "")
			break
		}
		tree := trimToRequired(mst, required)

		overloaded, err := firstOverloadedTrunk(tree, req, terminalIndex)
		if err != nil {
			return nil, err
		}
		if overloaded == "" {
			return buildResult(tree, req)
		}
		excluded[overloaded] = true
		lastErr = util.NewCapacityError("trunk lacks capacity for the requested bandwidth function", overloaded)
	}
	if lastErr == nil {
		lastErr = util.NewCapacityError("no tree converged within the planning attempt budget", "")
	}
	return nil, lastErr
}

// firstOverloadedTrunk returns the name of the first tree edge whose
// trunk cannot carry the cut it represents, or "" if every edge can.
func firstOverloadedTrunk(tree []*topology.Edge, req Request, terminalIndex map[string]int) (string, error) {
	adjacency := make(map[string][]*topology.Edge)
	for _, e := range tree {
		adjacency[e.From] = append(adjacency[e.From], e)
		adjacency[e.To] = append(adjacency[e.To], e)
	}

	for _, e := range tree {
		if e.Trunk == nil {
			continue
		}
		side := reachableWithoutEdge(adjacency, e.From, e)
		s, err := cutSet(side, req.Endpoints, terminalIndex)
		if err != nil {
			return "", err
		}
		pair, err := req.Function.GetPair(s)
		if err != nil {
			return "", err
		}
		if e.View.OutCapacity() < pair.Egress.Min || e.View.InCapacity() < pair.Ingress.Min {
			return e.Trunk.Name(), nil
		}
	}
	return "", nil
}

// reachableWithoutEdge returns every vertex reachable from start without
// crossing removed, i.e. the vertex set on removed.From's side of the cut
// it induces.
func reachableWithoutEdge(adjacency map[string][]*topology.Edge, start string, removed *topology.Edge) map[string]bool {
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, e := range adjacency[v] {
			if e == removed {
				continue
			}
			next := e.To
			if next == v {
				next = e.From
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}

// cutSet builds the goal set of endpoints whose terminal falls on the
// given side of a cut.
func cutSet(side map[string]bool, endpoints []Endpoint, terminalIndex map[string]int) (*goalset.Set, error) {
	m := goalset.NewMutable(len(endpoints))
	for _, e := range endpoints {
		if side[e.Terminal] {
			if err := m.SetBit(e.Index); err != nil {
				return nil, err
			}
		}
	}
	return m.Freeze(), nil
}

// missingTerminals returns every terminal in required that does not
// appear as a vertex in g at all, i.e. no trunk in g reaches it. g holds
// only the trunks not yet excluded, so on a retry a terminal reached only
// by excluded trunks is reported here as well. The result order is
// unspecified.
func missingTerminals(g *topology.Graph, required map[string]bool) []string {
	present := make(map[string]bool)
	for _, v := range g.Vertices() {
		present[v] = true
	}
	var missing []string
	for terminal := range required {
		if !present[terminal] {
			missing = append(missing, terminal)
		}
	}
	return missing
}

func buildResult(tree []*topology.Edge, req Request) (*Result, error) {
	groups := make(map[string][]Endpoint)
	for _, e := range req.Endpoints {
		groups[e.Network] = append(groups[e.Network], e)
	}

	delegated, err := delegatedFunctions(req)
	if err != nil {
		return nil, err
	}

	labels, err := assignLabels(tree)
	if err != nil {
		return nil, err
	}

	return &Result{
		Edges:              tree,
		Groups:             groups,
		DelegatedFunctions: delegated,
		Labels:             labels,
	}, nil
}

// assignLabels picks the next free label pair for every trunk used in
// the tree and records the mapping on the trunk itself. No aggregator lock
// is held while it runs: each NextAvailableLabel and MapLabel call is
// guarded only by that trunk's own mutex, so a label that a concurrent
// plan maps between the two calls makes MapLabel fail with a conflict
// error.
func assignLabels(tree []*topology.Edge) ([]LabelAssignment, error) {
	seen := make(map[*trunk.Trunk]bool)
	var out []LabelAssignment
	for _, e := range tree {
		if e.Trunk == nil || seen[e.Trunk] {
			continue
		}
		seen[e.Trunk] = true

		start, ok := e.Trunk.NextAvailableLabel(trunk.Start)
		if !ok {
			return nil, util.NewCapacityError("no free start label on trunk "+e.Trunk.Name(), e.Trunk.Name())
		}
		end, ok := e.Trunk.NextAvailableLabel(trunk.End)
		if !ok {
			return nil, util.NewCapacityError("no free end label on trunk "+e.Trunk.Name(), e.Trunk.Name())
		}
		if err := e.Trunk.MapLabel(start, end); err != nil {
			return nil, err
		}
		out = append(out, LabelAssignment{TrunkName: e.Trunk.Name(), StartLabel: start, EndLabel: end})
	}
	return out, nil
}
