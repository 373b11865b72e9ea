// Package topology builds the weighted edge graph the planner searches:
// one edge per commissioned trunk, plus any synthetic edges an inferior
// network contributes to describe its own internal reachability.
package topology

import (
	"sort"

	"github.com/dpbroker/dpb/pkg/trunk"
)

// Edge is one traversable link in the topology graph. Multiple edges
// between the same two terminals are allowed — e.g. two parallel trunks —
// and are kept distinct rather than merged, so the planner can choose
// between them.
type Edge struct {
	From string
	To   string
	Cost float64

	// Trunk is non-nil for edges backed by a real trunk; synthetic edges
	// contributed by an inferior network leave it nil.
	Trunk *trunk.Trunk
	View  *trunk.View
}

// CostFunc assigns a planning cost to a commissioned trunk. The default,
// DefaultCost, weighs every trunk equally so the planner's tie-break falls
// through to vertex ids.
type CostFunc func(t *trunk.Trunk) float64

// DefaultCost assigns every trunk the same unit cost.
func DefaultCost(t *trunk.Trunk) float64 { return 1 }

// DelayCost weighs a trunk by its propagation delay in nanoseconds, so the
// planner prefers lower-latency paths when capacity allows a choice.
func DelayCost(t *trunk.Trunk) float64 {
	return float64(t.Delay())
}

// Graph is an undirected (but direction-preserving) multigraph over
// terminal names.
type Graph struct {
	edges     []*Edge
	adjacency map[string][]*Edge
}

// Build constructs a Graph from a list of trunks and an optional list of
// extra synthetic edges (e.g. an inferior network's own internal
// reachability). Trunks that are not commissioned are skipped entirely.
func Build(trunks []*trunk.Trunk, cost CostFunc, extra []*Edge) *Graph {
	if cost == nil {
		cost = DefaultCost
	}
	g := &Graph{adjacency: make(map[string][]*Edge)}

	for _, t := range trunks {
		if !t.IsCommissioned() {
			continue
		}
		c := cost(t)
		forward := &Edge{From: t.StartTerminal(), To: t.EndTerminal(), Cost: c, Trunk: t, View: trunk.ViewOf(t)}
		backward := &Edge{From: t.EndTerminal(), To: t.StartTerminal(), Cost: c, Trunk: t, View: trunk.ViewOf(t).Reverse()}
		g.addEdge(forward)
		g.addEdge(backward)
	}
	for _, e := range extra {
		g.addEdge(e)
		g.addEdge(&Edge{From: e.To, To: e.From, Cost: e.Cost})
	}

	return g
}

func (g *Graph) addEdge(e *Edge) {
	g.edges = append(g.edges, e)
	g.adjacency[e.From] = append(g.adjacency[e.From], e)
}

// Edges returns every directed edge in the graph (both directions of each
// trunk are represented separately).
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Neighbors returns the edges leaving terminal.
func (g *Graph) Neighbors(terminal string) []*Edge {
	return g.adjacency[terminal]
}

// Vertices returns every terminal name that appears as an edge endpoint,
// sorted for deterministic iteration.
func (g *Graph) Vertices() []string {
	seen := make(map[string]bool)
	for _, e := range g.edges {
		seen[e.From] = true
		seen[e.To] = true
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// UndirectedEdges collapses each forward/backward pair contributed by a
// single trunk into one undirected edge, used by the planner's spanning
// tree search (which only needs each link once). Parallel trunks between
// the same terminals remain distinct entries.
func (g *Graph) UndirectedEdges() []*Edge {
	seen := make(map[*trunk.Trunk]bool)
	var out []*Edge
	for _, e := range g.edges {
		if e.Trunk == nil {
			out = append(out, e)
			continue
		}
		if seen[e.Trunk] {
			continue
		}
		seen[e.Trunk] = true
		out = append(out, e)
	}
	return out
}
