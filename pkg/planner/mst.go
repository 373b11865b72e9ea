package planner

import (
	"sort"

	"github.com/dpbroker/dpb/pkg/topology"
)

// minimumSpanningTree runs Kruskal's algorithm over g's undirected edge
// set, breaking ties lexicographically by (cost, From, To) so the result
// is deterministic across runs with identical input. It returns the
// edges chosen and whether every vertex in g ended up in one component
// (false means the graph is not connected and no single tree spans it).
func minimumSpanningTree(g *topology.Graph) ([]*topology.Edge, bool) {
	vertices := g.Vertices()
	edges := append([]*topology.Edge(nil), g.UndirectedEdges()...)
	sort.SliceStable(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Cost != b.Cost {
			return a.Cost < b.Cost
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})

	uf := newUnionFind(vertices)
	var chosen []*topology.Edge
	for _, e := range edges {
		if uf.union(e.From, e.To) {
			chosen = append(chosen, e)
		}
	}

	if len(vertices) == 0 {
		return chosen, true
	}
	root := uf.find(vertices[0])
	for _, v := range vertices[1:] {
		if uf.find(v) != root {
			return chosen, false
		}
	}
	return chosen, true
}

// trimToRequired repeatedly removes leaf edges whose leaf endpoint is not
// in required, yielding a Steiner-style approximation: the smallest
// subtree of the MST that still spans every required vertex.
func trimToRequired(edges []*topology.Edge, required map[string]bool) []*topology.Edge {
	type edgeRef struct {
		edge  *topology.Edge
		other string
	}
	adjacency := make(map[string][]edgeRef)
	present := make(map[*topology.Edge]bool, len(edges))
	for _, e := range edges {
		adjacency[e.From] = append(adjacency[e.From], edgeRef{edge: e, other: e.To})
		adjacency[e.To] = append(adjacency[e.To], edgeRef{edge: e, other: e.From})
		present[e] = true
	}

	degree := make(map[string]int)
	for v, refs := range adjacency {
		degree[v] = len(refs)
	}

	changed := true
	for changed {
		changed = false
		for v, d := range degree {
			if d == 1 && !required[v] {
				for _, ref := range adjacency[v] {
					if present[ref.edge] {
						present[ref.edge] = false
						degree[v]--
						degree[ref.other]--
						changed = true
						break
					}
				}
			}
		}
	}

	var out []*topology.Edge
	for _, e := range edges {
		if present[e] {
			out = append(out, e)
		}
	}
	return out
}
