package algo

import (
	"maps"
	"slices"

	"vantage/pkg/graph"
)

// TopoResult is the outcome of a topological sort attempt. When the graph
// has cycles, Order holds the partial order of the acyclic prefix, IsDAG is
// false and CycleEdges lists the edges that lie on a cycle: edges whose
// endpoints share a multi-node strongly connected component, plus
// self-loops. Edges that merely feed into or out of a cycle are not cycle
// edges.
type TopoResult struct {
	Order      []string           `json:"order"`
	IsDAG      bool               `json:"is_dag"`
	CycleEdges []graph.Dependency `json:"cycle_edges,omitempty"`
}

// TopologicalOrder sorts the components with Kahn's algorithm. The ready
// queue is kept in ascending key order, so the result is deterministic:
// among nodes with zero in-degree the smallest key is emitted first.
func TopologicalOrder(g *graph.Graph, types []string) TopoResult {
	out, in := g.Adjacency(types)

	keys := g.ComponentKeys()
	indegree := make(map[string]int, len(keys))
	for _, k := range keys {
		indegree[k] = len(in[k])
	}

	// ready holds zero in-degree nodes, sorted ascending at all times
	var ready []string
	for _, k := range keys {
		if indegree[k] == 0 {
			ready = append(ready, k)
		}
	}

	order := make([]string, 0, len(keys))
	for len(ready) > 0 {
		k := ready[0]
		ready = ready[1:]
		order = append(order, k)
		for _, child := range out[k] {
			indegree[child]--
			if indegree[child] == 0 {
				pos, _ := slices.BinarySearch(ready, child)
				ready = slices.Insert(ready, pos, child)
			}
		}
	}

	result := TopoResult{Order: order, IsDAG: len(order) == len(keys)}
	if result.IsDAG {
		return result
	}

	// Positive residual in-degree only proves a node sits downstream of a
	// cycle, not on one. The cycle edges proper are the ones inside a
	// multi-node strongly connected component, plus self-loops.
	comp := make(map[string]int, len(keys))
	multi := make(map[int]bool)
	for i, scc := range StronglyConnected(g, types) {
		for _, m := range scc.Members {
			comp[m] = i
		}
		multi[i] = scc.Size() > 1
	}
	for _, src := range slices.Sorted(maps.Keys(out)) {
		for _, dst := range out[src] {
			if src == dst || (comp[src] == comp[dst] && multi[comp[src]]) {
				result.CycleEdges = append(result.CycleEdges, graph.Dependency{Source: src, Target: dst})
			}
		}
	}
	return result
}

// RankReport separates edges that contradict a layering from edges inside
// a single rank. Ranks increase downward: an edge must point from a lower
// rank number to a strictly higher one.
type RankReport struct {
	Violations []graph.Dependency `json:"violations,omitempty"`
	SameRank   []graph.Dependency `json:"same_rank,omitempty"`
}

// LayerViolations checks the de-duplicated edges against a rank assignment.
// Edges pointing upward (rank[source] > rank[target]) are violations; edges
// within one rank are reported separately as informational. Edges touching
// unranked nodes are skipped. Violations are reported even when the graph
// as a whole is acyclic.
func LayerViolations(g *graph.Graph, rank map[string]int, types []string) RankReport {
	out, _ := g.Adjacency(types)
	var report RankReport
	for _, src := range slices.Sorted(maps.Keys(out)) {
		rs, ok := rank[src]
		if !ok {
			continue
		}
		for _, dst := range out[src] {
			rt, ok := rank[dst]
			if !ok {
				continue
			}
			switch {
			case rs > rt:
				report.Violations = append(report.Violations, graph.Dependency{Source: src, Target: dst})
			case rs == rt:
				report.SameRank = append(report.SameRank, graph.Dependency{Source: src, Target: dst})
			}
		}
	}
	return report
}
