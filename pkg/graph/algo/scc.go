package algo

import (
	"slices"

	"vantage/pkg/graph"
)

// SCC is one strongly connected component: its sorted members plus the
// number of de-duplicated edges crossing its boundary in each direction.
type SCC struct {
	Members     []string `json:"members"`
	ExternalOut int      `json:"external_out"`
	ExternalIn  int      `json:"external_in"`
}

// Size returns the number of members.
func (s SCC) Size() int { return len(s.Members) }

// StronglyConnected computes the strongly connected components of the
// graph with an iterative Tarjan in linear time. Isolated nodes form
// singleton components. Components are sorted by their smallest member.
func StronglyConnected(g *graph.Graph, types []string) []SCC {
	out, _ := g.Adjacency(types)
	keys := g.ComponentKeys()

	index := make(map[string]int, len(keys))
	lowlink := make(map[string]int, len(keys))
	onStack := make(map[string]bool, len(keys))
	var stack []string
	next := 0

	var groups [][]string

	// explicit frame stack; the recursive formulation overflows on deep
	// dependency chains
	type frame struct {
		node string
		edge int
	}

	strongConnect := func(root string) {
		frames := []frame{{node: root}}
		index[root] = next
		lowlink[root] = next
		next++
		stack = append(stack, root)
		onStack[root] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			children := out[f.node]
			if f.edge < len(children) {
				child := children[f.edge]
				f.edge++
				if _, seen := index[child]; !seen {
					index[child] = next
					lowlink[child] = next
					next++
					stack = append(stack, child)
					onStack[child] = true
					frames = append(frames, frame{node: child})
				} else if onStack[child] {
					lowlink[f.node] = min(lowlink[f.node], index[child])
				}
				continue
			}

			if lowlink[f.node] == index[f.node] {
				var members []string
				for {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[top] = false
					members = append(members, top)
					if top == f.node {
						break
					}
				}
				slices.Sort(members)
				groups = append(groups, members)
			}

			done := f.node
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				lowlink[parent.node] = min(lowlink[parent.node], lowlink[done])
			}
		}
	}

	for _, k := range keys {
		if _, seen := index[k]; !seen {
			strongConnect(k)
		}
	}

	slices.SortFunc(groups, func(a, b []string) int {
		if a[0] < b[0] {
			return -1
		}
		if a[0] > b[0] {
			return 1
		}
		return 0
	})

	member := make(map[string]int, len(keys))
	for i, grp := range groups {
		for _, k := range grp {
			member[k] = i
		}
	}

	sccs := make([]SCC, len(groups))
	for i, grp := range groups {
		sccs[i] = SCC{Members: grp}
	}
	for src, targets := range out {
		for _, dst := range targets {
			if member[src] != member[dst] {
				sccs[member[src]].ExternalOut++
				sccs[member[dst]].ExternalIn++
			}
		}
	}

	return sccs
}

// Condensation is the DAG obtained by collapsing every SCC to one node.
// Node i corresponds to Components[i]; edges are de-duplicated.
type Condensation struct {
	Components []SCC    `json:"components"`
	Edges      [][2]int `json:"edges,omitempty"`
}

// Condense collapses the graph's strongly connected components into a DAG.
// The result is always acyclic, whatever cycles the input carried.
func Condense(g *graph.Graph, types []string) Condensation {
	sccs := StronglyConnected(g, types)

	member := make(map[string]int)
	for i, s := range sccs {
		for _, k := range s.Members {
			member[k] = i
		}
	}

	out, _ := g.Adjacency(types)
	seen := make(map[[2]int]struct{})
	cond := Condensation{Components: sccs}
	for src, targets := range out {
		for _, dst := range targets {
			edge := [2]int{member[src], member[dst]}
			if edge[0] == edge[1] {
				continue
			}
			if _, dup := seen[edge]; dup {
				continue
			}
			seen[edge] = struct{}{}
			cond.Edges = append(cond.Edges, edge)
		}
	}
	slices.SortFunc(cond.Edges, func(a, b [2]int) int {
		if a[0] != b[0] {
			return a[0] - b[0]
		}
		return a[1] - b[1]
	})
	return cond
}
