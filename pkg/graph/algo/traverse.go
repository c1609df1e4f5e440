// Package algo implements the graph algorithms the engine runs over
// snapshots: breadth-first traversal, topological ordering, strongly
// connected components with condensation, community detection and
// per-node metrics.
//
// Every function is pure: it reads an indexed graph and returns a value.
// Degenerate inputs (empty graphs, isolated nodes, self-loops) produce
// well-defined results rather than errors.
package algo

import (
	"slices"

	"vantage/pkg/errors"
	"vantage/pkg/graph"
)

// Direction selects which edges a traversal follows.
type Direction int

const (
	// DirectionOut follows edges source→target (dependencies).
	DirectionOut Direction = iota
	// DirectionIn follows edges target→source (dependents).
	DirectionIn
	// DirectionBoth follows edges in both directions.
	DirectionBoth
)

// String returns the direction name used on CLI flags and API payloads.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionBoth:
		return "both"
	default:
		return "out"
	}
}

// ParseDirection parses a direction name. Empty means DirectionOut.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "out":
		return DirectionOut, nil
	case "in":
		return DirectionIn, nil
	case "both":
		return DirectionBoth, nil
	}
	return DirectionOut, errors.New(errors.ErrCodeInvalidInput, "unknown direction %q (want out, in or both)", s)
}

// Level is one BFS frontier: every node first reached at the given depth.
type Level struct {
	Depth int      `json:"depth"`
	Keys  []string `json:"keys"`
}

// Traversal is the result of a breadth-first walk. Level depths start at 1;
// the start node itself is not included. The value is self-contained and
// can be re-read any number of times.
type Traversal struct {
	Start  string  `json:"start"`
	Levels []Level `json:"levels,omitempty"`
}

// Direct returns the nodes at depth 1.
func (t Traversal) Direct() []string {
	if len(t.Levels) == 0 {
		return nil
	}
	return t.Levels[0].Keys
}

// Transitive returns all nodes at depth 2 and beyond, in level order.
func (t Traversal) Transitive() []string {
	var out []string
	for _, l := range t.Levels {
		if l.Depth >= 2 {
			out = append(out, l.Keys...)
		}
	}
	return out
}

// All returns every reached node in level order.
func (t Traversal) All() []string {
	var out []string
	for _, l := range t.Levels {
		out = append(out, l.Keys...)
	}
	return out
}

// Traverse walks the graph breadth-first from start. Each node appears in
// exactly one level, the depth at which it was first reached; ties within a
// level are broken by ascending key. maxDepth <= 0 means unbounded. types
// restricts the edges followed; nil keeps all edge types.
func Traverse(g *graph.Graph, start string, dir Direction, maxDepth int, types []string) (Traversal, error) {
	if _, ok := g.Component(start); !ok {
		return Traversal{}, errors.New(errors.ErrCodeNotFound, "unknown component %q", start)
	}

	out, in := g.Adjacency(types)
	next := func(key string) []string {
		switch dir {
		case DirectionIn:
			return in[key]
		case DirectionBoth:
			merged := slices.Clone(out[key])
			for _, p := range in[key] {
				if !slices.Contains(merged, p) {
					merged = append(merged, p)
				}
			}
			return merged
		default:
			return out[key]
		}
	}

	result := Traversal{Start: start}
	visited := map[string]struct{}{start: {}}
	frontier := []string{start}

	for depth := 1; len(frontier) > 0 && (maxDepth <= 0 || depth <= maxDepth); depth++ {
		var reached []string
		for _, key := range frontier {
			for _, n := range next(key) {
				if _, seen := visited[n]; seen {
					continue
				}
				visited[n] = struct{}{}
				reached = append(reached, n)
			}
		}
		if len(reached) == 0 {
			break
		}
		slices.Sort(reached)
		result.Levels = append(result.Levels, Level{Depth: depth, Keys: reached})
		frontier = reached
	}

	return result, nil
}
