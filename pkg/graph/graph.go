// Package graph defines the component-dependency model: snapshots as the
// canonical serialization format and Graph as the indexed, read-only view
// the algorithms and the evaluator operate on.
package graph

import (
	"maps"
	"slices"
)

// =============================================================================
// Graph - Indexed Snapshot View
// =============================================================================

// Graph is an indexed, immutable view over a Snapshot. It resolves
// endpoint-level edges to their owning components, drops dangling edges,
// and precomputes de-duplicated adjacency in both directions.
//
// All slices returned by accessor methods are read-only views unless
// documented otherwise. Graph is safe for concurrent reads.
type Graph struct {
	components map[string]*Component
	endpoints  map[string]*Endpoint
	owner      map[string]string // endpoint key -> owning component key
	tags       map[string]map[string]struct{}
	layers     map[string]*Layer
	subLayers  map[string][]string // layer key -> direct child layer keys

	edges    []Dependency // component-level, dangling edges dropped
	outgoing map[string][]string
	incoming map[string][]string
}

// New validates a snapshot and builds its indexed Graph. Edges whose source
// or target names an unknown entity are dropped silently; everything else
// that fails validation returns an INVALID_SNAPSHOT error.
func New(s Snapshot) (*Graph, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	g := &Graph{
		components: make(map[string]*Component, len(s.Components)),
		endpoints:  make(map[string]*Endpoint, len(s.Endpoints)),
		owner:      make(map[string]string, len(s.Endpoints)),
		tags:       make(map[string]map[string]struct{}, len(s.Components)+len(s.Endpoints)),
		layers:     make(map[string]*Layer, len(s.Layers)),
		subLayers:  make(map[string][]string),
		outgoing:   make(map[string][]string),
		incoming:   make(map[string][]string),
	}

	for i := range s.Components {
		c := s.Components[i]
		g.components[c.Key] = &c
		g.tags[c.Key] = tagSet(c.Tags)
	}
	for i := range s.Endpoints {
		e := s.Endpoints[i]
		g.endpoints[e.Key] = &e
		g.owner[e.Key] = e.Component
		g.tags[e.Key] = tagSet(e.Tags)
	}
	for i := range s.Layers {
		l := s.Layers[i]
		g.layers[l.Key] = &l
	}
	for _, l := range g.layers {
		if l.Parent != "" {
			g.subLayers[l.Parent] = append(g.subLayers[l.Parent], l.Key)
		}
	}
	for _, children := range g.subLayers {
		slices.Sort(children)
	}

	for _, d := range s.Dependencies {
		src, okS := g.liftToComponent(d.Source)
		dst, okD := g.liftToComponent(d.Target)
		if !okS || !okD {
			continue
		}
		g.edges = append(g.edges, Dependency{Source: src, Target: dst, Type: d.Type})
	}

	for _, e := range g.edges {
		g.outgoing[e.Source] = appendUnique(g.outgoing[e.Source], e.Target)
		g.incoming[e.Target] = appendUnique(g.incoming[e.Target], e.Source)
	}
	for k := range g.outgoing {
		slices.Sort(g.outgoing[k])
	}
	for k := range g.incoming {
		slices.Sort(g.incoming[k])
	}

	return g, nil
}

// liftToComponent maps an edge endpoint to its component: component keys
// pass through, endpoint keys resolve to their owner.
func (g *Graph) liftToComponent(key string) (string, bool) {
	if _, ok := g.components[key]; ok {
		return key, true
	}
	if owner, ok := g.owner[key]; ok {
		return owner, true
	}
	return "", false
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}

// =============================================================================
// Accessors
// =============================================================================

// Component returns the component with the given key, or nil and false.
func (g *Graph) Component(key string) (*Component, bool) {
	c, ok := g.components[key]
	return c, ok
}

// Endpoint returns the endpoint with the given key, or nil and false.
func (g *Graph) Endpoint(key string) (*Endpoint, bool) {
	e, ok := g.endpoints[key]
	return e, ok
}

// HasEntity reports whether key names a component or an endpoint.
func (g *Graph) HasEntity(key string) bool {
	_, isC := g.components[key]
	_, isE := g.endpoints[key]
	return isC || isE
}

// ComponentKeys returns all component keys in ascending order.
func (g *Graph) ComponentKeys() []string {
	return slices.Sorted(maps.Keys(g.components))
}

// EntityKeys returns all component and endpoint keys in ascending order.
// This is the candidate universe for tag-expression resolution.
func (g *Graph) EntityKeys() []string {
	keys := make([]string, 0, len(g.components)+len(g.endpoints))
	for k := range g.components {
		keys = append(keys, k)
	}
	for k := range g.endpoints {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// TagsOf returns the tag set of a component or endpoint as of now.
// Returns nil for unknown keys. The returned map must not be modified.
func (g *Graph) TagsOf(key string) map[string]struct{} {
	return g.tags[key]
}

// HasTag reports whether the entity carries the tag.
func (g *Graph) HasTag(key, tag string) bool {
	_, ok := g.tags[key][tag]
	return ok
}

// Owner returns the owning component key of an endpoint, or "" for
// components and unknown keys.
func (g *Graph) Owner(endpointKey string) string {
	return g.owner[endpointKey]
}

// NodeCount returns the number of components.
func (g *Graph) NodeCount() int { return len(g.components) }

// EdgeCount returns the number of component-level edges, parallel typed
// edges counted distinctly.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Dependencies returns a copy of the surviving component-level edges.
func (g *Graph) Dependencies() []Dependency { return slices.Clone(g.edges) }

// Children returns the de-duplicated, sorted targets of the component's
// outgoing edges. The returned slice must not be modified.
func (g *Graph) Children(key string) []string { return g.outgoing[key] }

// Parents returns the de-duplicated, sorted sources of the component's
// incoming edges. The returned slice must not be modified.
func (g *Graph) Parents(key string) []string { return g.incoming[key] }

// HasEdge reports whether a direct edge source→target exists.
func (g *Graph) HasEdge(source, target string) bool {
	return slices.Contains(g.outgoing[source], target)
}

// Adjacency returns de-duplicated, sorted adjacency restricted to the given
// dependency types. A nil or empty filter keeps every edge. The incoming
// map is the exact transpose of the outgoing map.
func (g *Graph) Adjacency(types []string) (out, in map[string][]string) {
	if len(types) == 0 {
		return g.outgoing, g.incoming
	}
	keep := tagSet(types)
	out = make(map[string][]string)
	in = make(map[string][]string)
	for _, e := range g.edges {
		if _, ok := keep[e.Type]; !ok {
			continue
		}
		out[e.Source] = appendUnique(out[e.Source], e.Target)
		in[e.Target] = appendUnique(in[e.Target], e.Source)
	}
	for k := range out {
		slices.Sort(out[k])
	}
	for k := range in {
		slices.Sort(in[k])
	}
	return out, in
}

// =============================================================================
// Layers
// =============================================================================

// Layer returns the layer with the given key, or nil and false.
func (g *Graph) Layer(key string) (*Layer, bool) {
	l, ok := g.layers[key]
	return l, ok
}

// LayerKeys returns all layer keys in ascending order.
func (g *Graph) LayerKeys() []string {
	return slices.Sorted(maps.Keys(g.layers))
}

// SubLayers returns the direct child layer keys of a layer, sorted.
func (g *Graph) SubLayers(key string) []string { return g.subLayers[key] }

// LayerMembers returns the union of group members of a layer, restricted to
// entities present in the snapshot. With includeDescendants it unions the
// whole layer subtree.
func (g *Graph) LayerMembers(key string, includeDescendants bool) map[string]struct{} {
	members := make(map[string]struct{})
	queue := []string{key}
	for len(queue) > 0 {
		lk := queue[0]
		queue = queue[1:]
		l, ok := g.layers[lk]
		if !ok {
			continue
		}
		for _, grp := range l.Groups {
			for _, m := range grp.Members {
				if g.HasEntity(m) {
					members[m] = struct{}{}
				}
			}
		}
		if includeDescendants {
			queue = append(queue, g.subLayers[lk]...)
		}
	}
	return members
}

// LayersOf returns the sorted keys of every layer with a group containing
// the entity, direct membership only.
func (g *Graph) LayersOf(entityKey string) []string {
	var out []string
	for lk, l := range g.layers {
		for _, grp := range l.Groups {
			if slices.Contains(grp.Members, entityKey) {
				out = append(out, lk)
				break
			}
		}
	}
	slices.Sort(out)
	return out
}
