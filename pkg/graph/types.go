package graph

import (
	"encoding/json"
	"slices"

	"vantage/pkg/errors"
)

// =============================================================================
// Snapshot - Canonical Serialization Format
// =============================================================================

// Snapshot is the canonical serialization format for a workspace's graph
// state: components, endpoints, typed dependencies, and layers with their
// groups. It is the immutable input to every engine call; the engine never
// mutates a snapshot.
//
// The format is human-readable and designed for round-trip fidelity:
// import → analyze → export → re-import produces identical results.
type Snapshot struct {
	Components   []Component  `json:"components" bson:"components"`
	Endpoints    []Endpoint   `json:"endpoints,omitempty" bson:"endpoints,omitempty"`
	Dependencies []Dependency `json:"dependencies" bson:"dependencies"`
	Layers       []Layer      `json:"layers,omitempty" bson:"layers,omitempty"`
}

// Component is a node in the dependency graph representing a deployable or
// buildable unit. Identity is the Key; Name is a display label. Tags are
// flat string labels read as of "now" whenever a reference resolves.
type Component struct {
	Key  string   `json:"key" bson:"key"`
	Name string   `json:"name,omitempty" bson:"name,omitempty"`
	Tags []string `json:"tags,omitempty" bson:"tags,omitempty"`
}

// DisplayName returns the name if set, otherwise the key.
func (c *Component) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Key
}

// Endpoint is a finer-grained node owned by exactly one component. It
// carries its own tag set and participates in tagging, resolution and
// edges at endpoint granularity.
type Endpoint struct {
	Key       string   `json:"key" bson:"key"`
	Component string   `json:"component" bson:"component"`
	Tags      []string `json:"tags,omitempty" bson:"tags,omitempty"`
}

// Dependency is a directed edge between two components (or endpoints),
// carrying a dependency-type tag such as "compile", "runtime" or
// "contract". Parallel edges between the same pair with different types
// are preserved distinctly for metric purposes; graph algorithms operate
// on the de-duplicated adjacency.
type Dependency struct {
	Source string `json:"source" bson:"source"`
	Target string `json:"target" bson:"target"`
	Type   string `json:"type,omitempty" bson:"type,omitempty"`
}

// Group is a named member set inside a layer: the unit of coverage,
// correspondence and refinement comparison.
type Group struct {
	Key     string   `json:"key" bson:"key"`
	Name    string   `json:"name,omitempty" bson:"name,omitempty"`
	Members []string `json:"members,omitempty" bson:"members,omitempty"`
}

// Layer is a named, possibly hierarchical grouping of components. A
// component may belong to zero, one or many layers simultaneously; layer
// membership is never exclusive. Imported layers are marked read-only.
type Layer struct {
	Key      string  `json:"key" bson:"key"`
	Name     string  `json:"name,omitempty" bson:"name,omitempty"`
	Parent   string  `json:"parent,omitempty" bson:"parent,omitempty"`
	ReadOnly bool    `json:"read_only,omitempty" bson:"read_only,omitempty"`
	Groups   []Group `json:"groups,omitempty" bson:"groups,omitempty"`
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks snapshot integrity: unique keys, endpoints owned by known
// components, and layer parents that exist. Dangling dependency endpoints
// are legal (a component may be deleted after an edge was recorded); they
// are dropped when the snapshot is indexed into a Graph.
func (s *Snapshot) Validate() error {
	seen := make(map[string]struct{}, len(s.Components)+len(s.Endpoints))

	for _, c := range s.Components {
		if err := errors.ValidateKey(c.Key); err != nil {
			return err
		}
		if _, dup := seen[c.Key]; dup {
			return errors.New(errors.ErrCodeInvalidSnapshot, "duplicate key %q", c.Key)
		}
		seen[c.Key] = struct{}{}
	}

	for _, e := range s.Endpoints {
		if err := errors.ValidateKey(e.Key); err != nil {
			return err
		}
		if _, dup := seen[e.Key]; dup {
			return errors.New(errors.ErrCodeInvalidSnapshot, "duplicate key %q", e.Key)
		}
		if _, ok := seen[e.Component]; !ok {
			return errors.New(errors.ErrCodeInvalidSnapshot, "endpoint %q owned by unknown component %q", e.Key, e.Component)
		}
		seen[e.Key] = struct{}{}
	}

	layerKeys := make(map[string]struct{}, len(s.Layers))
	for _, l := range s.Layers {
		if err := errors.ValidateKey(l.Key); err != nil {
			return err
		}
		if _, dup := layerKeys[l.Key]; dup {
			return errors.New(errors.ErrCodeInvalidSnapshot, "duplicate layer key %q", l.Key)
		}
		layerKeys[l.Key] = struct{}{}
	}
	for _, l := range s.Layers {
		if l.Parent == "" {
			continue
		}
		if _, ok := layerKeys[l.Parent]; !ok {
			return errors.New(errors.ErrCodeInvalidSnapshot, "layer %q has unknown parent %q", l.Key, l.Parent)
		}
	}

	return nil
}

// Normalize sorts components, endpoints, dependencies and layers by key so
// two equivalent snapshots marshal identically.
func (s *Snapshot) Normalize() {
	slices.SortFunc(s.Components, func(a, b Component) int { return compareKeys(a.Key, b.Key) })
	slices.SortFunc(s.Endpoints, func(a, b Endpoint) int { return compareKeys(a.Key, b.Key) })
	slices.SortFunc(s.Dependencies, func(a, b Dependency) int {
		if c := compareKeys(a.Source, b.Source); c != 0 {
			return c
		}
		if c := compareKeys(a.Target, b.Target); c != 0 {
			return c
		}
		return compareKeys(a.Type, b.Type)
	})
	slices.SortFunc(s.Layers, func(a, b Layer) int { return compareKeys(a.Key, b.Key) })
	for i := range s.Layers {
		slices.SortFunc(s.Layers[i].Groups, func(a, b Group) int { return compareKeys(a.Key, b.Key) })
		for j := range s.Layers[i].Groups {
			slices.Sort(s.Layers[i].Groups[j].Members)
		}
	}
}

func compareKeys(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// UnmarshalSnapshot deserializes JSON bytes into a Snapshot.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
