package refs

import (
	"maps"

	"vantage/pkg/errors"
	"vantage/pkg/graph"
)

// =============================================================================
// Resolution Context
// =============================================================================

// Context bundles everything resolution needs: the indexed snapshot and the
// registered references. It is an explicit immutable value; there is no
// package-level registry. Build a fresh Context whenever the snapshot or
// the reference set changes.
type Context struct {
	Graph      *graph.Graph
	References map[string]Reference
}

// NewContext builds a resolution context. Later references with duplicate
// names shadow earlier ones.
func NewContext(g *graph.Graph, references []Reference) Context {
	byName := make(map[string]Reference, len(references))
	for _, r := range references {
		byName[r.Name] = r
	}
	return Context{Graph: g, References: byName}
}

// Lookup returns the reference registered under name.
func (c Context) Lookup(name string) (Reference, bool) {
	r, ok := c.References[name]
	return r, ok
}

// =============================================================================
// Resolution
// =============================================================================

// Resolve computes the entity set a reference selects against the context's
// snapshot. Membership is recomputed on every call; tags, layers and the
// graph are read as of now. The returned set is owned by the caller.
func Resolve(ctx Context, ref Reference) (map[string]struct{}, error) {
	d := ref.Definition
	switch {
	case d.TagExpression != "":
		expr, err := ParseTagExpr(d.TagExpression)
		if err != nil {
			return nil, err
		}
		result := make(map[string]struct{})
		for _, key := range ctx.Graph.EntityKeys() {
			if expr.Matches(ctx.Graph.TagsOf(key)) {
				result[key] = struct{}{}
			}
		}
		return result, nil

	case d.Layer != nil:
		if _, ok := ctx.Graph.Layer(d.Layer.Key); !ok {
			return nil, errors.New(errors.ErrCodeLayerNotFound, "layer %q not in snapshot", d.Layer.Key)
		}
		return ctx.Graph.LayerMembers(d.Layer.Key, d.Layer.IncludeDescendants), nil

	case d.ExplicitList != nil:
		// stale keys are dropped silently
		result := make(map[string]struct{}, len(d.ExplicitList))
		for _, key := range d.ExplicitList {
			if ctx.Graph.HasEntity(key) {
				result[key] = struct{}{}
			}
		}
		return result, nil
	}

	return nil, errors.New(errors.ErrCodeInvalidDefinition, "reference %q has an empty definition", ref.Name)
}

// ResolveName resolves the reference registered under name.
func ResolveName(ctx Context, name string) (map[string]struct{}, error) {
	ref, ok := ctx.Lookup(name)
	if !ok {
		return nil, errors.New(errors.ErrCodeReferenceNotFound, "reference %q is not registered", name)
	}
	return Resolve(ctx, ref)
}

// =============================================================================
// Memoization
// =============================================================================

// Memo caches resolutions for the duration of one evaluation sweep. The
// cache is valid only as long as the underlying context: discard the memo
// when tags, layers or the graph change. Memo is not safe for concurrent
// use; give each goroutine its own.
type Memo struct {
	ctx   Context
	cache map[string]map[string]struct{}
}

// NewMemo wraps a context in a single-sweep resolution cache.
func NewMemo(ctx Context) *Memo {
	return &Memo{ctx: ctx, cache: make(map[string]map[string]struct{})}
}

// Context returns the wrapped context.
func (m *Memo) Context() Context { return m.ctx }

// Resolve resolves a registered reference by name, caching the result.
// Callers get a copy; mutating it does not poison the cache.
func (m *Memo) Resolve(name string) (map[string]struct{}, error) {
	if cached, ok := m.cache[name]; ok {
		return maps.Clone(cached), nil
	}
	result, err := ResolveName(m.ctx, name)
	if err != nil {
		return nil, err
	}
	m.cache[name] = result
	return maps.Clone(result), nil
}
