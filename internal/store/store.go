// Package store persists workspaces (a snapshot plus its references and
// statements) and caches evaluation verdicts.
//
// A workspace carries a monotonically increasing revision. Every mutation
// bumps it, which implicitly invalidates all cached verdicts for the
// workspace: verdict cache keys embed the revision, so stale entries can
// never be served.
package store

import (
	"context"
	"time"

	"vantage/pkg/graph"
	"vantage/pkg/refs"
	"vantage/pkg/statement"
)

// =============================================================================
// Workspace Model
// =============================================================================

// Workspace bundles a snapshot with the references and statements defined
// against it.
type Workspace struct {
	ID         string                `json:"id" bson:"_id"`
	Name       string                `json:"name" bson:"name"`
	Revision   int64                 `json:"revision" bson:"revision"`
	Snapshot   graph.Snapshot        `json:"snapshot" bson:"snapshot"`
	References []refs.Reference      `json:"references,omitempty" bson:"references,omitempty"`
	Statements []statement.Statement `json:"statements,omitempty" bson:"statements,omitempty"`
	CreatedAt  time.Time             `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at" bson:"updated_at"`
}

// ReferenceMap indexes the workspace references by name.
func (w *Workspace) ReferenceMap() map[string]refs.Reference {
	m := make(map[string]refs.Reference, len(w.References))
	for _, ref := range w.References {
		m[ref.Name] = ref
	}
	return m
}

// Rehydrate rebuilds the derived statement fields after loading from
// storage. Parsed expressions are not persisted, so every statement is
// reclassified against the current references.
func (w *Workspace) Rehydrate() {
	refMap := w.ReferenceMap()
	for i := range w.Statements {
		w.Statements[i].Reclassify(refMap)
	}
}

// Statement returns the statement with the given ID, if present.
func (w *Workspace) Statement(id string) (statement.Statement, bool) {
	for _, st := range w.Statements {
		if st.ID == id {
			return st, true
		}
	}
	return statement.Statement{}, false
}

// =============================================================================
// Store Interface
// =============================================================================

// Store is the persistence interface for workspaces.
//
// Update uses optimistic concurrency: the workspace's Revision must match
// the stored one, and the store bumps it on success. A mismatch returns a
// CONFLICT error.
type Store interface {
	Create(ctx context.Context, ws *Workspace) error
	Get(ctx context.Context, id string) (*Workspace, error)
	List(ctx context.Context) ([]Workspace, error)
	Update(ctx context.Context, ws *Workspace) error
	Delete(ctx context.Context, id string) error
}
