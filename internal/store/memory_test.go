package store

import (
	"context"
	"testing"

	"vantage/pkg/errors"
	"vantage/pkg/graph"
	"vantage/pkg/refs"
	"vantage/pkg/statement"
)

func testWorkspace(t *testing.T) *Workspace {
	t.Helper()
	return &Workspace{
		ID:   "ws-1",
		Name: "payments",
		Snapshot: graph.Snapshot{
			Components: []graph.Component{
				{Key: "billing", Tags: []string{"payment"}},
				{Key: "checkout"},
			},
			Dependencies: []graph.Dependency{{Source: "checkout", Target: "billing"}},
		},
		References: []refs.Reference{
			{Name: "P", Definition: refs.Definition{TagExpression: "payment"}},
		},
	}
}

func TestMemoryCreateGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ws := testWorkspace(t)

	if err := m.Create(ctx, ws); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ws.Revision != 1 {
		t.Errorf("Revision = %d, want 1", ws.Revision)
	}

	got, err := m.Get(ctx, "ws-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "payments" || got.Revision != 1 {
		t.Errorf("got %q rev %d", got.Name, got.Revision)
	}

	if err := m.Create(ctx, testWorkspace(t)); !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("duplicate Create error = %v, want CONFLICT", err)
	}
	if _, err := m.Get(ctx, "nope"); !errors.Is(err, errors.ErrCodeWorkspaceNotFound) {
		t.Errorf("Get missing error = %v, want WORKSPACE_NOT_FOUND", err)
	}
}

func TestMemoryUpdateBumpsRevision(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ws := testWorkspace(t)
	if err := m.Create(ctx, ws); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ws.Name = "payments-v2"
	if err := m.Update(ctx, ws); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ws.Revision != 2 {
		t.Errorf("Revision = %d, want 2", ws.Revision)
	}

	stale := testWorkspace(t)
	stale.Revision = 1
	if err := m.Update(ctx, stale); !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("stale Update error = %v, want CONFLICT", err)
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Create(ctx, testWorkspace(t)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, _ := m.Get(ctx, "ws-1")
	first.Snapshot.Components[0].Tags[0] = "mutated"
	first.Name = "mutated"

	second, _ := m.Get(ctx, "ws-1")
	if second.Name != "payments" {
		t.Errorf("store leaked a shared Workspace: name = %q", second.Name)
	}
	if second.Snapshot.Components[0].Tags[0] != "payment" {
		t.Errorf("store leaked shared snapshot slices: tag = %q", second.Snapshot.Components[0].Tags[0])
	}
}

func TestMemoryListAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := testWorkspace(t)
	b := testWorkspace(t)
	b.ID, b.Name = "ws-2", "analytics"
	if err := m.Create(ctx, a); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if err := m.Create(ctx, b); err != nil {
		t.Fatalf("Create b: %v", err)
	}

	list, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "analytics" || list[1].Name != "payments" {
		t.Errorf("List order wrong: %+v", list)
	}

	if err := m.Delete(ctx, "ws-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := m.Delete(ctx, "ws-1"); !errors.Is(err, errors.ErrCodeWorkspaceNotFound) {
		t.Errorf("second Delete error = %v, want WORKSPACE_NOT_FOUND", err)
	}
}

func TestWorkspaceRehydrate(t *testing.T) {
	ws := testWorkspace(t)
	ws.Statements = []statement.Statement{
		{ID: "s1", Text: "there must be $$P$$"},
	}

	ws.Rehydrate()

	st, ok := ws.Statement("s1")
	if !ok {
		t.Fatal("Statement(s1) not found")
	}
	if !st.IsFormal() {
		t.Errorf("statement should be formal after rehydrate, got %s", st.Classification)
	}
	if st.Expr == nil {
		t.Error("Expr not rebuilt")
	}
}

func TestVerdictKeyEmbedsRevision(t *testing.T) {
	k1 := verdictKey("ws-1", 1, "s1")
	k2 := verdictKey("ws-1", 2, "s1")
	if k1 == k2 {
		t.Error("verdict keys for different revisions must differ")
	}
}
