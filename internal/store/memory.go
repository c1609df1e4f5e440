package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"vantage/pkg/errors"
	"vantage/pkg/graph"
)

// Memory is an in-process Store used by the CLI and in tests. It is safe
// for concurrent use.
type Memory struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{workspaces: make(map[string]*Workspace)}
}

func (m *Memory) Create(_ context.Context, ws *Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workspaces[ws.ID]; ok {
		return errors.New(errors.ErrCodeConflict, "workspace %q already exists", ws.ID)
	}
	now := time.Now().UTC()
	ws.Revision = 1
	ws.CreatedAt = now
	ws.UpdatedAt = now
	m.workspaces[ws.ID] = cloneWorkspace(ws)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ws, ok := m.workspaces[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeWorkspaceNotFound, "workspace %q not found", id)
	}
	return cloneWorkspace(ws), nil
}

func (m *Memory) List(_ context.Context) ([]Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Workspace, 0, len(m.workspaces))
	for _, ws := range m.workspaces {
		out = append(out, *cloneWorkspace(ws))
	}
	slices.SortFunc(out, func(a, b Workspace) int {
		if a.Name != b.Name {
			if a.Name < b.Name {
				return -1
			}
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (m *Memory) Update(_ context.Context, ws *Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.workspaces[ws.ID]
	if !ok {
		return errors.New(errors.ErrCodeWorkspaceNotFound, "workspace %q not found", ws.ID)
	}
	if stored.Revision != ws.Revision {
		return errors.New(errors.ErrCodeConflict,
			"workspace %q was modified concurrently (revision %d, expected %d)",
			ws.ID, stored.Revision, ws.Revision)
	}
	ws.Revision++
	ws.CreatedAt = stored.CreatedAt
	ws.UpdatedAt = time.Now().UTC()
	m.workspaces[ws.ID] = cloneWorkspace(ws)
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workspaces[id]; !ok {
		return errors.New(errors.ErrCodeWorkspaceNotFound, "workspace %q not found", id)
	}
	delete(m.workspaces, id)
	return nil
}

// cloneWorkspace deep-copies a workspace so callers and the store never
// share mutable slices.
func cloneWorkspace(w *Workspace) *Workspace {
	cp := *w
	cp.Snapshot = cloneSnapshot(w.Snapshot)
	cp.References = slices.Clone(w.References)
	cp.Statements = slices.Clone(w.Statements)
	for i := range cp.Statements {
		cp.Statements[i].UnresolvedNames = slices.Clone(w.Statements[i].UnresolvedNames)
	}
	return &cp
}

func cloneSnapshot(s graph.Snapshot) graph.Snapshot {
	cp := graph.Snapshot{
		Components:   slices.Clone(s.Components),
		Endpoints:    slices.Clone(s.Endpoints),
		Dependencies: slices.Clone(s.Dependencies),
		Layers:       slices.Clone(s.Layers),
	}
	for i := range cp.Components {
		cp.Components[i].Tags = slices.Clone(s.Components[i].Tags)
	}
	for i := range cp.Endpoints {
		cp.Endpoints[i].Tags = slices.Clone(s.Endpoints[i].Tags)
	}
	for i := range cp.Layers {
		cp.Layers[i].Groups = slices.Clone(s.Layers[i].Groups)
		for j := range cp.Layers[i].Groups {
			cp.Layers[i].Groups[j].Members = slices.Clone(s.Layers[i].Groups[j].Members)
		}
	}
	return cp
}
