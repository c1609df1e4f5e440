package server

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vantage/internal/store"
	"vantage/pkg/errors"
	"vantage/pkg/graph"
	"vantage/pkg/graph/algo"
	"vantage/pkg/refs"
	"vantage/pkg/statement"
	"vantage/pkg/statement/eval"
)

// =============================================================================
// Workspace CRUD
// =============================================================================

// statementInput carries a statement over the wire. The server assigns IDs
// and derives classification; clients only send text.
type statementInput struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

type workspaceRequest struct {
	Name       string           `json:"name"`
	Revision   int64            `json:"revision,omitempty"`
	Snapshot   graph.Snapshot   `json:"snapshot"`
	References []refs.Reference `json:"references,omitempty"`
	Statements []statementInput `json:"statements,omitempty"`
}

// buildWorkspace validates the request parts and assembles a workspace.
func buildWorkspace(req workspaceRequest) (*store.Workspace, error) {
	if req.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "workspace name is required")
	}
	if err := req.Snapshot.Validate(); err != nil {
		return nil, err
	}
	for _, ref := range req.References {
		if err := ref.Validate(); err != nil {
			return nil, err
		}
	}

	ws := &store.Workspace{
		Name:       req.Name,
		Revision:   req.Revision,
		Snapshot:   req.Snapshot,
		References: req.References,
	}
	refMap := ws.ReferenceMap()
	for _, in := range req.Statements {
		st := statement.New(in.Text, refMap)
		if in.ID != "" {
			st.ID = in.ID
		}
		ws.Statements = append(ws.Statements, st)
	}
	return ws, nil
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ws, err := buildWorkspace(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ws.ID = uuid.NewString()
	if err := s.store.Create(r.Context(), ws); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	ws.Rehydrate()
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleUpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ws, err := buildWorkspace(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ws.ID = chi.URLParam(r, "id")
	if err := s.store.Update(r.Context(), ws); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Resolution and Parsing
// =============================================================================

type resolveRequest struct {
	WorkspaceID string           `json:"workspace_id,omitempty"`
	Snapshot    *graph.Snapshot  `json:"snapshot,omitempty"`
	References  []refs.Reference `json:"references,omitempty"`
	// Name resolves a registered reference; Definition resolves an ad-hoc
	// natural-language definition. Exactly one must be set.
	Name       string `json:"name,omitempty"`
	Definition string `json:"definition,omitempty"`
}

type resolveResponse struct {
	Members []string `json:"members"`
}

// resolutionContext builds a refs.Context from either a stored workspace
// or an inline snapshot.
func (s *Server) resolutionContext(r *http.Request, workspaceID string, snapshot *graph.Snapshot, references []refs.Reference) (refs.Context, error) {
	if workspaceID != "" {
		ws, err := s.store.Get(r.Context(), workspaceID)
		if err != nil {
			return refs.Context{}, err
		}
		g, err := graph.New(ws.Snapshot)
		if err != nil {
			return refs.Context{}, err
		}
		return refs.NewContext(g, ws.References), nil
	}
	if snapshot == nil {
		return refs.Context{}, errors.New(errors.ErrCodeInvalidInput, "workspace_id or snapshot is required")
	}
	g, err := graph.New(*snapshot)
	if err != nil {
		return refs.Context{}, err
	}
	return refs.NewContext(g, references), nil
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if (req.Name == "") == (req.Definition == "") {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "exactly one of name or definition must be set"))
		return
	}

	ctx, err := s.resolutionContext(r, req.WorkspaceID, req.Snapshot, req.References)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var members map[string]struct{}
	if req.Name != "" {
		members, err = refs.ResolveName(ctx, req.Name)
	} else {
		var def refs.Definition
		def, err = refs.ParseDefinition(req.Definition)
		if err == nil {
			members, err = refs.Resolve(ctx, refs.Reference{Name: "adhoc", Definition: def})
		}
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := resolveResponse{Members: sortedKeys(members)}
	writeJSON(w, http.StatusOK, resp)
}

type parseRequest struct {
	WorkspaceID string           `json:"workspace_id,omitempty"`
	References  []refs.Reference `json:"references,omitempty"`
	Text        string           `json:"text"`
}

type parseResponse struct {
	statement.ParseResult
	Canonical string `json:"canonical,omitempty"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	references := req.References
	if req.WorkspaceID != "" {
		ws, err := s.store.Get(r.Context(), req.WorkspaceID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		references = ws.References
	}

	refMap := make(map[string]refs.Reference, len(references))
	for _, ref := range references {
		refMap[ref.Name] = ref
	}

	resp := parseResponse{ParseResult: statement.Parse(req.Text, refMap)}
	if resp.Expr != nil {
		resp.Canonical = statement.Render(resp.Expr, resp.Modifier)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Evaluation
// =============================================================================

type evaluateRequest struct {
	WorkspaceID  string   `json:"workspace_id"`
	StatementIDs []string `json:"statement_ids,omitempty"`
}

type evaluateResponse struct {
	WorkspaceID string        `json:"workspace_id"`
	Revision    int64         `json:"revision"`
	Results     []eval.Result `json:"results"`
}

// handleEvaluate evaluates a workspace's statements, serving verdicts from
// the cache where the (workspace, revision, statement) key still matches.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.WorkspaceID == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "workspace_id is required"))
		return
	}

	ws, err := s.store.Get(r.Context(), req.WorkspaceID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ws.Rehydrate()

	stmts := ws.Statements
	if len(req.StatementIDs) > 0 {
		stmts = stmts[:0:0]
		for _, id := range req.StatementIDs {
			st, ok := ws.Statement(id)
			if !ok {
				s.writeError(w, errors.New(errors.ErrCodeStatementNotFound, "statement %q not in workspace", id))
				return
			}
			stmts = append(stmts, st)
		}
	}

	g, err := graph.New(ws.Snapshot)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ctx := refs.NewContext(g, ws.References)

	results := make([]eval.Result, len(stmts))
	memo := refs.NewMemo(ctx)
	for i, st := range stmts {
		if s.cache != nil {
			if cached, ok, err := s.cache.Get(r.Context(), ws.ID, ws.Revision, st.ID); err == nil && ok {
				results[i] = cached
				continue
			}
		}
		results[i] = eval.Evaluate(memo, st)
		if s.cache != nil {
			if err := s.cache.Put(r.Context(), ws.ID, ws.Revision, results[i]); err != nil {
				s.logger.Warn("verdict cache write failed", "err", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, evaluateResponse{
		WorkspaceID: ws.ID,
		Revision:    ws.Revision,
		Results:     results,
	})
}

// =============================================================================
// Graph Analysis
// =============================================================================

// workspaceGraph loads a workspace by route param and builds its graph.
func (s *Server) workspaceGraph(r *http.Request) (*graph.Graph, error) {
	ws, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	return graph.New(ws.Snapshot)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	g, err := s.workspaceGraph(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, algo.Metrics(g, edgeTypes(r)))
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	g, err := s.workspaceGraph(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, algo.StronglyConnected(g, edgeTypes(r)))
}

func (s *Server) handleCommunities(w http.ResponseWriter, r *http.Request) {
	g, err := s.workspaceGraph(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	seed := algo.DefaultSeed
	if raw := r.URL.Query().Get("seed"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid seed %q", raw))
			return
		}
		seed = parsed
	}
	writeJSON(w, http.StatusOK, algo.Communities(g, seed, edgeTypes(r)))
}

func edgeTypes(r *http.Request) []string {
	types := r.URL.Query()["type"]
	if len(types) == 0 {
		return nil
	}
	return types
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
