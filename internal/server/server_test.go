package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"vantage/internal/config"
	"vantage/internal/store"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := New(config.Default().Server, store.NewMemory(), nil, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func createFixture(t *testing.T, ts *httptest.Server) store.Workspace {
	t.Helper()
	body := map[string]any{
		"name": "shop",
		"snapshot": map[string]any{
			"components": []map[string]any{
				{"key": "billing", "tags": []string{"payment"}},
				{"key": "checkout", "tags": []string{"payment"}},
				{"key": "search"},
			},
			"dependencies": []map[string]any{
				{"source": "checkout", "target": "billing"},
				{"source": "checkout", "target": "search"},
			},
		},
		"references": []map[string]any{
			{"name": "pay", "definition": map[string]any{"tag_expression": "payment"}},
		},
		"statements": []map[string]any{
			{"text": "there must be $$$pay$$$"},
			{"text": "the payment flow is tidy"},
		},
	}
	var ws store.Workspace
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/v1/workspaces", body, &ws); status != http.StatusCreated {
		t.Fatalf("create workspace: status %d", status)
	}
	return ws
}

func TestWorkspaceLifecycle(t *testing.T) {
	ts := testServer(t)
	ws := createFixture(t, ts)

	if ws.Revision != 1 {
		t.Errorf("Revision = %d, want 1", ws.Revision)
	}
	if len(ws.Statements) != 2 || ws.Statements[0].ID == "" {
		t.Fatalf("statements not assigned IDs: %+v", ws.Statements)
	}

	var got store.Workspace
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/v1/workspaces/"+ws.ID, nil, &got); status != http.StatusOK {
		t.Fatalf("get workspace: status %d", status)
	}
	if got.Name != "shop" {
		t.Errorf("Name = %q", got.Name)
	}

	if status := doJSON(t, http.MethodDelete, ts.URL+"/api/v1/workspaces/"+ws.ID, nil, nil); status != http.StatusNoContent {
		t.Errorf("delete: status %d", status)
	}
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/v1/workspaces/"+ws.ID, nil, nil); status != http.StatusNotFound {
		t.Errorf("get after delete: status %d", status)
	}
}

func TestUpdateConflict(t *testing.T) {
	ts := testServer(t)
	ws := createFixture(t, ts)

	update := map[string]any{
		"name":     "shop-v2",
		"revision": ws.Revision,
		"snapshot": map[string]any{"components": []map[string]any{{"key": "billing"}}},
	}
	if status := doJSON(t, http.MethodPut, ts.URL+"/api/v1/workspaces/"+ws.ID, update, nil); status != http.StatusOK {
		t.Fatalf("update: status %d", status)
	}
	// same revision again must now conflict
	if status := doJSON(t, http.MethodPut, ts.URL+"/api/v1/workspaces/"+ws.ID, update, nil); status != http.StatusConflict {
		t.Errorf("stale update: status %d, want 409", status)
	}
}

func TestResolveEndpoint(t *testing.T) {
	ts := testServer(t)
	ws := createFixture(t, ts)

	var resp struct {
		Members []string `json:"members"`
	}
	body := map[string]any{"workspace_id": ws.ID, "name": "pay"}
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/v1/references/resolve", body, &resp); status != http.StatusOK {
		t.Fatalf("resolve: status %d", status)
	}
	if fmt.Sprint(resp.Members) != "[billing checkout]" {
		t.Errorf("Members = %v", resp.Members)
	}

	body = map[string]any{"workspace_id": ws.ID, "definition": "components tagged with payment AND NOT checkout"}
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/v1/references/resolve", body, &resp); status != http.StatusOK {
		t.Fatalf("resolve definition: status %d", status)
	}

	body = map[string]any{"workspace_id": ws.ID, "name": "ghost"}
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/v1/references/resolve", body, nil); status != http.StatusNotFound {
		t.Errorf("unknown reference: status %d, want 404", status)
	}
}

func TestParseEndpoint(t *testing.T) {
	ts := testServer(t)
	ws := createFixture(t, ts)

	var resp struct {
		Classification string `json:"classification"`
		Type           string `json:"type"`
		Canonical      string `json:"canonical"`
	}
	body := map[string]any{"workspace_id": ws.ID, "text": "There should be at most 3 $$$pay$$$"}
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/v1/statements/parse", body, &resp); status != http.StatusOK {
		t.Fatalf("parse: status %d", status)
	}
	if resp.Classification != "formal" || resp.Type != "cardinality" {
		t.Errorf("got %s/%s", resp.Classification, resp.Type)
	}
	if resp.Canonical == "" {
		t.Error("formal parse should include canonical rendering")
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	ts := testServer(t)
	ws := createFixture(t, ts)

	var resp struct {
		Revision int64 `json:"revision"`
		Results  []struct {
			StatementID string `json:"statement_id"`
			Status      string `json:"status"`
		} `json:"results"`
	}
	body := map[string]any{"workspace_id": ws.ID}
	if status := doJSON(t, http.MethodPost, ts.URL+"/api/v1/statements/evaluate", body, &resp); status != http.StatusOK {
		t.Fatalf("evaluate: status %d", status)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].Status != "satisfied" {
		t.Errorf("formal statement: status %s", resp.Results[0].Status)
	}
	if resp.Results[1].Status != "not_evaluated" {
		t.Errorf("informal statement: status %s", resp.Results[1].Status)
	}
	if resp.Results[0].StatementID != ws.Statements[0].ID {
		t.Errorf("results not in statement order")
	}
}

func TestAnalysisEndpoints(t *testing.T) {
	ts := testServer(t)
	ws := createFixture(t, ts)

	var metrics map[string]struct {
		FanOut int `json:"fan_out"`
	}
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/v1/workspaces/"+ws.ID+"/metrics", nil, &metrics); status != http.StatusOK {
		t.Fatalf("metrics: status %d", status)
	}
	if metrics["checkout"].FanOut != 2 {
		t.Errorf("checkout fan_out = %d, want 2", metrics["checkout"].FanOut)
	}

	var sccs []struct {
		Members []string `json:"members"`
	}
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/v1/workspaces/"+ws.ID+"/cycles", nil, &sccs); status != http.StatusOK {
		t.Fatalf("cycles: status %d", status)
	}
	if len(sccs) != 3 {
		t.Errorf("acyclic graph should yield 3 singleton SCCs, got %d", len(sccs))
	}

	if status := doJSON(t, http.MethodGet, ts.URL+"/api/v1/workspaces/"+ws.ID+"/communities?seed=7", nil, nil); status != http.StatusOK {
		t.Errorf("communities: status %d", status)
	}
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/v1/workspaces/"+ws.ID+"/communities?seed=x", nil, nil); status != http.StatusBadRequest {
		t.Errorf("bad seed: status %d, want 400", status)
	}
}
