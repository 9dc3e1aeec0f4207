package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/drillbook/drillbook/internal/ai"
	"github.com/drillbook/drillbook/internal/assist"
	"github.com/drillbook/drillbook/internal/catalog"
	"github.com/drillbook/drillbook/internal/generate"
	"github.com/drillbook/drillbook/internal/progress"
	"github.com/drillbook/drillbook/internal/server"
	"github.com/drillbook/drillbook/internal/source"
)

const testToken = "drill-test-token"

func setupTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()

	termYAML := `
id: sem3
name: Semester 3
subjects:
  - code: EC3251
    name: Circuit Analysis
    units:
      - number: 1
        title: DC Circuit Analysis
        topics:
          - Kirchhoff's laws
          - Mesh current analysis
`
	refsYAML := `
EC3251:
  - title: Engineering Circuit Analysis
    author: Hayt and Kemmerly
    edition: 9th
`
	if err := os.WriteFile(filepath.Join(dir, "sem3.term.yaml"), []byte(termYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "references.yaml"), []byte(refsYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := catalog.New(dir)
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return cat
}

func newTestServer(t *testing.T, mock *ai.MockProvider) (*server.Server, *progress.MemoryStore) {
	t.Helper()
	cat := setupTestCatalog(t)

	router := ai.NewRouter()
	router.Register("mock", mock)
	gen := generate.New(router, generate.Config{})

	content := server.NewContentService(cat, gen, nil, 0, nil)
	engine := source.NewEngine(cat, catalog.NewTopicLookupInferrer(cat))
	exchanges := assist.NewMemoryExchangeStore()
	assistant := assist.NewEngine(engine, gen, exchanges, nil)
	store := progress.NewMemoryStore()

	hash, err := bcrypt.GenerateFromPassword([]byte(testToken), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	return server.New(server.Options{
		Catalog:   cat,
		Content:   content,
		Assistant: assistant,
		Store:     store,
		Exchanges: exchanges,
		TokenHash: string(hash),
	}), store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHierarchyEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, ai.NewMockProvider("unused"))
	mux := srv.Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/terms", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/terms status = %d", rec.Code)
	}
	var terms []catalog.TermSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &terms); err != nil {
		t.Fatal(err)
	}
	if len(terms) != 1 || terms[0].Term != "sem3" {
		t.Errorf("terms = %+v", terms)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/terms/sem3/subjects", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("subjects status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "EC3251") {
		t.Errorf("subjects body = %s", rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/subjects/EC3251/units", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("units status = %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/subjects/EC3251/units/1/topics", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("topics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Kirchhoff's laws") {
		t.Errorf("topics body = %s", rec.Body.String())
	}
}

func TestHierarchyEndpoints_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, ai.NewMockProvider("unused"))
	mux := srv.Routes()

	for _, path := range []string{
		"/api/terms/sem9/subjects",
		"/api/subjects/XX0000/units",
		"/api/subjects/EC3251/units/9/topics",
		"/api/subjects/EC3251/units/1/topics/9/content",
	} {
		rec := doJSON(t, mux, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rec.Code)
		}
	}
}

func TestContentEndpoint(t *testing.T) {
	raw := "[OVERVIEW]KCL and KVL.[EXPLANATION]Currents at a node sum to zero.[FORMULAS]**sum(I) = 0**[EXAMPLES]A two-loop circuit.[SUMMARY]Conservation laws."
	srv, _ := newTestServer(t, ai.NewMockProvider(raw))
	mux := srv.Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/subjects/EC3251/units/1/topics/0/content", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("content status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var content server.TopicContent
	if err := json.Unmarshal(rec.Body.Bytes(), &content); err != nil {
		t.Fatal(err)
	}
	if content.Topic != "Kirchhoff's laws" {
		t.Errorf("Topic = %q", content.Topic)
	}
	if content.Content != raw {
		t.Errorf("Content = %q, want raw generated text", content.Content)
	}
	if !strings.Contains(content.Sections["formulas"], "<formula>") {
		t.Errorf("formulas section = %q, want formula wrapper", content.Sections["formulas"])
	}
	if !strings.Contains(content.Sections["overview"], "KCL and KVL.") {
		t.Errorf("overview section = %q", content.Sections["overview"])
	}
}

func TestContentEndpoint_GenerationFailure(t *testing.T) {
	mock := ai.NewMockProvider("")
	mock.Err = &ai.APIError{Provider: "mock", Status: http.StatusBadRequest, Body: "bad request"}
	srv, _ := newTestServer(t, mock)
	mux := srv.Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/subjects/EC3251/units/1/topics/0/content", nil, "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("content status = %d, want 502", rec.Code)
	}
}

func TestProgressEndpoint(t *testing.T) {
	srv, store := newTestServer(t, ai.NewMockProvider("unused"))
	mux := srv.Routes()

	payload := map[string]any{"code": "EC3251", "unit": 1, "topic": 0}

	rec := doJSON(t, mux, http.MethodPost, "/api/progress", payload, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/progress", payload, "wrong-token")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/progress", payload, testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Idempotent at the record level.
	rec = doJSON(t, mux, http.MethodPost, "/api/progress", payload, testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat progress status = %d", rec.Code)
	}
	list, err := store.List(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("stored %d records, want 1", len(list))
	}
}

func TestProgressEndpoint_Malformed(t *testing.T) {
	srv, store := newTestServer(t, ai.NewMockProvider("unused"))
	mux := srv.Routes()

	for name, payload := range map[string]any{
		"missing unit":  map[string]any{"code": "EC3251", "topic": 0},
		"string unit":   map[string]any{"code": "EC3251", "unit": "one", "topic": 0},
		"extra field":   map[string]any{"code": "EC3251", "unit": 1, "topic": 0, "extra": true},
		"empty subject": map[string]any{"code": "", "unit": 1, "topic": 0},
	} {
		rec := doJSON(t, mux, http.MethodPost, "/api/progress", payload, testToken)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}

	rec := doJSON(t, mux, http.MethodPost, "/api/progress",
		map[string]any{"code": "EC3251", "unit": 9, "topic": 0}, testToken)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown unit status = %d, want 404", rec.Code)
	}

	list, err := store.List(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("rejected payloads changed state: %d records", len(list))
	}
}

func TestQueryEndpoint(t *testing.T) {
	raw := "[ANSWER]Thevenin reduces any linear network to one source and one resistor.[CITATIONS]1. Hayt[RESOURCES]none"
	srv, _ := newTestServer(t, ai.NewMockProvider(raw))
	mux := srv.Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/query", map[string]any{
		"topic":          "Thevenin theorem",
		"knowledgeLevel": "U",
		"subject":        "EC3251",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("query status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Message  string        `json:"message"`
		Response assist.Answer `json:"response"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.Response.Content, "Thevenin reduces") {
		t.Errorf("response content = %q", out.Response.Content)
	}
	if !out.Response.Metadata.AllowInternet {
		t.Error("AllowInternet = false, want true for knowledge level present")
	}
	if len(out.Response.Metadata.Citations) == 0 {
		t.Error("citations empty, want subject references")
	}
}

func TestQueryEndpoint_Malformed(t *testing.T) {
	srv, _ := newTestServer(t, ai.NewMockProvider("unused"))
	mux := srv.Routes()

	for name, payload := range map[string]any{
		"missing topic": map[string]any{"subject": "EC3251"},
		"bad level":     map[string]any{"topic": "x", "knowledgeLevel": "Z"},
		"extra field":   map[string]any{"topic": "x", "nope": 1},
	} {
		rec := doJSON(t, mux, http.MethodPost, "/api/query", payload, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestExchangesEndpoint(t *testing.T) {
	raw := "[ANSWER]A node is a junction of two or more elements.[CITATIONS]1. Hayt[RESOURCES]none"
	srv, _ := newTestServer(t, ai.NewMockProvider(raw))
	mux := srv.Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/exchanges", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/exchanges", nil, testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("exchanges status = %d", rec.Code)
	}
	var empty []assist.Exchange
	if err := json.Unmarshal(rec.Body.Bytes(), &empty); err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d exchanges before any query", len(empty))
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/query", map[string]any{
		"topic":   "Node definitions",
		"subject": "EC3251",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("query status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Exchange persistence runs in the background after the answer returns.
	var got []assist.Exchange
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec = doJSON(t, mux, http.MethodGet, "/api/exchanges", nil, testToken)
		if rec.Code != http.StatusOK {
			t.Fatalf("exchanges status = %d", rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if len(got) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(got) != 1 {
		t.Fatalf("got %d exchanges, want 1", len(got))
	}
	if got[0].Topic != "Node definitions" {
		t.Errorf("Topic = %q", got[0].Topic)
	}
	if !strings.Contains(got[0].Content, "junction") {
		t.Errorf("Content = %q", got[0].Content)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/exchanges?limit=zero", nil, testToken)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, ai.NewMockProvider("unused"))
	mux := srv.Routes()

	rec := doJSON(t, mux, http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodGet, "/readyz", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rec.Code)
	}
}

func TestProgressReport(t *testing.T) {
	srv, store := newTestServer(t, ai.NewMockProvider("unused"))
	mux := srv.Routes()

	if err := store.Add(t.Context(), progress.Record{SubjectCode: "EC3251", UnitNumber: 1, TopicIndex: 0}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/progress/report", nil, testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("report body empty")
	}
}
