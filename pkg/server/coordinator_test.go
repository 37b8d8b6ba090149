package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lukapolovic/moviesearch/pkg/api"
	"github.com/lukapolovic/moviesearch/pkg/cluster"
)

func fakeShardBackend(t *testing.T) *httptest.Server {
	t.Helper()
	score := 2.0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/search":
			json.NewEncoder(w).Encode(api.SearchResponse{
				TotalHits: 1,
				Results: []api.SearchResult{{
					DocID: 1, Title: "alien", Year: "1979", Rating: "8.5", Score: &score,
				}},
			})
		case "/internal/ready":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestCoordinatorServer(t *testing.T) *CoordinatorServer {
	t.Helper()
	backend := fakeShardBackend(t)
	topology := cluster.Topology{0: {backend.URL}}
	coordinator := cluster.NewCoordinator(topology, zerolog.Nop())
	return NewCoordinatorServer(nil, coordinator, zerolog.Nop())
}

func TestCoordinatorSearchEnvelope(t *testing.T) {
	s := newTestCoordinatorServer(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=alien&page=1&page_size=10", nil)
	w := httptest.NewRecorder()
	s.handleSearch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var env struct {
		Status string             `json:"status"`
		Data   api.SearchResponse `json:"data"`
		Meta   api.Meta           `json:"meta"`
		Error  *api.APIError      `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}

	if env.Status != "ok" {
		t.Errorf("status = %q, want ok", env.Status)
	}
	if env.Error != nil {
		t.Errorf("error = %+v, want null", env.Error)
	}
	if env.Data.TotalHits != 1 || len(env.Data.Results) != 1 {
		t.Errorf("data = %+v", env.Data)
	}
	if env.Data.Results[0].Score != nil {
		t.Error("score echoed without debug")
	}
	if env.Meta.RequestID == "" {
		t.Error("request id missing")
	}
	if len(env.Meta.Shards) != 1 || !env.Meta.Shards[0].OK {
		t.Errorf("meta.Shards = %+v", env.Meta.Shards)
	}
}

func TestCoordinatorSearchDebugEchoesScores(t *testing.T) {
	s := newTestCoordinatorServer(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=alien&debug=true", nil)
	w := httptest.NewRecorder()
	s.handleSearch(w, req)

	var env struct {
		Data api.SearchResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if len(env.Data.Results) != 1 || env.Data.Results[0].Score == nil {
		t.Errorf("debug response lost scores: %+v", env.Data.Results)
	}
}

func TestCoordinatorSearchValidation(t *testing.T) {
	s := newTestCoordinatorServer(t)

	tests := []string{
		"/search",                               // missing q
		"/search?q=a",                           // too short
		"/search?q=" + strings.Repeat("x", 101), // too long
		"/search?q=alien&page=0",
		"/search?q=alien&page=abc",
		"/search?q=alien&page_size=0",
		"/search?q=alien&page_size=51",
	}
	for _, target := range tests {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		s.handleSearch(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
			continue
		}
		var env api.Envelope
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatal(err)
		}
		if env.Error == nil || env.Error.Code != api.CodeInvalidQuery {
			t.Errorf("%s: envelope = %+v, want INVALID_QUERY", target, env)
		}
	}
}

func TestCoordinatorRequestIDPassThrough(t *testing.T) {
	s := newTestCoordinatorServer(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=alien", nil)
	req.Header.Set("X-Request-Id", "client-id-1")
	w := httptest.NewRecorder()
	s.handleSearch(w, req)

	var env struct {
		Meta api.Meta `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Meta.RequestID != "client-id-1" {
		t.Errorf("request id = %q, want pass-through", env.Meta.RequestID)
	}
}

func TestCoordinatorReadyEndpoint(t *testing.T) {
	s := newTestCoordinatorServer(t)

	// No heartbeat has run: 503.
	w := httptest.NewRecorder()
	s.handleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 before probes", w.Code)
	}

	// Mark the only replica up; readiness follows membership.
	for base := range s.coordinator.Membership().SnapshotAll() {
		s.coordinator.Membership().MarkSuccess(base, 1.0, time.Now())
	}
	w = httptest.NewRecorder()
	s.handleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with ready replica", w.Code)
	}
}

func TestCoordinatorHealthAlwaysOK(t *testing.T) {
	s := newTestCoordinatorServer(t)

	w := httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestGraphQLSearch(t *testing.T) {
	backend := fakeShardBackend(t)
	topology := cluster.Topology{0: {backend.URL}}
	coordinator := cluster.NewCoordinator(topology, zerolog.Nop())

	handler, err := newGraphQLHandler(coordinator)
	if err != nil {
		t.Fatalf("newGraphQLHandler() error: %v", err)
	}

	body := `{"query": "{ search(q: \"alien\") { status totalHits results { docId title } } }"}`
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Search struct {
				Status    string `json:"status"`
				TotalHits int    `json:"totalHits"`
				Results   []struct {
					DocID int    `json:"docId"`
					Title string `json:"title"`
				} `json:"results"`
			} `json:"search"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Errors) != 0 {
		t.Fatalf("graphql errors: %v", resp.Errors)
	}
	if resp.Data.Search.Status != "ok" || resp.Data.Search.TotalHits != 1 {
		t.Errorf("search = %+v", resp.Data.Search)
	}
	if len(resp.Data.Search.Results) != 1 || resp.Data.Search.Results[0].Title != "alien" {
		t.Errorf("results = %+v", resp.Data.Search.Results)
	}
}
