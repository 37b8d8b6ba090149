package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lukapolovic/moviesearch/pkg/api"
	"github.com/lukapolovic/moviesearch/pkg/document"
	"github.com/lukapolovic/moviesearch/pkg/shard"
)

func newTestShardServer(t *testing.T, build bool) *ShardServer {
	t.Helper()

	node := shard.NewNode(nil, zerolog.Nop())
	t.Cleanup(node.Close)
	if build {
		node.BuildFrom([]document.Document{
			{ID: 1, Title: "alien", Year: 1979, Rating: 8.5},
			{ID: 2, Title: "aliens", Year: 1986, Rating: 8.4},
		})
	}
	return NewShardServer(nil, node, zerolog.Nop())
}

func postSearch(t *testing.T, s *ShardServer, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/internal/search", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.handleSearch(w, req)
	return w
}

func TestShardSearchForcesScores(t *testing.T) {
	s := newTestShardServer(t, true)

	// The client did not ask for debug, but the internal surface always
	// returns scores for the coordinator merge.
	w := postSearch(t, s, `{"q": "alien", "page": 1, "page_size": 10, "debug": false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp api.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalHits != 2 {
		t.Errorf("TotalHits = %d, want 2", resp.TotalHits)
	}
	for _, r := range resp.Results {
		if r.Score == nil {
			t.Errorf("doc %d missing score on the internal surface", r.DocID)
		}
	}
}

func TestShardSearchNotReady(t *testing.T) {
	s := newTestShardServer(t, false)

	w := postSearch(t, s, `{"q": "alien", "page": 1, "page_size": 10}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var env api.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Status != "error" || env.Error == nil || env.Error.Code != api.CodeIndexNotReady {
		t.Errorf("envelope = %+v, want INDEX_NOT_READY", env)
	}
}

func TestShardSearchInvalidQuery(t *testing.T) {
	s := newTestShardServer(t, true)

	tests := []string{
		`{"q": "   ", "page": 1, "page_size": 10}`,
		`{"q": "alien", "page": -1, "page_size": 10}`,
		`not json`,
	}
	for _, body := range tests {
		w := postSearch(t, s, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
			continue
		}
		var env api.Envelope
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatal(err)
		}
		if env.Error == nil || env.Error.Code != api.CodeInvalidQuery {
			t.Errorf("body %q: envelope = %+v, want INVALID_QUERY", body, env)
		}
	}
}

func TestShardReadyEndpoint(t *testing.T) {
	notReady := newTestShardServer(t, false)
	w := httptest.NewRecorder()
	notReady.handleReady(w, httptest.NewRequest(http.MethodGet, "/internal/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 before build", w.Code)
	}

	ready := newTestShardServer(t, true)
	w = httptest.NewRecorder()
	ready.handleReady(w, httptest.NewRequest(http.MethodGet, "/internal/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 after build", w.Code)
	}
}

func TestShardHealthEndpoint(t *testing.T) {
	s := newTestShardServer(t, true)

	w := httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest(http.MethodGet, "/internal/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var health shard.Health
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.TotalDocuments != 2 || health.Status != "ok" {
		t.Errorf("health = %+v", health)
	}
	if health.VocabularySize == 0 {
		t.Error("vocabulary size missing")
	}
}
