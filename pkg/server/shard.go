package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/lukapolovic/moviesearch/pkg/api"
	"github.com/lukapolovic/moviesearch/pkg/metrics"
	"github.com/lukapolovic/moviesearch/pkg/shard"
)

// ShardServer serves one shard replica's internal API.
type ShardServer struct {
	config    *Config
	node      *shard.Node
	collector *metrics.Collector
	logger    zerolog.Logger
}

// NewShardServer creates the HTTP surface over a loaded (or loading)
// shard node.
func NewShardServer(config *Config, node *shard.Node, logger zerolog.Logger) *ShardServer {
	if config == nil {
		config = DefaultConfig()
	}
	return &ShardServer{
		config:    config,
		node:      node,
		collector: metrics.NewCollector(),
		logger:    logger.With().Str("component", "shard-server").Logger(),
	}
}

// Start serves until shutdown.
func (s *ShardServer) Start(ctx context.Context) error {
	r := newRouter(s.logger)

	r.Post("/internal/search", s.handleSearch)
	r.Get("/internal/ready", s.handleReady)
	r.Get("/internal/health", s.handleHealth)
	r.Get("/metrics", metricsHandler(s.collector))

	return serve(ctx, s.config, r, s.logger)
}

// handleSearch runs a local search. Debug is forced on: the coordinator
// needs scores to merge shard pages, whatever the client asked for.
func (s *ShardServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req api.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSearchError(w, api.ErrInvalidQuery(map[string]any{"body": err.Error()}))
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = api.DefaultPageSize
	}

	t0 := time.Now()

	var (
		resp *api.SearchResponse
		err  error
	)
	poolErr := s.node.Pool().Do(r.Context(), func() {
		resp, err = s.node.Search(req.Q, req.Page, req.PageSize, true)
	})

	s.collector.RecordQuery(time.Since(t0), poolErr == nil && err == nil)

	if poolErr != nil {
		writeSearchError(w, api.NewSearchError("query aborted: "+poolErr.Error()))
		return
	}
	if err != nil {
		writeSearchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *ShardServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.node.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *ShardServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.node.Health())
}
