package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lukapolovic/moviesearch/pkg/api"
	"github.com/lukapolovic/moviesearch/pkg/cluster"
	"github.com/lukapolovic/moviesearch/pkg/metrics"
)

// CoordinatorServer serves the public search API over the fan-out
// coordinator, plus cluster readiness and the membership watch socket.
type CoordinatorServer struct {
	config      *Config
	coordinator *cluster.Coordinator
	collector   *metrics.Collector
	watch       *MembershipWatch
	logger      zerolog.Logger

	// EnableGraphQL mounts /graphql alongside the REST surface.
	EnableGraphQL bool
}

// NewCoordinatorServer creates the HTTP surface over a coordinator.
func NewCoordinatorServer(config *Config, coordinator *cluster.Coordinator, logger zerolog.Logger) *CoordinatorServer {
	if config == nil {
		config = DefaultConfig()
	}

	collector := metrics.NewCollector()
	coordinator.SetCollector(collector)

	return &CoordinatorServer{
		config:      config,
		coordinator: coordinator,
		collector:   collector,
		watch:       NewMembershipWatch(logger),
		logger:      logger.With().Str("component", "coordinator-server").Logger(),
	}
}

// Start runs the heartbeat loop and serves until shutdown. The heartbeat
// stops with the server: its context is cancelled and the goroutine
// drains before Start returns.
func (s *CoordinatorServer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hb := s.coordinator.NewHeartbeat(s.logger)
	hb.OnTick(s.watch.Broadcast)

	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		hb.Run(ctx)
	}()

	r := newRouter(s.logger)
	r.Get("/search", s.handleSearch)
	r.Get("/ready", s.handleReady)
	r.Get("/health", s.handleHealth)
	r.Get("/cluster/watch", s.watch.Handler)
	r.Get("/metrics", metricsHandler(s.collector))

	if s.EnableGraphQL {
		gqlHandler, err := newGraphQLHandler(s.coordinator)
		if err != nil {
			cancel()
			<-hbDone
			return err
		}
		r.Post("/graphql", gqlHandler.ServeHTTP)
	}

	err := serve(ctx, s.config, r, s.logger)

	cancel()
	<-hbDone
	s.watch.Close()
	return err
}

// searchParams are the validated query parameters of /search.
type searchParams struct {
	q        string
	page     int
	pageSize int
	debug    bool
}

// parseSearchParams validates the public query constraints: 2..100 chars
// of query, page at least 1, page size 1..50.
func parseSearchParams(r *http.Request) (searchParams, *api.SearchError) {
	p := searchParams{page: 1, pageSize: api.DefaultPageSize}

	p.q = r.URL.Query().Get("q")
	if n := len(p.q); n < api.QueryMinLen || n > api.QueryMaxLen {
		return p, api.ErrInvalidQuery(map[string]any{"q": p.q})
	}

	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, api.ErrInvalidQuery(map[string]any{"page": raw})
		}
		p.page = n
	}

	if raw := r.URL.Query().Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < api.PageSizeMin || n > api.PageSizeMax {
			return p, api.ErrInvalidQuery(map[string]any{"page_size": raw})
		}
		p.pageSize = n
	}

	p.debug = strings.EqualFold(r.URL.Query().Get("debug"), "true")
	return p, nil
}

func (s *CoordinatorServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	params, serr := parseSearchParams(r)
	if serr != nil {
		writeErrorEnvelope(w, http.StatusBadRequest, serr)
		return
	}

	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = newRequestID()
	}

	status, data, meta := s.coordinator.Search(
		r.Context(), params.q, params.page, params.pageSize, params.debug, requestID)

	writeJSON(w, http.StatusOK, api.Envelope{
		Status: status,
		Data:   data,
		Meta:   meta,
		Error:  nil,
	})
}

// handleReady relies on heartbeat state; it never probes shards inline.
func (s *CoordinatorServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ready, details := s.coordinator.Ready()
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"details": details,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *CoordinatorServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// newRequestID returns a short random hex id.
func newRequestID() string {
	var b [6]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
