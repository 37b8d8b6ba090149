package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/lukapolovic/moviesearch/pkg/metrics"
	"github.com/lukapolovic/moviesearch/pkg/router"
)

// RouterServer serves the load-balancing front over the coordinators.
type RouterServer struct {
	config    *Config
	rt        *router.Router
	collector *metrics.Collector
	logger    zerolog.Logger
}

// NewRouterServer creates the HTTP surface over a router.
func NewRouterServer(config *Config, rt *router.Router, logger zerolog.Logger) *RouterServer {
	if config == nil {
		config = DefaultConfig()
	}
	return &RouterServer{
		config:    config,
		rt:        rt,
		collector: metrics.NewCollector(),
		logger:    logger.With().Str("component", "router-server").Logger(),
	}
}

// Start runs the coordinator probe loop and serves until shutdown.
func (s *RouterServer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	probeDone := make(chan struct{})
	go func() {
		defer close(probeDone)
		s.rt.Run(ctx)
	}()

	r := newRouter(s.logger)
	r.Get("/search", s.handleSearch)
	r.Get("/ready", s.handleReady)
	r.Get("/health", s.handleHealth)
	r.Get("/_router/state", s.handleState)
	r.Get("/metrics", metricsHandler(s.collector))

	err := serve(ctx, s.config, r, s.logger)

	cancel()
	<-probeDone
	return err
}

// handleSearch validates like the coordinator and forwards, echoing the
// coordinator's response verbatim. Request ids pass through from the
// client or are minted here.
func (s *RouterServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	params, serr := parseSearchParams(r)
	if serr != nil {
		writeErrorEnvelope(w, http.StatusBadRequest, serr)
		return
	}

	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = newRequestID()
	}

	result, err := s.rt.Forward(r.Context(), params.q, params.page, params.pageSize, params.debug, requestID)
	if err != nil {
		if errors.Is(err, router.ErrNoCoordinators) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"error":  "No coordinators are ready",
			})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":     "unavailable",
			"error":      err.Error(),
			"request_id": requestID,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", requestID)
	w.Header().Set("X-Routed-To", result.RoutedTo)
	w.WriteHeader(result.StatusCode)
	w.Write(result.Body)
}

func (s *RouterServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.rt.AnyReady() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *RouterServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *RouterServer) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"coordinators": s.rt.State()})
}
