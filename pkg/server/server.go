// Package server provides the HTTP surfaces for the three process roles:
// shard node, coordinator, and router.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lukapolovic/moviesearch/pkg/api"
	"github.com/lukapolovic/moviesearch/pkg/metrics"
)

// Config holds the HTTP listener configuration shared by all roles.
type Config struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// ShutdownGrace bounds how long in-flight requests may drain.
	ShutdownGrace time.Duration
}

// DefaultConfig returns the default listener configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:          "localhost",
		Port:          8080,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   60 * time.Second,
		ShutdownGrace: 10 * time.Second,
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// newRouter builds the chi router with the standard middleware stack.
func newRouter(logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(requestLogger(logger))
	r.Use(middleware.Timeout(60 * time.Second))
	return r
}

// requestLogger logs one line per request through the process logger.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t0 := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(t0)).
				Msg("request")
		})
	}
}

// serve runs the HTTP server until SIGINT/SIGTERM or ctx cancellation,
// then drains connections within the grace period.
func serve(ctx context.Context, config *Config, handler http.Handler, logger zerolog.Logger) error {
	httpSrv := &http.Server{
		Addr:         config.Addr(),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", config.Addr()).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeSearchError maps a domain error to the HTTP 400 error envelope.
// Unexpected errors fall back to SEARCH_ERROR with status 500.
func writeSearchError(w http.ResponseWriter, err error) {
	var se *api.SearchError
	if !errors.As(err, &se) {
		se = api.NewSearchError(err.Error())
		writeErrorEnvelope(w, http.StatusInternalServerError, se)
		return
	}
	writeErrorEnvelope(w, http.StatusBadRequest, se)
}

func writeErrorEnvelope(w http.ResponseWriter, status int, se *api.SearchError) {
	writeJSON(w, status, api.Envelope{
		Status: "error",
		Error: &api.APIError{
			Code:    se.Code,
			Message: se.Message,
			Details: se.Details,
		},
	})
}

// metricsHandler serves the Prometheus text exposition for a collector.
func metricsHandler(collector *metrics.Collector) http.HandlerFunc {
	exporter := metrics.NewPrometheusExporter(collector)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		if err := exporter.WriteMetrics(w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
