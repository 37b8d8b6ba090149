// Package router load-balances public searches across coordinators:
// round-robin over the ready ones, with a single failover and a readiness
// probe loop mirroring the coordinator's heartbeat.
package router

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Probe and forwarding timeouts. Forwarding waits longer than probing:
// the coordinator's own fan-out needs room inside it.
const (
	HealthInterval = 1 * time.Second

	probeConnectTimeout  = 500 * time.Millisecond
	probeResponseTimeout = 700 * time.Millisecond

	forwardConnectTimeout  = 500 * time.Millisecond
	forwardResponseTimeout = 2 * time.Second
)

// CoordinatorState is the tracked state of one coordinator.
type CoordinatorState struct {
	Ready               bool      `json:"ready"`
	LastSeen            time.Time `json:"last_seen_ts"`
	LastRTTMS           float64   `json:"last_rtt_ms"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Inflight            int       `json:"inflight"`
	TotalRouted         int       `json:"total_routed"`
}

// ForwardResult carries a forwarded response back to the HTTP layer.
type ForwardResult struct {
	StatusCode int
	Body       []byte
	RoutedTo   string
}

// Router tracks coordinators and forwards searches to them.
type Router struct {
	coordinators []string

	mu      sync.Mutex
	states  map[string]*CoordinatorState
	rrIndex int

	probeClient   *http.Client
	forwardClient *http.Client
	logger        zerolog.Logger
}

// New creates a router over the given coordinator base URLs.
func New(coordinators []string, logger zerolog.Logger) (*Router, error) {
	if len(coordinators) == 0 {
		return nil, fmt.Errorf("no coordinators configured")
	}

	states := make(map[string]*CoordinatorState, len(coordinators))
	for _, c := range coordinators {
		states[c] = &CoordinatorState{}
	}

	return &Router{
		coordinators:  coordinators,
		states:        states,
		probeClient:   newClient(probeConnectTimeout, probeResponseTimeout),
		forwardClient: newClient(forwardConnectTimeout, forwardResponseTimeout),
		logger:        logger.With().Str("component", "router").Logger(),
	}, nil
}

func newClient(connect, response time.Duration) *http.Client {
	return &http.Client{
		Timeout: connect + response,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connect,
			}).DialContext,
			ResponseHeaderTimeout: response,
			MaxIdleConnsPerHost:   8,
		},
	}
}

// Run probes coordinator readiness until ctx is cancelled.
func (r *Router) Run(ctx context.Context) {
	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Router) tick(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	for _, base := range r.coordinators {
		base := base
		g.Go(func() error {
			ok, rttMS := r.probe(ctx, base)
			now := time.Now()

			r.mu.Lock()
			st := r.states[base]
			st.LastRTTMS = rttMS
			if ok {
				st.Ready = true
				st.LastSeen = now
				st.ConsecutiveFailures = 0
			} else {
				st.Ready = false
				st.ConsecutiveFailures++
			}
			r.mu.Unlock()
			return nil
		})
	}
	g.Wait()
}

func (r *Router) probe(ctx context.Context, base string) (bool, float64) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/ready", nil)
	if err != nil {
		return false, -1
	}

	t0 := time.Now()
	resp, err := r.probeClient.Do(req)
	rttMS := float64(time.Since(t0).Microseconds()) / 1000.0
	if err != nil {
		return false, -1
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, rttMS
}

// pick returns the next ready coordinator round-robin, or "" if none.
func (r *Router) pick() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ready []string
	for _, c := range r.coordinators {
		if r.states[c].Ready {
			ready = append(ready, c)
		}
	}
	if len(ready) == 0 {
		return ""
	}

	chosen := ready[r.rrIndex%len(ready)]
	r.rrIndex++
	return chosen
}

// candidates returns the primary pick plus at most one more ready
// coordinator as the failover.
func (r *Router) candidates() []string {
	first := r.pick()
	if first == "" {
		return nil
	}

	list := []string{first}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.coordinators {
		if c != first && r.states[c].Ready {
			list = append(list, c)
			break
		}
	}
	return list
}

// Forward routes one search to a ready coordinator, failing over once on
// transport error. A reachable coordinator's response is returned as-is,
// errors included; only transport failures move to the next candidate.
func (r *Router) Forward(ctx context.Context, q string, page, pageSize int, debug bool, requestID string) (*ForwardResult, error) {
	candidates := r.candidates()
	if len(candidates) == 0 {
		return nil, ErrNoCoordinators
	}

	var lastErr error
	for _, base := range candidates {
		r.mu.Lock()
		st := r.states[base]
		st.Inflight++
		st.TotalRouted++
		r.mu.Unlock()

		result, err := r.forwardOnce(ctx, base, q, page, pageSize, debug, requestID)

		r.mu.Lock()
		st.Inflight--
		if err != nil {
			// Mark unreachable immediately; the probe loop will bring
			// it back.
			st.Ready = false
			st.ConsecutiveFailures++
		}
		r.mu.Unlock()

		if err == nil {
			return result, nil
		}
		lastErr = err
		r.logger.Warn().Str("coordinator", base).Err(err).Msg("forward failed")
	}

	return nil, fmt.Errorf("%w: %v", ErrAllAttemptsFailed, lastErr)
}

func (r *Router) forwardOnce(ctx context.Context, base, q string, page, pageSize int, debug bool, requestID string) (*ForwardResult, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("debug", strconv.FormatBool(debug))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-Id", requestID)

	resp, err := r.forwardClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &ForwardResult{
		StatusCode: resp.StatusCode,
		Body:       body,
		RoutedTo:   base,
	}, nil
}

// State returns a snapshot of every coordinator's state, in configured
// order.
func (r *Router) State() []CoordinatorSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]CoordinatorSnapshot, 0, len(r.coordinators))
	for _, c := range r.coordinators {
		out = append(out, CoordinatorSnapshot{BaseURL: c, CoordinatorState: *r.states[c]})
	}
	return out
}

// AnyReady reports whether at least one coordinator is ready.
func (r *Router) AnyReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.coordinators {
		if r.states[c].Ready {
			return true
		}
	}
	return false
}

// CoordinatorSnapshot is one coordinator's state plus its base URL.
type CoordinatorSnapshot struct {
	BaseURL string `json:"base_url"`
	CoordinatorState
}
