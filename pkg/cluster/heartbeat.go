package cluster

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lukapolovic/moviesearch/pkg/metrics"
)

// Heartbeat timing. Probes use tighter timeouts than queries: a readiness
// check that takes longer than 600ms is as good as a failure.
const (
	HeartbeatInterval    = 1 * time.Second
	probeConnectTimeout  = 200 * time.Millisecond
	probeResponseTimeout = 600 * time.Millisecond
	readyEndpoint        = "/internal/ready"
)

// Heartbeat periodically probes every replica's readiness endpoint and
// feeds the membership table. Probes within a tick run concurrently;
// state updates apply serially as probes complete.
type Heartbeat struct {
	membership *Membership
	topology   Topology
	interval   time.Duration
	client     *http.Client
	logger     zerolog.Logger
	collector  *metrics.Collector

	// onTick, when set, receives a membership snapshot after every
	// round of probes. The coordinator's watch socket hangs off this.
	onTick func(map[string]ReplicaState)
}

// NewHeartbeat creates a heartbeat for the given topology writing into
// membership.
func NewHeartbeat(membership *Membership, topology Topology, logger zerolog.Logger) *Heartbeat {
	return &Heartbeat{
		membership: membership,
		topology:   topology,
		interval:   HeartbeatInterval,
		client: &http.Client{
			Timeout: probeConnectTimeout + probeResponseTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: probeConnectTimeout,
				}).DialContext,
				ResponseHeaderTimeout: probeResponseTimeout,
				MaxIdleConnsPerHost:   4,
			},
		},
		logger: logger.With().Str("component", "heartbeat").Logger(),
	}
}

// SetInterval overrides the probe interval; tests shorten it.
func (h *Heartbeat) SetInterval(d time.Duration) {
	h.interval = d
}

// SetCollector wires probe metrics.
func (h *Heartbeat) SetCollector(c *metrics.Collector) {
	h.collector = c
}

// OnTick registers a callback invoked with a membership snapshot after
// each probe round.
func (h *Heartbeat) OnTick(fn func(map[string]ReplicaState)) {
	h.onTick = fn
}

// Run probes until ctx is cancelled. It is safe to shut down mid-tick:
// outstanding probes are abandoned with the context.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	// Probe immediately; waiting a full interval on startup only delays
	// readiness.
	h.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug().Msg("heartbeat stopped")
			return
		case <-ticker.C:
			h.tick(ctx)
		}
	}
}

func (h *Heartbeat) tick(ctx context.Context) {
	h.membership.Ensure(h.topology.Replicas()...)

	g, ctx := errgroup.WithContext(ctx)
	for _, base := range h.topology.Replicas() {
		base := base
		g.Go(func() error {
			h.probe(ctx, base)
			return nil
		})
	}
	g.Wait()

	if h.onTick != nil {
		h.onTick(h.membership.SnapshotAll())
	}
}

func (h *Heartbeat) probe(ctx context.Context, base string) {
	prev := h.membership.StatusOf(base)

	t0 := time.Now()
	ok, rttMS, err := h.probeOnce(ctx, base)
	now := time.Now()

	if h.collector != nil {
		h.collector.RecordHeartbeatProbe(now.Sub(t0), ok)
	}

	if ok {
		h.membership.MarkSuccess(base, rttMS, now)
	} else {
		h.membership.MarkFailure(base, rttMS)
	}

	if next := h.membership.StatusOf(base); next != prev {
		if h.collector != nil {
			h.collector.RecordStatusTransition()
		}
		event := h.logger.Info().
			Str("replica", base).
			Str("from", string(prev)).
			Str("to", string(next))
		if err != nil {
			event = event.Str("error", err.Error())
		}
		event.Msg("replica status changed")
	}
}

// probeOnce returns whether the replica answered 200, plus the round-trip
// time in milliseconds. Transport failures return rtt -1.
func (h *Heartbeat) probeOnce(ctx context.Context, base string) (bool, float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+readyEndpoint, nil)
	if err != nil {
		return false, -1, err
	}

	t0 := time.Now()
	resp, err := h.client.Do(req)
	rttMS := float64(time.Since(t0).Microseconds()) / 1000.0
	if err != nil {
		return false, -1, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, rttMS, nil
}
