// Package metrics collects per-process counters and timings and exports
// them in Prometheus text format.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers search-path metrics. Counters are atomics; the timing
// reservoir takes a short mutex. One collector serves a whole process.
type Collector struct {
	// Query metrics
	queriesExecuted uint64
	queriesFailed   uint64
	totalQueryTime  uint64 // nanoseconds

	// Fan-out metrics (coordinator)
	fanoutAttempts     uint64
	fanoutFailovers    uint64
	shardGroupFailures uint64

	// Heartbeat metrics (coordinator)
	heartbeatProbes   uint64
	heartbeatFailures uint64
	statusTransitions uint64

	queryTimings *TimingHistogram

	startTime time.Time
}

// NewCollector creates a collector.
func NewCollector() *Collector {
	return &Collector{
		queryTimings: NewTimingHistogram(1000),
		startTime:    time.Now(),
	}
}

// RecordQuery records one search execution.
func (c *Collector) RecordQuery(duration time.Duration, success bool) {
	atomic.AddUint64(&c.queriesExecuted, 1)
	if !success {
		atomic.AddUint64(&c.queriesFailed, 1)
	}
	atomic.AddUint64(&c.totalQueryTime, uint64(duration.Nanoseconds()))
	c.queryTimings.Record(duration)
}

// RecordFanoutAttempt counts one replica call during fan-out.
func (c *Collector) RecordFanoutAttempt() {
	atomic.AddUint64(&c.fanoutAttempts, 1)
}

// RecordFanoutFailover counts one failed replica attempt that moved the
// request to the next replica.
func (c *Collector) RecordFanoutFailover() {
	atomic.AddUint64(&c.fanoutFailovers, 1)
}

// RecordShardGroupFailures counts shard groups whose replicas all failed
// for one request.
func (c *Collector) RecordShardGroupFailures(n int) {
	if n > 0 {
		atomic.AddUint64(&c.shardGroupFailures, uint64(n))
	}
}

// RecordHeartbeatProbe records one readiness probe.
func (c *Collector) RecordHeartbeatProbe(duration time.Duration, success bool) {
	atomic.AddUint64(&c.heartbeatProbes, 1)
	if !success {
		atomic.AddUint64(&c.heartbeatFailures, 1)
	}
}

// RecordStatusTransition counts one replica status change.
func (c *Collector) RecordStatusTransition() {
	atomic.AddUint64(&c.statusTransitions, 1)
}

// TimingHistogram buckets durations and keeps a bounded reservoir of
// recent samples for percentile estimates.
type TimingHistogram struct {
	bucket0To1ms      uint64
	bucket1To10ms     uint64
	bucket10To100ms   uint64
	bucket100To1000ms uint64
	bucketOver1s      uint64

	mu         sync.Mutex
	recent     []time.Duration
	maxRecent  int
	nextRecent int
}

// NewTimingHistogram creates a histogram keeping up to maxRecent samples.
func NewTimingHistogram(maxRecent int) *TimingHistogram {
	return &TimingHistogram{
		recent:    make([]time.Duration, 0, maxRecent),
		maxRecent: maxRecent,
	}
}

// Record adds one sample.
func (h *TimingHistogram) Record(d time.Duration) {
	switch {
	case d < time.Millisecond:
		atomic.AddUint64(&h.bucket0To1ms, 1)
	case d < 10*time.Millisecond:
		atomic.AddUint64(&h.bucket1To10ms, 1)
	case d < 100*time.Millisecond:
		atomic.AddUint64(&h.bucket10To100ms, 1)
	case d < time.Second:
		atomic.AddUint64(&h.bucket100To1000ms, 1)
	default:
		atomic.AddUint64(&h.bucketOver1s, 1)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.recent) < h.maxRecent {
		h.recent = append(h.recent, d)
		return
	}
	// Overwrite in a ring once full.
	h.recent[h.nextRecent] = d
	h.nextRecent = (h.nextRecent + 1) % h.maxRecent
}

// Percentile returns the p-th percentile (0-100) of recent samples, or 0
// with no samples.
func (h *TimingHistogram) Percentile(p float64) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.recent) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(h.recent))
	copy(sorted, h.recent)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)-1) * p / 100.0)
	return sorted[idx]
}
