package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// PrometheusExporter writes collector state in Prometheus text format.
// Format: https://prometheus.io/docs/instrumenting/exposition_formats/
type PrometheusExporter struct {
	collector *Collector
	namespace string
}

// NewPrometheusExporter creates an exporter over the collector.
func NewPrometheusExporter(collector *Collector) *PrometheusExporter {
	return &PrometheusExporter{
		collector: collector,
		namespace: "moviesearch",
	}
}

// SetNamespace overrides the metric name prefix.
func (pe *PrometheusExporter) SetNamespace(namespace string) {
	pe.namespace = namespace
}

// WriteMetrics writes all metrics to w.
func (pe *PrometheusExporter) WriteMetrics(w io.Writer) error {
	uptime := time.Since(pe.collector.startTime).Seconds()
	if err := pe.writeGauge(w, "uptime_seconds", "Process uptime in seconds", uptime); err != nil {
		return err
	}

	counters := []struct {
		name  string
		help  string
		value uint64
	}{
		{"queries_total", "Total search queries executed", atomic.LoadUint64(&pe.collector.queriesExecuted)},
		{"queries_failed_total", "Total failed search queries", atomic.LoadUint64(&pe.collector.queriesFailed)},
		{"query_duration_nanoseconds_total", "Total query execution time in nanoseconds", atomic.LoadUint64(&pe.collector.totalQueryTime)},
		{"fanout_attempts_total", "Total replica calls issued during fan-out", atomic.LoadUint64(&pe.collector.fanoutAttempts)},
		{"fanout_failovers_total", "Total replica attempts that failed over", atomic.LoadUint64(&pe.collector.fanoutFailovers)},
		{"shard_group_failures_total", "Total shard groups with all replicas failed", atomic.LoadUint64(&pe.collector.shardGroupFailures)},
		{"heartbeat_probes_total", "Total readiness probes issued", atomic.LoadUint64(&pe.collector.heartbeatProbes)},
		{"heartbeat_failures_total", "Total failed readiness probes", atomic.LoadUint64(&pe.collector.heartbeatFailures)},
		{"replica_status_transitions_total", "Total replica status changes", atomic.LoadUint64(&pe.collector.statusTransitions)},
	}
	for _, c := range counters {
		if err := pe.writeCounter(w, c.name, c.help, c.value); err != nil {
			return err
		}
	}

	if err := pe.writeHistogram(w, "query_duration_seconds", "Search query duration histogram", pe.collector.queryTimings); err != nil {
		return err
	}
	return pe.writePercentiles(w, "query_duration_seconds", pe.collector.queryTimings)
}

func (pe *PrometheusExporter) writeGauge(w io.Writer, name, help string, value float64) error {
	full := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n", full, help, full, full, value)
	return err
}

func (pe *PrometheusExporter) writeCounter(w io.Writer, name, help string, value uint64) error {
	full := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", full, help, full, full, value)
	return err
}

func (pe *PrometheusExporter) writeHistogram(w io.Writer, name, help string, h *TimingHistogram) error {
	full := pe.namespace + "_" + name
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", full, help, full); err != nil {
		return err
	}

	buckets := []struct {
		le    string
		count uint64
	}{
		{"0.001", atomic.LoadUint64(&h.bucket0To1ms)},
		{"0.01", atomic.LoadUint64(&h.bucket1To10ms)},
		{"0.1", atomic.LoadUint64(&h.bucket10To100ms)},
		{"1", atomic.LoadUint64(&h.bucket100To1000ms)},
		{"+Inf", atomic.LoadUint64(&h.bucketOver1s)},
	}

	cumulative := uint64(0)
	for _, b := range buckets {
		cumulative += b.count
		if _, err := fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", full, b.le, cumulative); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s_count %d\n", full, cumulative)
	return err
}

func (pe *PrometheusExporter) writePercentiles(w io.Writer, name string, h *TimingHistogram) error {
	full := pe.namespace + "_" + name
	for _, p := range []float64{50, 95, 99} {
		v := h.Percentile(p).Seconds()
		if _, err := fmt.Fprintf(w, "%s{quantile=\"0.%02.0f\"} %g\n", full, p, v); err != nil {
			return err
		}
	}
	return nil
}
