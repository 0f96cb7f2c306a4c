// Package telemetry records dispatch metrics behind a small interface so the
// pipeline never depends on a concrete exporter. The default recorder is a
// no-op; a prometheus-backed implementation is provided for servers that
// want scrapeable counters and histograms.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records per-invocation telemetry. Implementations must be safe
// for concurrent use.
type Metrics interface {
	// RecordInvocation records one dispatch: the entity kind ("tool",
	// "resource", "prompt"), its name, wall duration and outcome.
	RecordInvocation(kind, name string, d time.Duration, success bool)
	// RecordHook records one hook execution.
	RecordHook(tool, phase string, success bool)
}

// NewNoop returns a Metrics that discards everything.
func NewNoop() Metrics { return noop{} }

type noop struct{}

func (noop) RecordInvocation(string, string, time.Duration, bool) {}
func (noop) RecordHook(string, string, bool)                      {}

// PrometheusMetrics implements Metrics with prometheus counters and
// histograms.
type PrometheusMetrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	hooks       *prometheus.CounterVec
}

// NewPrometheus constructs and registers the collectors on reg. Passing
// prometheus.DefaultRegisterer is the common case.
func NewPrometheus(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fastmcp_invocations_total",
			Help: "Dispatches by kind, name and outcome.",
		}, []string{"kind", "name", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fastmcp_invocation_duration_seconds",
			Help:    "Dispatch duration by kind and name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "name"}),
		hooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fastmcp_hook_executions_total",
			Help: "Hook executions by tool, phase and outcome.",
		}, []string{"tool", "phase", "outcome"}),
	}
	for _, c := range []prometheus.Collector{m.invocations, m.duration, m.hooks} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) RecordInvocation(kind, name string, d time.Duration, success bool) {
	m.invocations.WithLabelValues(kind, name, outcome(success)).Inc()
	m.duration.WithLabelValues(kind, name).Observe(d.Seconds())
}

func (m *PrometheusMetrics) RecordHook(tool, phase string, success bool) {
	m.hooks.WithLabelValues(tool, phase, outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
