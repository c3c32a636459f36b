// Package observability exports extraction attempts as Prometheus metrics
// and OpenTelemetry spans.
//
// Metrics and Tracing implement core.TelemetryHook, so they plug straight
// into core.WithTelemetry:
//
//	m := observability.NewMetrics(prometheus.NewRegistry())
//	tr := observability.NewTracing(tracerProvider)
//	client, err := core.NewClient(transport, core.WithTelemetry(observability.Multi(m, tr)))
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petal-labs/instructor/core"
)

// LLMBuckets spans typical completion latencies, 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Metrics collects per-attempt counters and latencies.
type Metrics struct {
	gatherer prometheus.Gatherer

	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
	inFlight prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// uses a fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "instructor_attempts_total",
				Help: "Extraction attempts by outcome",
			},
			[]string{"provider", "mode", "model", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "instructor_attempt_duration_seconds",
				Help:    "Transport round trip duration per attempt",
				Buckets: LLMBuckets,
			},
			[]string{"provider", "mode", "model"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "instructor_tokens_total",
				Help: "Tokens reported per attempt by direction",
			},
			[]string{"provider", "model", "direction"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "instructor_attempts_in_flight",
				Help: "Attempts currently waiting on the transport",
			},
		),
	}
	reg.MustRegister(m.attempts, m.latency, m.tokens, m.inFlight)
	return m
}

// OnAttemptStart implements core.TelemetryHook.
func (m *Metrics) OnAttemptStart(core.AttemptStartEvent) {
	m.inFlight.Inc()
}

// OnAttemptEnd implements core.TelemetryHook.
func (m *Metrics) OnAttemptEnd(e core.AttemptEndEvent) {
	m.inFlight.Dec()

	provider, mode, model := e.Provider.String(), e.Mode.String(), string(e.Model)
	m.attempts.WithLabelValues(provider, mode, model, string(e.Outcome)).Inc()
	m.latency.WithLabelValues(provider, mode, model).Observe(e.Duration().Seconds())

	if e.Usage != nil {
		m.tokens.WithLabelValues(provider, model, "input").Add(float64(e.Usage.PromptTokens))
		m.tokens.WithLabelValues(provider, model, "output").Add(float64(e.Usage.CompletionTokens))
	}
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics to path for the node exporter
// textfile collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.gatherer)
}

var _ core.TelemetryHook = (*Metrics)(nil)
