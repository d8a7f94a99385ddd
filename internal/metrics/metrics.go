// Package metrics holds the Prometheus collectors the engine and its HTTP surface report to.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "soul"

// Metrics groups every collector. A nil *Metrics is valid and records nothing, so
// library callers and tests can skip instrumentation.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	Runs             *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	IngestOutcomes   *prometheus.CounterVec
	BackendRetries   *prometheus.CounterVec
	PromotableAxioms prometheus.Gauge
	Tensions         *prometheus.CounterVec
	OrphanRate       prometheus.Gauge
	PublishFailures  prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_runs_total",
			Help:      "Synthesis runs by cycle mode and outcome.",
		}, []string{"mode", "outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_run_duration_seconds",
			Help:      "Wall time of a synthesis run.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		IngestOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "principle_ingest_total",
			Help:      "Signal ingests by outcome (created, reinforced, merged, duplicate).",
		}, []string{"outcome"}),
		BackendRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_retries_total",
			Help:      "Retried similarity backend calls by operation.",
		}, []string{"operation"}),
		PromotableAxioms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "promotable_axioms",
			Help:      "Promotable axioms in the last saved corpus.",
		}),
		Tensions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tensions_detected_total",
			Help:      "Value tensions detected by severity.",
		}, []string{"severity"}),
		OrphanRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphan_signal_rate",
			Help:      "Share of signals held by principles below the evidence floor in the last run.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_publish_failures_total",
			Help:      "Run-completed events that could not be published.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.Runs,
		m.RunDuration,
		m.IngestOutcomes,
		m.BackendRetries,
		m.PromotableAxioms,
		m.Tensions,
		m.OrphanRate,
		m.PublishFailures,
	)
	return m
}

func (m *Metrics) ObserveHTTP(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) ObserveRun(mode, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(mode, outcome).Inc()
	m.RunDuration.Observe(seconds)
}

func (m *Metrics) IncIngest(outcome string) {
	if m == nil {
		return
	}
	m.IngestOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRetry(operation string) {
	if m == nil {
		return
	}
	m.BackendRetries.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncTension(severity string) {
	if m == nil {
		return
	}
	m.Tensions.WithLabelValues(severity).Inc()
}

func (m *Metrics) SetCorpusGauges(promotable int, orphanRate float64) {
	if m == nil {
		return
	}
	m.PromotableAxioms.Set(float64(promotable))
	m.OrphanRate.Set(orphanRate)
}

func (m *Metrics) IncPublishFailure() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
