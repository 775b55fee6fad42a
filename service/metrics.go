package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "leaseguard"

// Endpoint attempt outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeTransport = "transport_error"
	OutcomeShape     = "shape_error"
	OutcomeParse     = "parse_error"
)

// Metrics tracks remote endpoint attempts and analysis results.
//
// Metrics:
//   - leaseguard_endpoint_attempts_total: attempts per endpoint variant and outcome
//   - leaseguard_analyses_total: completed analyses by source (ai, keyword, failed)
//   - leaseguard_analysis_duration_seconds: end-to-end analysis latency by source
//   - leaseguard_truncations_total: contracts truncated before analysis
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	endpointAttempts *prometheus.CounterVec
	analyses         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	truncations      prometheus.Counter
}

// NewMetrics creates and registers analysis metrics with the provided registerer
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		endpointAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "endpoint_attempts_total",
				Help:      "Total number of remote analysis attempts by endpoint variant and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "analyses_total",
				Help:      "Total number of contract analyses by result source",
			},
			[]string{"source"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "analysis_duration_seconds",
				Help:      "Contract analysis latency in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
			},
			[]string{"source"},
		),
		truncations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "truncations_total",
				Help:      "Total number of contracts truncated before analysis",
			},
		),
	}

	registerer.MustRegister(m.endpointAttempts, m.analyses, m.duration, m.truncations)
	return m
}

// RecordEndpointAttempt counts one attempt against an endpoint variant
func (m *Metrics) RecordEndpointAttempt(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.endpointAttempts.WithLabelValues(endpoint, outcome).Inc()
}

// RecordAnalysis counts a finished analysis and observes its duration
func (m *Metrics) RecordAnalysis(source string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(source).Inc()
	m.duration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// RecordTruncation counts a truncated contract
func (m *Metrics) RecordTruncation() {
	if m == nil {
		return
	}
	m.truncations.Inc()
}
