// Package metrics provides Prometheus metrics for focusdeck.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dashboard service.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	StageTransitions *prometheus.CounterVec
	LockEvaluations  *prometheus.CounterVec
	ImportsTotal     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusdeck_requests_total",
				Help: "Total API requests by method and status.",
			},
			[]string{"method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "focusdeck_request_duration_seconds",
				Help:    "API request duration by method.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		StageTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusdeck_stage_transitions_total",
				Help: "Stage change attempts by requested stage and result.",
			},
			[]string{"stage", "result"},
		),
		LockEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusdeck_lock_evaluations_total",
				Help: "Execution lock computations by outcome.",
			},
			[]string{"outcome"},
		),
		ImportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusdeck_imports_total",
				Help: "Snapshot import attempts by result.",
			},
			[]string{"result"},
		),
		registry: reg,
	}

	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.RequestDuration)
	reg.MustRegister(m.StageTransitions)
	reg.MustRegister(m.LockEvaluations)
	reg.MustRegister(m.ImportsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments the request counter.
func (m *Metrics) RecordRequest(method, status string) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
}

// RecordStageTransition records a stage change attempt.
func (m *Metrics) RecordStageTransition(stage, result string) {
	m.StageTransitions.WithLabelValues(stage, result).Inc()
}

// RecordLockEvaluation records an execution lock computation.
func (m *Metrics) RecordLockEvaluation(outcome string) {
	m.LockEvaluations.WithLabelValues(outcome).Inc()
}

// RecordImport records a snapshot import attempt.
func (m *Metrics) RecordImport(result string) {
	m.ImportsTotal.WithLabelValues(result).Inc()
}
