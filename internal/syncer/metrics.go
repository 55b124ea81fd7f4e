package syncer

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Requirement outcomes.
const (
	OutcomeCreated = "created"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomePlanned = "planned" // dry run
)

// Document outcomes.
const (
	OutcomeChanged    = "changed"
	OutcomeUnchanged  = "unchanged"
	OutcomeUnreadable = "unreadable"
)

// Metrics holds the Prometheus collectors for one run. Each Metrics has its
// own registry so runs (and tests) never share counters.
//
// Metrics:
//   - featuresync_requirements_total{outcome} - requirements by outcome
//   - featuresync_documents_total{outcome} - documents by outcome
//   - featuresync_create_duration_seconds - tracker create latency
type Metrics struct {
	registry *prometheus.Registry

	RequirementsTotal *prometheus.CounterVec
	DocumentsTotal    *prometheus.CounterVec
	CreateDuration    prometheus.Histogram
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequirementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featuresync_requirements_total",
				Help: "Requirements processed, by outcome",
			},
			[]string{"outcome"},
		),
		DocumentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featuresync_documents_total",
				Help: "Feature files processed, by outcome",
			},
			[]string{"outcome"},
		),
		CreateDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "featuresync_create_duration_seconds",
				Help:    "Duration of tracker item creation in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
		),
	}
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequirement counts one requirement outcome.
func (m *Metrics) RecordRequirement(outcome string) {
	m.RequirementsTotal.WithLabelValues(outcome).Inc()
}

// RecordDocument counts one document outcome.
func (m *Metrics) RecordDocument(outcome string) {
	m.DocumentsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCreate records the duration of one create call.
func (m *Metrics) ObserveCreate(seconds float64) {
	m.CreateDuration.Observe(seconds)
}

// WriteTextfile writes the registry to path in the node-exporter textfile
// collector format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
