package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/sovereign/pkg/config"
)

// RecordMetrics tracks the record store.
//
// Metrics:
//   - records_stored_total: records written by classification
//   - records_purged_total: records removed by retention
//   - access_decisions_total: read, write and delete outcomes
type RecordMetrics struct {
	storedTotal          *prometheus.CounterVec
	purgedTotal          prometheus.Counter
	accessDecisionsTotal *prometheus.CounterVec
}

// NewRecordMetrics creates and registers record metrics.
func NewRecordMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RecordMetrics {
	m := &RecordMetrics{
		storedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "records_stored_total",
				Help:      "Total number of records stored by classification",
			},
			[]string{"classification"},
		),
		purgedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "records_purged_total",
				Help:      "Total number of expired records purged",
			},
		),
		accessDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "access_decisions_total",
				Help:      "Total number of record access decisions by action and outcome",
			},
			[]string{"action", "outcome"},
		),
	}

	registry.MustRegister(m.storedTotal, m.purgedTotal, m.accessDecisionsTotal)
	return m
}

// RecordStored counts a stored record.
func (m *RecordMetrics) RecordStored(classification string) {
	m.storedTotal.WithLabelValues(classification).Inc()
}

// RecordPurged counts purged records.
func (m *RecordMetrics) RecordPurged(n int) {
	m.purgedTotal.Add(float64(n))
}

// RecordAccessDecision counts an access decision.
func (m *RecordMetrics) RecordAccessDecision(action, outcome string) {
	m.accessDecisionsTotal.WithLabelValues(action, outcome).Inc()
}
