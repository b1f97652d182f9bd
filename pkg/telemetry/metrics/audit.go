package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/sovereign/pkg/config"
)

// AuditMetrics tracks the audit log.
//
// Metrics:
//   - audit_entries_total: appended entries by action and outcome
type AuditMetrics struct {
	entriesTotal *prometheus.CounterVec
}

// NewAuditMetrics creates and registers audit metrics.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	m := &AuditMetrics{
		entriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_entries_total",
				Help:      "Total number of audit entries by action and outcome",
			},
			[]string{"action", "outcome"},
		),
	}

	registry.MustRegister(m.entriesTotal)
	return m
}

// RecordEntry counts an audit entry.
func (m *AuditMetrics) RecordEntry(action, outcome string) {
	m.entriesTotal.WithLabelValues(action, outcome).Inc()
}
