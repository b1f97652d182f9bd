package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/sovereign/pkg/config"
)

// ComplianceMetrics tracks compliance decisions.
//
// Metrics:
//   - compliance_checks_total: decisions by result
//   - compliance_violations_total: violations by code
type ComplianceMetrics struct {
	checksTotal     *prometheus.CounterVec
	violationsTotal *prometheus.CounterVec
}

// NewComplianceMetrics creates and registers compliance metrics.
func NewComplianceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ComplianceMetrics {
	m := &ComplianceMetrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "compliance_checks_total",
				Help:      "Total number of compliance checks by result",
			},
			[]string{"result"},
		),
		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "compliance_violations_total",
				Help:      "Total number of compliance violations by code",
			},
			[]string{"code"},
		),
	}

	registry.MustRegister(m.checksTotal, m.violationsTotal)
	return m
}

// RecordCheck counts a compliance decision.
func (m *ComplianceMetrics) RecordCheck(result string) {
	m.checksTotal.WithLabelValues(result).Inc()
}

// RecordViolation counts a violation.
func (m *ComplianceMetrics) RecordViolation(code string) {
	m.violationsTotal.WithLabelValues(code).Inc()
}
