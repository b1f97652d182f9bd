package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/sovereign/pkg/config"
)

// ClassificationMetrics tracks classifier results.
//
// Metrics:
//   - classifications_total: results by classification and category
//   - rule_matches_total: how often each rule matched
type ClassificationMetrics struct {
	classificationsTotal *prometheus.CounterVec
	ruleMatchesTotal     *prometheus.CounterVec
}

// NewClassificationMetrics creates and registers classification metrics.
func NewClassificationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ClassificationMetrics {
	m := &ClassificationMetrics{
		classificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "classifications_total",
				Help:      "Total number of classifications by result",
			},
			[]string{"classification", "category"},
		),
		ruleMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_matches_total",
				Help:      "Total number of classification rule matches",
			},
			[]string{"rule_id"},
		),
	}

	registry.MustRegister(m.classificationsTotal, m.ruleMatchesTotal)
	return m
}

// RecordClassification counts a classification result.
func (m *ClassificationMetrics) RecordClassification(classification, category string) {
	m.classificationsTotal.WithLabelValues(classification, category).Inc()
}

// RecordRuleMatch counts a rule that decided a classification.
func (m *ClassificationMetrics) RecordRuleMatch(ruleID string) {
	m.ruleMatchesTotal.WithLabelValues(ruleID).Inc()
}
