package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/sovereign/pkg/config"
)

// DefaultCardinalityLimit caps the unique values of operator-defined labels.
const DefaultCardinalityLimit = 1000

// Collector owns the engine metrics and the registry they are registered
// with. A nil *Collector is valid and records nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	classification *ClassificationMetrics
	records        *RecordMetrics
	compliance     *ComplianceMetrics
	audit          *AuditMetrics

	operationDuration *prometheus.HistogramVec
	tenants           prometheus.Gauge

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics. If registry is
// nil a new one is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(DefaultCardinalityLimit),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of engine operations in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"operation"},
		),
		tenants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "tenants_total",
			Help:      "Number of registered tenants",
		}),
	}
	registry.MustRegister(c.operationDuration, c.tenants)

	c.classification = NewClassificationMetrics(cfg, registry)
	c.records = NewRecordMetrics(cfg, registry)
	c.compliance = NewComplianceMetrics(cfg, registry)
	c.audit = NewAuditMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordClassification records a classification result and the rules that
// matched.
func (c *Collector) RecordClassification(classification, category string, matchedRules []string) {
	if !c.enabled() {
		return
	}
	c.classification.RecordClassification(classification, category)
	for _, id := range matchedRules {
		c.classification.RecordRuleMatch(c.limit("rule:", id))
	}
}

// RecordStored records a record written to the store.
func (c *Collector) RecordStored(classification string) {
	if !c.enabled() {
		return
	}
	c.records.RecordStored(classification)
}

// RecordPurged records records removed by retention.
func (c *Collector) RecordPurged(n int) {
	if !c.enabled() || n <= 0 {
		return
	}
	c.records.RecordPurged(n)
}

// RecordAccessDecision records the outcome of a read, write or delete.
func (c *Collector) RecordAccessDecision(action, outcome string) {
	if !c.enabled() {
		return
	}
	c.records.RecordAccessDecision(action, outcome)
}

// RecordComplianceCheck records a compliance decision and its violation codes.
func (c *Collector) RecordComplianceCheck(result string, violationCodes []string) {
	if !c.enabled() {
		return
	}
	c.compliance.RecordCheck(result)
	for _, code := range violationCodes {
		c.compliance.RecordViolation(c.limit("violation:", code))
	}
}

// RecordAuditEntry records an appended audit entry.
func (c *Collector) RecordAuditEntry(action, outcome string) {
	if !c.enabled() {
		return
	}
	c.audit.RecordEntry(action, outcome)
}

// ObserveOperation records how long an engine operation took.
func (c *Collector) ObserveOperation(operation string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetTenants sets the tenant gauge.
func (c *Collector) SetTenants(n int) {
	if !c.enabled() {
		return
	}
	c.tenants.Set(float64(n))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) limit(kind, value string) string {
	if c.cardinalityLimiter.Allow(kind + value) {
		return value
	}
	return "other"
}

// CardinalityLimiter bounds the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing maxCardinality values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already tracked or fits under the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
