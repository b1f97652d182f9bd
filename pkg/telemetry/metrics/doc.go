// Package metrics provides Prometheus metrics for the governance engine.
//
// # Metrics
//
//   - sovereign_classifications_total{classification,category}
//   - sovereign_rule_matches_total{rule_id}
//   - sovereign_records_stored_total{classification}
//   - sovereign_records_purged_total
//   - sovereign_access_decisions_total{action,outcome}
//   - sovereign_compliance_checks_total{result}
//   - sovereign_compliance_violations_total{code}
//   - sovereign_audit_entries_total{action,outcome}
//   - sovereign_operation_duration_seconds{operation}
//   - sovereign_tenants_total
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordClassification("confidential", "personal", result.MatchedRules)
//	http.Handle("/metrics", collector.Handler())
//
// Every method on a nil *Collector, or on one whose config is disabled, is a
// no-op, so components can hold an optional collector without checks.
//
// # Cardinality Management
//
// Rule IDs and violation codes come from operator-supplied files. Label
// sets beyond the limit are aggregated into "other".
package metrics
