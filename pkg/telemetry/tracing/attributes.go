package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for engine spans.
const (
	AttrTenantID         = "sovereign.tenant_id"
	AttrActor            = "sovereign.actor"
	AttrRecordID         = "sovereign.record_id"
	AttrClassification   = "sovereign.classification"
	AttrCategory         = "sovereign.category"
	AttrConfidence       = "sovereign.confidence"
	AttrOutcome          = "sovereign.outcome"
	AttrComplianceResult = "sovereign.compliance.result"
	AttrViolations       = "sovereign.compliance.violations"
	AttrSourceCountry    = "sovereign.compliance.source_country"
	AttrTargetCountry    = "sovereign.compliance.target_country"
	AttrPurged           = "sovereign.retention.purged"
)

// SetRequestAttributes sets the acting identity and tenant. Empty values
// are skipped.
func SetRequestAttributes(span trace.Span, actor, tenantID string) {
	var attrs []attribute.KeyValue
	if actor != "" {
		attrs = append(attrs, attribute.String(AttrActor, actor))
	}
	if tenantID != "" {
		attrs = append(attrs, attribute.String(AttrTenantID, tenantID))
	}
	span.SetAttributes(attrs...)
}

// SetClassificationAttributes records a classification result.
func SetClassificationAttributes(span trace.Span, classification, category string, confidence float64) {
	span.SetAttributes(
		attribute.String(AttrClassification, classification),
		attribute.String(AttrCategory, category),
		attribute.Float64(AttrConfidence, confidence),
	)
}

// SetRecordAttributes records the record an operation acted on.
func SetRecordAttributes(span trace.Span, recordID, outcome string) {
	span.SetAttributes(
		attribute.String(AttrRecordID, recordID),
		attribute.String(AttrOutcome, outcome),
	)
}

// SetComplianceAttributes records a compliance decision.
func SetComplianceAttributes(span trace.Span, source, target, result string, violations int) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrSourceCountry, source),
		attribute.String(AttrComplianceResult, result),
		attribute.Int(AttrViolations, violations),
	}
	if target != "" {
		attrs = append(attrs, attribute.String(AttrTargetCountry, target))
	}
	span.SetAttributes(attrs...)
}

// SetPurgeAttributes records how many records a retention purge removed.
func SetPurgeAttributes(span trace.Span, purged int) {
	span.SetAttributes(attribute.Int(AttrPurged, purged))
}
