// Package engine is the governance service that ties the classifier,
// policy catalog, tenant key vault, record store, compliance evaluator and
// audit log together.
//
// An Engine is an explicit object built from injected collaborators; there
// is no package-level state, so several engines may coexist and tests can
// substitute any backend.
//
// # Flows
//
//	ingest:     classify → tenant gate → policy → encrypt → put → audit
//	retrieve:   get → tenant isolation → role check → decrypt → audit
//	compliance: evaluate → persist → audit
//
// Every call that stores, reads, deletes or checks produces exactly one
// audit entry, including failed and denied attempts. When the audit entry
// itself cannot be written the operation fails closed: a store is rolled
// back and a retrieve returns no plaintext.
//
// # Example
//
//	eng, err := engine.New(engine.Config{
//	    Classifier: cls,
//	    Catalog:    catalog.New(logger),
//	    Vault:      v,
//	    Records:    storage.NewMemoryStorage(),
//	    Audit:      audit.NewLog(auditstorage.NewMemoryStorage(), logger),
//	    Compliance: evaluator,
//	}, engine.WithLogger(logger))
//
//	rec, err := eng.Store(ctx, engine.StoreRequest{TenantID: "acme", DataType: "note", Data: data, Actor: "alice"})
//	plain, err := eng.Retrieve(ctx, engine.RetrieveRequest{RecordID: rec.ID, TenantID: "acme", Actor: "alice", Roles: []string{"admin"}})
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mercator-hq/sovereign/pkg/audit"
	"mercator-hq/sovereign/pkg/classifier"
	"mercator-hq/sovereign/pkg/compliance"
	"mercator-hq/sovereign/pkg/config"
	"mercator-hq/sovereign/pkg/governance"
	"mercator-hq/sovereign/pkg/policy/catalog"
	"mercator-hq/sovereign/pkg/records"
	"mercator-hq/sovereign/pkg/security/cipher"
	"mercator-hq/sovereign/pkg/security/vault"
	"mercator-hq/sovereign/pkg/telemetry/logging"
	"mercator-hq/sovereign/pkg/telemetry/metrics"
	"mercator-hq/sovereign/pkg/telemetry/tracing"
)

// RetentionActor is the actor recorded on entries written by the purge.
const RetentionActor = "system:retention"

// AnonymousActor is recorded when a caller supplies no actor identity.
const AnonymousActor = "anonymous"

// ErrAuditFailed reports that an operation was aborted because its audit
// entry could not be written.
var ErrAuditFailed = errors.New("audit trail unavailable")

// Config holds the collaborators of an Engine. Every component is required.
type Config struct {
	Classifier *classifier.Classifier
	Catalog    *catalog.Catalog
	Vault      *vault.Vault
	Records    records.Storage
	Audit      *audit.Log
	Compliance *compliance.Evaluator

	// RootActor always passes the role check. Tenant isolation still
	// applies. Defaults to config.DefaultRootActor.
	RootActor string

	// MaxInputBytes bounds the data accepted by Classify and Store.
	// Zero or negative disables the bound.
	MaxInputBytes int64
}

// StoreRequest is one ingest call.
type StoreRequest struct {
	TenantID string
	DataType string
	Data     []byte
	Actor    string
}

// RetrieveRequest is one read call.
type RetrieveRequest struct {
	RecordID string

	// TenantID is the tenant on whose behalf the actor is reading.
	TenantID string

	Actor string
	Roles []string
}

// Engine is the governance service. It is safe for concurrent use.
type Engine struct {
	classifier *classifier.Classifier
	catalog    *catalog.Catalog
	vault      *vault.Vault
	records    records.Storage
	audit      *audit.Log
	compliance *compliance.Evaluator

	rootActor     string
	maxInputBytes int64

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector. A nil collector records nothing.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithClock sets the time source used for record timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an engine. A missing collaborator is a configuration error.
func New(cfg Config, opts ...Option) (*Engine, error) {
	missing := make([]string, 0)
	if cfg.Classifier == nil {
		missing = append(missing, "classifier")
	}
	if cfg.Catalog == nil {
		missing = append(missing, "catalog")
	}
	if cfg.Vault == nil {
		missing = append(missing, "vault")
	}
	if cfg.Records == nil {
		missing = append(missing, "records")
	}
	if cfg.Audit == nil {
		missing = append(missing, "audit")
	}
	if cfg.Compliance == nil {
		missing = append(missing, "compliance")
	}
	if len(missing) > 0 {
		return nil, &governance.ConfigurationError{
			Field:   "engine",
			Message: "missing components: " + strings.Join(missing, ", "),
		}
	}

	if cfg.RootActor == "" {
		cfg.RootActor = config.DefaultRootActor
	}

	e := &Engine{
		classifier:    cfg.Classifier,
		catalog:       cfg.Catalog,
		vault:         cfg.Vault,
		records:       cfg.Records,
		audit:         cfg.Audit,
		compliance:    cfg.Compliance,
		rootActor:     cfg.RootActor,
		maxInputBytes: cfg.MaxInputBytes,
		logger:        slog.Default(),
		tracer:        tracing.Noop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")
	e.metrics.SetTenants(e.vault.Count())

	return e, nil
}

// Classify classifies text and records one classify entry.
func (e *Engine) Classify(ctx context.Context, text string, hints classifier.Hints, actor string) (result *classifier.Result, err error) {
	start := e.now()
	ctx = logContext(ctx, actor, "")
	ctx, span := e.tracer.Start(ctx, "engine.classify")
	tracing.SetRequestAttributes(span, actor, "")
	defer func() {
		e.metrics.ObserveOperation("classify", e.now().Sub(start))
		tracing.End(span, err)
	}()

	entry := &audit.Entry{
		Actor:    actor,
		Action:   audit.ActionClassify,
		Metadata: map[string]string{"data_type": hints.DataType},
	}

	if err := e.checkSize(len(text)); err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.Reason = err.Error()
		return nil, e.finish(ctx, entry, err)
	}

	result = e.classifier.Classify(text, hints)
	e.metrics.RecordClassification(string(result.Classification), string(result.Category), result.MatchedRules)
	tracing.SetClassificationAttributes(span, string(result.Classification), string(result.Category), result.Confidence)

	entry.Outcome = audit.OutcomeSuccess
	entry.Metadata["classification"] = string(result.Classification)
	entry.Metadata["category"] = string(result.Category)
	if err := e.record(ctx, entry); err != nil {
		return nil, err
	}
	return result, nil
}

// Store classifies, optionally encrypts and persists data for a tenant.
//
// The record is encrypted with the tenant key (or the master key for
// tenants without isolation) when its policy requires encryption, and its
// expiry is derived from the policy retention. A tenant whose category
// gate refuses the data gets an access denial.
func (e *Engine) Store(ctx context.Context, req StoreRequest) (rec *records.DataRecord, err error) {
	start := e.now()
	ctx = logContext(ctx, req.Actor, req.TenantID)
	ctx, span := e.tracer.Start(ctx, "engine.store")
	tracing.SetRequestAttributes(span, req.Actor, req.TenantID)
	defer func() {
		e.metrics.ObserveOperation("store", e.now().Sub(start))
		tracing.End(span, err)
	}()

	entry := &audit.Entry{
		Actor:    req.Actor,
		TenantID: req.TenantID,
		Action:   audit.ActionWrite,
		Metadata: map[string]string{"data_type": req.DataType},
	}

	if req.TenantID == "" {
		err := fmt.Errorf("%w: tenant id is required", governance.ErrInvalidValue)
		entry.Outcome = audit.OutcomeFailure
		entry.Reason = err.Error()
		return nil, e.finish(ctx, entry, err)
	}
	if err := e.checkSize(len(req.Data)); err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.Reason = err.Error()
		return nil, e.finish(ctx, entry, err)
	}

	result := e.classifier.Classify(string(req.Data), classifier.Hints{DataType: req.DataType})
	e.metrics.RecordClassification(string(result.Classification), string(result.Category), result.MatchedRules)
	tracing.SetClassificationAttributes(span, string(result.Classification), string(result.Category), result.Confidence)
	entry.Metadata["classification"] = string(result.Classification)
	entry.Metadata["category"] = string(result.Category)

	if tenant, terr := e.vault.Tenant(req.TenantID); terr == nil {
		if ok, reason := tenant.Permits(result.Category); !ok {
			entry.Outcome = audit.OutcomeDenied
			entry.Reason = reason
			return nil, e.finish(ctx, entry, governance.Denied("%s", reason))
		}
	}

	policy := e.catalog.PolicyFor(result.Classification)
	now := e.now().UTC()

	rec = &records.DataRecord{
		ID:             uuid.NewString(),
		TenantID:       req.TenantID,
		DataType:       req.DataType,
		Classification: result.Classification,
		Category:       result.Category,
		Metadata: records.Metadata{
			OriginalLength: len(req.Data),
			MatchedRules:   append([]string{}, result.MatchedRules...),
			Confidence:     result.Confidence,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec.AccessLogRef = records.AccessLogRef(rec.ID)
	entry.Target = rec.AccessLogRef

	if expires, ok := policy.Retention.ExpiresAt(now); ok {
		rec.ExpiresAt = &expires
	}

	if policy.EncryptionRequired {
		key, scope := e.vault.KeyFor(req.TenantID)
		blob, encErr := cipher.Encrypt(req.Data, key)
		cipher.ZeroBytes(key)
		if encErr != nil {
			entry.Outcome = audit.OutcomeFailure
			entry.Reason = "encryption failed"
			return nil, e.finish(ctx, entry, fmt.Errorf("failed to encrypt record: %w", encErr))
		}
		rec.Ciphertext = blob
		rec.Metadata.KeyScope = string(scope)
	} else {
		rec.Content = string(req.Data)
	}

	if err := e.records.Put(ctx, rec); err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.Reason = "record storage failed"
		return nil, e.finish(ctx, entry, fmt.Errorf("failed to store record: %w", err))
	}

	entry.Outcome = audit.OutcomeSuccess
	entry.Metadata["encrypted"] = fmt.Sprintf("%t", rec.Encrypted())
	if err := e.record(ctx, entry); err != nil {
		if _, derr := e.records.Delete(ctx, rec.ID); derr != nil {
			e.logger.ErrorContext(ctx, "failed to roll back unaudited record",
				"record_id", rec.ID,
				"error", derr,
			)
		}
		return nil, err
	}

	e.metrics.RecordStored(string(rec.Classification))
	tracing.SetRecordAttributes(span, rec.ID, string(audit.OutcomeSuccess))
	e.logger.DebugContext(ctx, "record stored",
		"record_id", rec.ID,
		"classification", rec.Classification,
		"encrypted", rec.Encrypted(),
	)
	return rec.Clone(), nil
}

// Retrieve returns the plaintext of a record after the tenant isolation and
// role checks pass. Denials return an error matching
// governance.ErrAccessDenied whose reason is also written to the audit log.
func (e *Engine) Retrieve(ctx context.Context, req RetrieveRequest) (plaintext []byte, err error) {
	start := e.now()
	ctx = logContext(ctx, req.Actor, req.TenantID)
	ctx, span := e.tracer.Start(ctx, "engine.retrieve")
	tracing.SetRequestAttributes(span, req.Actor, req.TenantID)
	defer func() {
		e.metrics.ObserveOperation("retrieve", e.now().Sub(start))
		tracing.End(span, err)
	}()

	entry := &audit.Entry{
		Actor:    req.Actor,
		TenantID: req.TenantID,
		Action:   audit.ActionRead,
		Target:   records.AccessLogRef(req.RecordID),
	}

	rec, err := e.records.Get(ctx, req.RecordID)
	if err != nil {
		entry.Outcome = audit.OutcomeFailure
		if errors.Is(err, governance.ErrNotFound) {
			entry.Reason = "record not found"
		} else {
			entry.Reason = "record storage failed"
		}
		return nil, e.finish(ctx, entry, err)
	}

	if rec.TenantID != req.TenantID && !e.vault.CrossTenantAccess(rec.TenantID) {
		reason := fmt.Sprintf("tenant %q may not access records of tenant %q", req.TenantID, rec.TenantID)
		entry.Outcome = audit.OutcomeDenied
		entry.Reason = reason
		return nil, e.finish(ctx, entry, governance.Denied("%s", reason))
	}

	if req.Actor != e.rootActor {
		policy := e.catalog.PolicyFor(rec.Classification)
		if !policy.AllowsAnyRole(req.Roles) {
			reason := fmt.Sprintf("roles [%s] not permitted for %s data (allowed: %s)",
				strings.Join(req.Roles, ","), rec.Classification, strings.Join(policy.AllowedRoles, ","))
			entry.Outcome = audit.OutcomeDenied
			entry.Reason = reason
			return nil, e.finish(ctx, entry, governance.Denied("%s", reason))
		}
	}

	if rec.Encrypted() {
		key, kerr := e.vault.KeyForScope(rec.TenantID, vault.Scope(rec.Metadata.KeyScope))
		if kerr != nil {
			entry.Outcome = audit.OutcomeFailure
			entry.Reason = "encryption key unavailable"
			return nil, e.finish(ctx, entry, kerr)
		}
		plaintext, err = cipher.Decrypt(rec.Ciphertext, key)
		cipher.ZeroBytes(key)
		if err != nil {
			entry.Outcome = audit.OutcomeFailure
			entry.Reason = "decryption failed"
			return nil, e.finish(ctx, entry, err)
		}
	} else {
		plaintext = []byte(rec.Content)
	}

	entry.Outcome = audit.OutcomeSuccess
	if err := e.record(ctx, entry); err != nil {
		cipher.ZeroBytes(plaintext)
		return nil, err
	}

	tracing.SetRecordAttributes(span, rec.ID, string(audit.OutcomeSuccess))
	return plaintext, nil
}

// Delete hard-deletes a record and reports whether it existed. A delete
// entry is written whatever the outcome.
func (e *Engine) Delete(ctx context.Context, recordID, actor string) (deleted bool, err error) {
	start := e.now()
	ctx = logContext(ctx, actor, "")
	ctx, span := e.tracer.Start(ctx, "engine.delete")
	tracing.SetRequestAttributes(span, actor, "")
	defer func() {
		e.metrics.ObserveOperation("delete", e.now().Sub(start))
		tracing.End(span, err)
	}()

	entry := &audit.Entry{
		Actor:  actor,
		Action: audit.ActionDelete,
		Target: records.AccessLogRef(recordID),
	}
	if rec, gerr := e.records.Get(ctx, recordID); gerr == nil {
		entry.TenantID = rec.TenantID
	}

	deleted, err = e.records.Delete(ctx, recordID)
	switch {
	case err != nil:
		entry.Outcome = audit.OutcomeFailure
		entry.Reason = "record storage failed"
		return false, e.finish(ctx, entry, fmt.Errorf("failed to delete record: %w", err))
	case !deleted:
		entry.Outcome = audit.OutcomeFailure
		entry.Reason = "record not found"
	default:
		entry.Outcome = audit.OutcomeSuccess
	}

	if err := e.record(ctx, entry); err != nil {
		return deleted, err
	}
	tracing.SetRecordAttributes(span, recordID, string(entry.Outcome))
	return deleted, nil
}

// CheckCompliance evaluates req and records one compliance-check entry.
// A denied decision is recorded as blocked and returned without error.
func (e *Engine) CheckCompliance(ctx context.Context, req compliance.Request) (check *compliance.Check, err error) {
	start := e.now()
	ctx = logContext(ctx, req.Actor, req.TenantID)
	ctx, span := e.tracer.Start(ctx, "engine.check_compliance")
	tracing.SetRequestAttributes(span, req.Actor, req.TenantID)
	defer func() {
		e.metrics.ObserveOperation("check_compliance", e.now().Sub(start))
		tracing.End(span, err)
	}()

	entry := &audit.Entry{
		Actor:    req.Actor,
		TenantID: req.TenantID,
		Action:   audit.ActionComplianceCheck,
		Metadata: map[string]string{"operation": req.Operation},
	}

	check, err = e.compliance.Check(ctx, req)
	if err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.Reason = err.Error()
		return nil, e.finish(ctx, entry, err)
	}

	codes := make([]string, len(check.Violations))
	for i, v := range check.Violations {
		codes[i] = v.Code
	}
	e.metrics.RecordComplianceCheck(string(check.Result), codes)
	tracing.SetComplianceAttributes(span, check.SourceCountry, check.TargetCountry, string(check.Result), len(check.Violations))

	entry.Target = "compliance:" + check.ID
	entry.Metadata["result"] = string(check.Result)
	if check.Result == governance.ResultDenied {
		entry.Outcome = audit.OutcomeBlocked
		entry.Reason = "violations: " + strings.Join(codes, ",")
	} else {
		entry.Outcome = audit.OutcomeSuccess
	}

	if err := e.record(ctx, entry); err != nil {
		return nil, err
	}
	return check, nil
}

// CreateTenant registers a tenant and returns its key. The key is shown
// only here; later listings redact it.
func (e *Engine) CreateTenant(ctx context.Context, id, name string, opts vault.Options, actor string) (key []byte, err error) {
	ctx = logContext(ctx, actor, id)
	ctx, span := e.tracer.Start(ctx, "engine.create_tenant")
	tracing.SetRequestAttributes(span, actor, id)
	defer func() { tracing.End(span, err) }()

	entry := &audit.Entry{
		Actor:    actor,
		TenantID: id,
		Action:   audit.ActionTenantCreate,
		Target:   "tenant:" + id,
	}

	key, err = e.vault.CreateTenant(ctx, id, name, opts)
	if err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.Reason = err.Error()
		return nil, e.finish(ctx, entry, err)
	}
	e.metrics.SetTenants(e.vault.Count())

	entry.Outcome = audit.OutcomeSuccess
	if err := e.record(ctx, entry); err != nil {
		cipher.ZeroBytes(key)
		return nil, err
	}
	return key, nil
}

// Tenants lists tenants with redacted keys.
func (e *Engine) Tenants() []vault.Tenant {
	return e.vault.Tenants()
}

// UpdatePolicy patches the policy identified by a classification level or
// policy ID and records one policy-update entry.
func (e *Engine) UpdatePolicy(ctx context.Context, key string, patch catalog.Patch, actor string) (catalog.DataPolicy, error) {
	ctx = logContext(ctx, actor, "")
	entry := &audit.Entry{
		Actor:  actor,
		Action: audit.ActionPolicyUpdate,
		Target: "policy:" + key,
	}

	policy, err := e.catalog.Update(key, patch)
	if err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.Reason = err.Error()
		return catalog.DataPolicy{}, e.finish(ctx, entry, err)
	}

	entry.Target = "policy:" + policy.ID
	entry.Outcome = audit.OutcomeSuccess
	entry.Metadata = map[string]string{
		"retention":           string(policy.Retention),
		"encryption_required": fmt.Sprintf("%t", policy.EncryptionRequired),
	}
	if err := e.record(ctx, entry); err != nil {
		return catalog.DataPolicy{}, err
	}
	return policy, nil
}

// Policies returns the current policy table.
func (e *Engine) Policies() []catalog.DataPolicy {
	return e.catalog.Policies()
}

// AuditTrail returns audit entries matching q, newest first.
func (e *Engine) AuditTrail(ctx context.Context, q *audit.Query) ([]*audit.Entry, error) {
	return e.audit.Query(ctx, q)
}

// AuditLog returns the underlying audit log for streaming exports.
func (e *Engine) AuditLog() *audit.Log {
	return e.audit
}

// PurgeExpired deletes every record whose retention has lapsed and returns
// how many were removed. Each purged record gets one delete entry by
// RetentionActor. The first storage or audit failure stops the purge.
func (e *Engine) PurgeExpired(ctx context.Context) (purged int, err error) {
	start := e.now()
	ctx = logContext(ctx, RetentionActor, "")
	ctx, span := e.tracer.Start(ctx, "engine.purge_expired")
	defer func() {
		e.metrics.ObserveOperation("purge_expired", e.now().Sub(start))
		e.metrics.RecordPurged(purged)
		tracing.SetPurgeAttributes(span, purged)
		tracing.End(span, err)
	}()

	cutoff := e.now().UTC()
	expired, err := e.records.Scan(ctx, records.Filter{ExpiredBefore: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("failed to scan expired records: %w", err)
	}

	for _, rec := range expired {
		if err := ctx.Err(); err != nil {
			return purged, err
		}

		entry := &audit.Entry{
			Actor:    RetentionActor,
			TenantID: rec.TenantID,
			Action:   audit.ActionDelete,
			Target:   rec.AccessLogRef,
			Metadata: map[string]string{
				"reason":     "retention expired",
				"expires_at": rec.ExpiresAt.Format(time.RFC3339),
			},
		}

		deleted, derr := e.records.Delete(ctx, rec.ID)
		if derr != nil {
			entry.Outcome = audit.OutcomeFailure
			entry.Reason = "record storage failed"
			return purged, e.finish(ctx, entry, fmt.Errorf("failed to purge record %s: %w", rec.ID, derr))
		}
		if !deleted {
			// Removed concurrently; that delete was audited by its caller.
			continue
		}

		entry.Outcome = audit.OutcomeSuccess
		if err := e.record(ctx, entry); err != nil {
			return purged, err
		}
		purged++
	}

	if purged > 0 {
		e.logger.InfoContext(ctx, "expired records purged", "count", purged)
	}
	return purged, nil
}

// HealthChecks returns readiness checks for the record store, the audit log
// and the vault, keyed by component name.
func (e *Engine) HealthChecks() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"records": func(ctx context.Context) error {
			_, err := e.records.Count(ctx)
			return err
		},
		"audit": func(ctx context.Context) error {
			_, err := e.audit.Count(ctx, nil)
			return err
		},
		"vault": func(ctx context.Context) error {
			e.metrics.SetTenants(e.vault.Count())
			return nil
		},
	}
}

func (e *Engine) checkSize(n int) error {
	if e.maxInputBytes > 0 && int64(n) > e.maxInputBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", governance.ErrInputTooLarge, n, e.maxInputBytes)
	}
	return nil
}

// record appends entry and counts it. A failed append is wrapped in
// ErrAuditFailed.
func (e *Engine) record(ctx context.Context, entry *audit.Entry) error {
	if entry.Actor == "" {
		entry.Actor = AnonymousActor
	}
	if _, err := e.audit.Append(ctx, entry); err != nil {
		e.logger.ErrorContext(logContext(ctx, entry.Actor, entry.TenantID), "audit append failed, aborting operation",
			"action", entry.Action,
			"target", entry.Target,
			"error", err,
		)
		return fmt.Errorf("%w: %v", ErrAuditFailed, err)
	}
	e.metrics.RecordAuditEntry(string(entry.Action), string(entry.Outcome))
	switch entry.Action {
	case audit.ActionWrite, audit.ActionRead, audit.ActionDelete:
		e.metrics.RecordAccessDecision(string(entry.Action), string(entry.Outcome))
	}
	return nil
}

// finish records the entry of a failed or denied operation and returns
// opErr, or the audit failure when the entry could not be written.
func (e *Engine) finish(ctx context.Context, entry *audit.Entry, opErr error) error {
	if err := e.record(ctx, entry); err != nil {
		return errors.Join(opErr, err)
	}
	if entry.Outcome == audit.OutcomeDenied {
		e.logger.WarnContext(logContext(ctx, entry.Actor, entry.TenantID), "access denied",
			"action", entry.Action,
			"target", entry.Target,
			"reason", entry.Reason,
		)
	}
	return opErr
}

// logContext tags ctx with the actor and tenant for log entries, keeping
// values already set by the caller.
func logContext(ctx context.Context, actor, tenantID string) context.Context {
	if actor != "" && logging.GetActor(ctx) == "" {
		ctx = logging.WithActor(ctx, actor)
	}
	if tenantID != "" && logging.GetTenant(ctx) == "" {
		ctx = logging.WithTenant(ctx, tenantID)
	}
	return ctx
}
