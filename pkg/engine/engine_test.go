package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/sync/errgroup"

	"mercator-hq/sovereign/pkg/audit"
	auditstorage "mercator-hq/sovereign/pkg/audit/storage"
	"mercator-hq/sovereign/pkg/classifier"
	"mercator-hq/sovereign/pkg/compliance"
	"mercator-hq/sovereign/pkg/config"
	"mercator-hq/sovereign/pkg/governance"
	"mercator-hq/sovereign/pkg/policy/catalog"
	"mercator-hq/sovereign/pkg/records"
	recordstorage "mercator-hq/sovereign/pkg/records/storage"
	"mercator-hq/sovereign/pkg/security/vault"
	"mercator-hq/sovereign/pkg/telemetry/logging"
	"mercator-hq/sovereign/pkg/telemetry/metrics"
	"mercator-hq/sovereign/pkg/telemetry/tracing"
)

const (
	ssnText    = "My SSN is 123-45-6789"
	emailText  = "reach me at jane.doe@example.com"
	publicText = "This content is public and published"
)

// flakyAuditStorage fails appends while fail is set.
type flakyAuditStorage struct {
	*auditstorage.MemoryStorage
	fail atomic.Bool
}

func (s *flakyAuditStorage) Append(ctx context.Context, entry *audit.Entry) error {
	if s.fail.Load() {
		return audit.NewStorageError("flaky", "append", errors.New("disk full"))
	}
	return s.MemoryStorage.Append(ctx, entry)
}

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	engine     *Engine
	records    records.Storage
	audit      *flakyAuditStorage
	vault      *vault.Vault
	compliance *compliance.Evaluator
	clock      *testClock
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	cls, err := classifier.NewWithDefaults()
	require.NoError(t, err)

	v, err := vault.New(bytes.Repeat([]byte{7}, 32), nil)
	require.NoError(t, err)

	eval, err := compliance.New(compliance.DefaultTables())
	require.NoError(t, err)

	h := &harness{
		records:    recordstorage.NewMemoryStorage(),
		audit:      &flakyAuditStorage{MemoryStorage: auditstorage.NewMemoryStorage()},
		vault:      v,
		compliance: eval,
		clock:      &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
	}

	opts = append([]Option{WithClock(h.clock.Now)}, opts...)
	h.engine, err = New(Config{
		Classifier: cls,
		Catalog:    catalog.New(nil),
		Vault:      v,
		Records:    h.records,
		Audit:      audit.NewLog(h.audit, nil),
		Compliance: eval,
		RootActor:  "root",
	}, opts...)
	require.NoError(t, err)
	return h
}

func (h *harness) auditCount(t *testing.T) int64 {
	t.Helper()
	n, err := h.engine.AuditLog().Count(context.Background(), nil)
	require.NoError(t, err)
	return n
}

func (h *harness) latestEntry(t *testing.T) *audit.Entry {
	t.Helper()
	entries, err := h.engine.AuditTrail(context.Background(), &audit.Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return entries[0]
}

// TestNew_MissingComponents tests that every collaborator is required.
func TestNew_MissingComponents(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, governance.ErrConfiguration)
	assert.Contains(t, err.Error(), "classifier")
	assert.Contains(t, err.Error(), "compliance")
}

// TestEngine_ClassifyScenarios tests the reference classification examples.
func TestEngine_ClassifyScenarios(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		text     string
		wantLvl  governance.Classification
		wantCat  governance.Category
		wantRule string
	}{
		{ssnText, governance.ClassificationHighlySensitive, governance.CategoryPersonal, "ssn"},
		{publicText, governance.ClassificationNormal, governance.CategoryPublic, "public"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res, err := h.engine.Classify(ctx, tt.text, classifier.Hints{}, "alice")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLvl, res.Classification)
			assert.Equal(t, tt.wantCat, res.Category)
			assert.Contains(t, res.MatchedRules, tt.wantRule)

			entry := h.latestEntry(t)
			assert.Equal(t, audit.ActionClassify, entry.Action)
			assert.Equal(t, string(tt.wantLvl), entry.Metadata["classification"])
		})
	}
}

// TestEngine_StoreRetrieveRoundTrip tests ingest and read of each level.
func TestEngine_StoreRetrieveRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		text      string
		roles     []string
		encrypted bool
	}{
		{"normal", publicText, []string{"user"}, false},
		{"sensitive", emailText, []string{"analyst"}, true},
		{"highly sensitive", ssnText, []string{"data-owner"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", DataType: "note", Data: []byte(tt.text), Actor: "alice"})
			require.NoError(t, err)
			assert.Equal(t, tt.encrypted, rec.Encrypted())
			assert.Equal(t, len(tt.text), rec.Metadata.OriginalLength)
			assert.Equal(t, records.AccessLogRef(rec.ID), rec.AccessLogRef)
			if tt.encrypted {
				assert.NotContains(t, rec.Ciphertext, tt.text)
				assert.Empty(t, rec.Content)
				assert.Equal(t, string(vault.ScopeMaster), rec.Metadata.KeyScope)
			}

			plain, err := h.engine.Retrieve(ctx, RetrieveRequest{RecordID: rec.ID, TenantID: "acme", Actor: "alice", Roles: tt.roles})
			require.NoError(t, err)
			assert.Equal(t, tt.text, string(plain))
		})
	}
}

// TestEngine_Scenario_RoleDenied tests a read by a role outside the policy.
func TestEngine_Scenario_RoleDenied(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", DataType: "profile", Data: []byte(ssnText), Actor: "alice"})
	require.NoError(t, err)
	require.Equal(t, governance.ClassificationHighlySensitive, rec.Classification)

	plain, err := h.engine.Retrieve(ctx, RetrieveRequest{RecordID: rec.ID, TenantID: "acme", Actor: "bob", Roles: []string{"user"}})
	require.Error(t, err)
	assert.Nil(t, plain)
	assert.ErrorIs(t, err, governance.ErrAccessDenied)
	assert.NotEmpty(t, governance.DenialReason(err))

	entries, qerr := h.engine.AuditTrail(ctx, nil)
	require.NoError(t, qerr)
	require.Len(t, entries, 2)

	assert.Equal(t, audit.ActionRead, entries[0].Action)
	assert.Equal(t, audit.OutcomeDenied, entries[0].Outcome)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "bob", entries[0].Actor)
	assert.Equal(t, governance.DenialReason(err), entries[0].Reason)

	assert.Equal(t, audit.ActionWrite, entries[1].Action)
	assert.Equal(t, audit.OutcomeSuccess, entries[1].Outcome)
	assert.Equal(t, rec.AccessLogRef, entries[1].Target)
}

// TestEngine_DenialLogFields tests that denial logs carry the request,
// actor and tenant from the context.
func TestEngine_DenialLogFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Config{Writer: &buf})
	require.NoError(t, err)
	h := newHarness(t, WithLogger(logger))
	ctx := logging.WithRequestID(context.Background(), "req-42")

	rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	require.NoError(t, err)
	require.Zero(t, buf.Len())

	_, err = h.engine.Retrieve(ctx, RetrieveRequest{RecordID: rec.ID, TenantID: "acme", Actor: "bob", Roles: []string{"user"}})
	require.ErrorIs(t, err, governance.ErrAccessDenied)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "access denied", line["msg"])
	assert.Equal(t, "req-42", line[string(logging.RequestIDKey)])
	assert.Equal(t, "bob", line[string(logging.ActorKey)])
	assert.Equal(t, "acme", line[string(logging.TenantKey)])
}

// TestEngine_RetrieveAfterTenantCreated tests that a record sealed with the
// master key before its tenant was registered stays readable afterwards.
func TestEngine_RetrieveAfterTenantCreated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	require.NoError(t, err)
	require.Equal(t, string(vault.ScopeMaster), rec.Metadata.KeyScope)

	_, err = h.engine.CreateTenant(ctx, "acme", "Acme Corp", vault.Options{}, "admin")
	require.NoError(t, err)

	plain, err := h.engine.Retrieve(ctx, RetrieveRequest{RecordID: rec.ID, TenantID: "acme", Actor: "root"})
	require.NoError(t, err)
	assert.Equal(t, ssnText, string(plain))

	after, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	require.NoError(t, err)
	assert.Equal(t, string(vault.ScopeTenant), after.Metadata.KeyScope)

	plain, err = h.engine.Retrieve(ctx, RetrieveRequest{RecordID: after.ID, TenantID: "acme", Actor: "root"})
	require.NoError(t, err)
	assert.Equal(t, ssnText, string(plain))
}

// TestEngine_RetrieveTenantKeyMissing tests a tenant-sealed record whose
// tenant is not registered in this vault.
func TestEngine_RetrieveTenantKeyMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	require.NoError(t, err)

	orphan := rec.Clone()
	orphan.ID = "orphan-record"
	orphan.TenantID = "ghost"
	orphan.Metadata.KeyScope = string(vault.ScopeTenant)
	require.NoError(t, h.records.Put(ctx, orphan))

	_, err = h.engine.Retrieve(ctx, RetrieveRequest{RecordID: orphan.ID, TenantID: "ghost", Actor: "root"})
	require.Error(t, err)
	assert.ErrorIs(t, err, governance.ErrNotFound)
	assert.NotErrorIs(t, err, governance.ErrDecryptionFailed)

	entries, qerr := h.engine.AuditTrail(ctx, &audit.Query{Action: audit.ActionRead})
	require.NoError(t, qerr)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.OutcomeFailure, entries[0].Outcome)
	assert.Equal(t, "encryption key unavailable", entries[0].Reason)
}

// TestEngine_RootActorBypassesRoles tests the root identity.
func TestEngine_RootActorBypassesRoles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	require.NoError(t, err)

	plain, err := h.engine.Retrieve(ctx, RetrieveRequest{RecordID: rec.ID, TenantID: "acme", Actor: "root"})
	require.NoError(t, err)
	assert.Equal(t, ssnText, string(plain))
}

// TestEngine_TenantIsolation tests that foreign tenants are refused for
// every role set, including the root identity.
func TestEngine_TenantIsolation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.CreateTenant(ctx, "acme", "Acme Corp", vault.Options{}, "root")
	require.NoError(t, err)

	rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(publicText), Actor: "alice"})
	require.NoError(t, err)

	roleSets := [][]string{nil, {"user"}, {"analyst", "admin"}, {"data-owner"}}
	for _, actor := range []string{"mallory", "root"} {
		for _, roles := range roleSets {
			before := h.auditCount(t)
			_, err := h.engine.Retrieve(ctx, RetrieveRequest{RecordID: rec.ID, TenantID: "globex", Actor: actor, Roles: roles})
			assert.ErrorIs(t, err, governance.ErrAccessDenied, "actor=%s roles=%v", actor, roles)
			assert.Equal(t, before+1, h.auditCount(t))
			assert.Equal(t, audit.OutcomeDenied, h.latestEntry(t).Outcome)
		}
	}
}

// TestEngine_CrossTenantAccess tests that a sharing tenant may be read by
// others who hold an allowed role.
func TestEngine_CrossTenantAccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.CreateTenant(ctx, "shared", "Shared data", vault.Options{CrossTenantAccess: true}, "root")
	require.NoError(t, err)

	rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "shared", Data: []byte(emailText), Actor: "alice"})
	require.NoError(t, err)
	assert.Equal(t, string(vault.ScopeTenant), rec.Metadata.KeyScope)

	plain, err := h.engine.Retrieve(ctx, RetrieveRequest{RecordID: rec.ID, TenantID: "globex", Actor: "bob", Roles: []string{"admin"}})
	require.NoError(t, err)
	assert.Equal(t, emailText, string(plain))

	_, err = h.engine.Retrieve(ctx, RetrieveRequest{RecordID: rec.ID, TenantID: "globex", Actor: "bob", Roles: []string{"user"}})
	assert.ErrorIs(t, err, governance.ErrAccessDenied)
}

// TestEngine_TenantKeyIsolation tests that records are sealed with the
// owner's key and not the master key.
func TestEngine_TenantKeyIsolation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	key, err := h.engine.CreateTenant(ctx, "acme", "Acme", vault.Options{}, "root")
	require.NoError(t, err)
	require.Len(t, key, 32)

	rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	require.NoError(t, err)
	assert.Equal(t, string(vault.ScopeTenant), rec.Metadata.KeyScope)

	for _, tenant := range h.engine.Tenants() {
		assert.Equal(t, vault.RedactedKey, tenant.Key)
	}

	_, err = h.engine.CreateTenant(ctx, "acme", "Acme again", vault.Options{}, "root")
	assert.ErrorIs(t, err, governance.ErrTenantExists)
	entry := h.latestEntry(t)
	assert.Equal(t, audit.ActionTenantCreate, entry.Action)
	assert.Equal(t, audit.OutcomeFailure, entry.Outcome)
}

// TestEngine_TamperedRecord tests that a modified ciphertext fails loudly.
func TestEngine_TamperedRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	require.NoError(t, err)

	stored, err := h.records.Get(ctx, rec.ID)
	require.NoError(t, err)
	blob := []byte(stored.Ciphertext)
	mid := len(blob) / 2
	if blob[mid] == 'A' {
		blob[mid] = 'B'
	} else {
		blob[mid] = 'A'
	}
	stored.Ciphertext = string(blob)
	_, err = h.records.Delete(ctx, rec.ID)
	require.NoError(t, err)
	require.NoError(t, h.records.Put(ctx, stored))

	plain, err := h.engine.Retrieve(ctx, RetrieveRequest{RecordID: rec.ID, TenantID: "acme", Actor: "root"})
	assert.Nil(t, plain)
	assert.ErrorIs(t, err, governance.ErrDecryptionFailed)

	entry := h.latestEntry(t)
	assert.Equal(t, audit.OutcomeFailure, entry.Outcome)
	assert.Equal(t, "decryption failed", entry.Reason)
}

// TestEngine_TenantCategoryGate tests refusal of blocked categories.
func TestEngine_TenantCategoryGate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.CreateTenant(ctx, "clinic-free", "No health data", vault.Options{
		BlockedCategories: []governance.Category{governance.CategoryHealth},
	}, "root")
	require.NoError(t, err)

	_, err = h.engine.Store(ctx, StoreRequest{TenantID: "clinic-free", Data: []byte("patient diagnosis attached"), Actor: "alice"})
	require.Error(t, err)
	assert.ErrorIs(t, err, governance.ErrAccessDenied)

	entry := h.latestEntry(t)
	assert.Equal(t, audit.ActionWrite, entry.Action)
	assert.Equal(t, audit.OutcomeDenied, entry.Outcome)
	assert.Contains(t, entry.Reason, "health")

	n, err := h.records.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = h.engine.Store(ctx, StoreRequest{TenantID: "clinic-free", Data: []byte(publicText), Actor: "alice"})
	assert.NoError(t, err)
}

// TestEngine_RetentionArithmetic tests expiry for each retention setting.
func TestEngine_RetentionArithmetic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	thirty := governance.Retention30Days
	_, err := h.engine.UpdatePolicy(ctx, string(governance.ClassificationSensitive), catalog.Patch{Retention: &thirty}, "root")
	require.NoError(t, err)

	entry := h.latestEntry(t)
	assert.Equal(t, audit.ActionPolicyUpdate, entry.Action)
	assert.Equal(t, "30-days", entry.Metadata["retention"])

	sensitive, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(emailText), Actor: "alice"})
	require.NoError(t, err)
	require.NotNil(t, sensitive.ExpiresAt)
	assert.Equal(t, sensitive.CreatedAt.Add(30*24*time.Hour), *sensitive.ExpiresAt)

	highly, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	require.NoError(t, err)
	require.NotNil(t, highly.ExpiresAt)
	assert.Equal(t, highly.CreatedAt.AddDate(0, 0, 90), *highly.ExpiresAt)

	normal, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(publicText), Actor: "alice"})
	require.NoError(t, err)
	assert.Nil(t, normal.ExpiresAt)

	_, err = h.engine.UpdatePolicy(ctx, "policy-unknown", catalog.Patch{Retention: &thirty}, "root")
	assert.ErrorIs(t, err, governance.ErrNotFound)
	assert.Equal(t, audit.OutcomeFailure, h.latestEntry(t).Outcome)
}

// TestEngine_PurgeExpired tests the retention purge.
func TestEngine_PurgeExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	short, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	require.NoError(t, err)
	long, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(emailText), Actor: "alice"})
	require.NoError(t, err)
	keep, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(publicText), Actor: "alice"})
	require.NoError(t, err)

	purged, err := h.engine.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, purged)

	h.clock.Advance(91 * 24 * time.Hour)
	purged, err = h.engine.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = h.records.Get(ctx, short.ID)
	assert.ErrorIs(t, err, governance.ErrNotFound)
	_, err = h.records.Get(ctx, long.ID)
	assert.NoError(t, err)
	_, err = h.records.Get(ctx, keep.ID)
	assert.NoError(t, err)

	entries, err := h.engine.AuditTrail(ctx, &audit.Query{Actor: RetentionActor})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionDelete, entries[0].Action)
	assert.Equal(t, short.AccessLogRef, entries[0].Target)
	assert.Equal(t, "acme", entries[0].TenantID)

	h.clock.Advance(365 * 24 * time.Hour)
	purged, err = h.engine.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	n, err := h.records.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// TestEngine_Delete tests hard deletes and their audit entries.
func TestEngine_Delete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(publicText), Actor: "alice"})
	require.NoError(t, err)

	deleted, err := h.engine.Delete(ctx, rec.ID, "alice")
	require.NoError(t, err)
	assert.True(t, deleted)
	entry := h.latestEntry(t)
	assert.Equal(t, audit.ActionDelete, entry.Action)
	assert.Equal(t, audit.OutcomeSuccess, entry.Outcome)
	assert.Equal(t, "acme", entry.TenantID)

	deleted, err = h.engine.Delete(ctx, rec.ID, "alice")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, audit.OutcomeFailure, h.latestEntry(t).Outcome)

	_, err = h.engine.Retrieve(ctx, RetrieveRequest{RecordID: rec.ID, TenantID: "acme", Actor: "root"})
	assert.ErrorIs(t, err, governance.ErrNotFound)
}

// TestEngine_ComplianceScenarios tests the engine compliance flow and its
// audit outcomes.
func TestEngine_ComplianceScenarios(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.compliance.UpsertGeoRestriction(compliance.GeoRestriction{
		CountryCode: "XX",
		Level:       governance.RestrictionProhibited,
	}))

	check, err := h.engine.CheckCompliance(ctx, compliance.Request{
		TenantID: "acme", Operation: "store", SourceCountry: "XX", Actor: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, governance.ResultDenied, check.Result)
	assert.True(t, check.HasViolation(compliance.CodeGeoProhibited))

	entry := h.latestEntry(t)
	assert.Equal(t, audit.ActionComplianceCheck, entry.Action)
	assert.Equal(t, audit.OutcomeBlocked, entry.Outcome)
	assert.Contains(t, entry.Reason, compliance.CodeGeoProhibited)
	assert.Equal(t, "compliance:"+check.ID, entry.Target)

	check, err = h.engine.CheckCompliance(ctx, compliance.Request{
		TenantID: "acme", Operation: "transfer", SourceCountry: "IN", TargetCountry: "US",
		DataTypes: []string{"government"}, Actor: "alice",
	})
	require.NoError(t, err)
	assert.True(t, check.HasViolation(compliance.CodeLocalStorageOnly))
	assert.NotEqual(t, governance.ResultAllowed, check.Result)
	assert.Contains(t, []governance.ComplianceResult{governance.ResultDenied, governance.ResultPendingApproval}, check.Result)
	assert.Equal(t, audit.OutcomeSuccess, h.latestEntry(t).Outcome)

	stored, err := h.compliance.Get(ctx, check.ID)
	require.NoError(t, err)
	assert.Equal(t, check.Result, stored.Result)

	_, err = h.engine.CheckCompliance(ctx, compliance.Request{SourceCountry: "US", Actor: "alice"})
	assert.ErrorIs(t, err, governance.ErrInvalidValue)
	assert.Equal(t, audit.OutcomeFailure, h.latestEntry(t).Outcome)
}

// TestEngine_AuditCompleteness tests that N mixed calls add exactly N
// entries with the right targets and outcomes.
func TestEngine_AuditCompleteness(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	type call struct {
		name    string
		run     func() string
		action  audit.Action
		outcome audit.Outcome
	}

	var recID string
	calls := []call{
		{"store", func() string {
			rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
			require.NoError(t, err)
			recID = rec.ID
			return rec.AccessLogRef
		}, audit.ActionWrite, audit.OutcomeSuccess},
		{"retrieve ok", func() string {
			_, err := h.engine.Retrieve(ctx, RetrieveRequest{RecordID: recID, TenantID: "acme", Actor: "alice", Roles: []string{"admin"}})
			require.NoError(t, err)
			return records.AccessLogRef(recID)
		}, audit.ActionRead, audit.OutcomeSuccess},
		{"retrieve wrong role", func() string {
			_, err := h.engine.Retrieve(ctx, RetrieveRequest{RecordID: recID, TenantID: "acme", Actor: "bob", Roles: []string{"user"}})
			require.Error(t, err)
			return records.AccessLogRef(recID)
		}, audit.ActionRead, audit.OutcomeDenied},
		{"retrieve missing", func() string {
			_, err := h.engine.Retrieve(ctx, RetrieveRequest{RecordID: "missing", TenantID: "acme", Actor: "bob"})
			require.ErrorIs(t, err, governance.ErrNotFound)
			return records.AccessLogRef("missing")
		}, audit.ActionRead, audit.OutcomeFailure},
		{"check allowed", func() string {
			check, err := h.engine.CheckCompliance(ctx, compliance.Request{Operation: "store", SourceCountry: "US", Actor: "alice"})
			require.NoError(t, err)
			return "compliance:" + check.ID
		}, audit.ActionComplianceCheck, audit.OutcomeSuccess},
		{"check denied", func() string {
			check, err := h.engine.CheckCompliance(ctx, compliance.Request{Operation: "store", SourceCountry: "KP", Actor: "alice"})
			require.NoError(t, err)
			return "compliance:" + check.ID
		}, audit.ActionComplianceCheck, audit.OutcomeBlocked},
		{"delete", func() string {
			ok, err := h.engine.Delete(ctx, recID, "alice")
			require.NoError(t, err)
			require.True(t, ok)
			return records.AccessLogRef(recID)
		}, audit.ActionDelete, audit.OutcomeSuccess},
		{"delete again", func() string {
			ok, err := h.engine.Delete(ctx, recID, "alice")
			require.NoError(t, err)
			require.False(t, ok)
			return records.AccessLogRef(recID)
		}, audit.ActionDelete, audit.OutcomeFailure},
	}

	start := h.auditCount(t)
	for i, c := range calls {
		target := c.run()
		assert.Equal(t, start+int64(i+1), h.auditCount(t), c.name)

		entry := h.latestEntry(t)
		assert.Equal(t, c.action, entry.Action, c.name)
		assert.Equal(t, c.outcome, entry.Outcome, c.name)
		assert.Equal(t, target, entry.Target, c.name)
		if c.outcome == audit.OutcomeDenied || c.outcome == audit.OutcomeBlocked {
			assert.NotEmpty(t, entry.Reason, c.name)
		}
	}
}

// TestEngine_AuditFailureFailsClosed tests that no operation completes
// without its audit entry.
func TestEngine_AuditFailureFailsClosed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.audit.fail.Store(true)
	_, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuditFailed)

	n, err := h.records.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "unaudited record must be rolled back")

	h.audit.fail.Store(false)
	rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	require.NoError(t, err)

	h.audit.fail.Store(true)
	plain, err := h.engine.Retrieve(ctx, RetrieveRequest{RecordID: rec.ID, TenantID: "acme", Actor: "root"})
	assert.Nil(t, plain)
	assert.ErrorIs(t, err, ErrAuditFailed)

	_, err = h.engine.Retrieve(ctx, RetrieveRequest{RecordID: rec.ID, TenantID: "globex", Actor: "root"})
	assert.ErrorIs(t, err, governance.ErrAccessDenied)
	assert.ErrorIs(t, err, ErrAuditFailed)

	_, err = h.engine.CheckCompliance(ctx, compliance.Request{Operation: "store", SourceCountry: "US", Actor: "alice"})
	assert.ErrorIs(t, err, ErrAuditFailed)
}

// TestEngine_InputTooLarge tests the ingest size bound.
func TestEngine_InputTooLarge(t *testing.T) {
	h := newHarness(t)
	h.engine.maxInputBytes = 16
	ctx := context.Background()

	_, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: bytes.Repeat([]byte("x"), 17), Actor: "alice"})
	assert.ErrorIs(t, err, governance.ErrInputTooLarge)
	assert.Equal(t, audit.OutcomeFailure, h.latestEntry(t).Outcome)

	_, err = h.engine.Classify(ctx, string(bytes.Repeat([]byte("x"), 17)), classifier.Hints{}, "alice")
	assert.ErrorIs(t, err, governance.ErrInputTooLarge)

	_, err = h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte("sixteen bytes ok"), Actor: "alice"})
	assert.NoError(t, err)
}

// TestEngine_AnonymousActor tests that a missing actor is still audited.
func TestEngine_AnonymousActor(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.Retrieve(context.Background(), RetrieveRequest{RecordID: "nope", TenantID: "acme"})
	assert.ErrorIs(t, err, governance.ErrNotFound)
	assert.Equal(t, AnonymousActor, h.latestEntry(t).Actor)
}

// TestEngine_Concurrent tests parallel ingest, reads and tenant creation.
func TestEngine_Concurrent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const workers = 32
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			tenant := fmt.Sprintf("tenant-%d", i%4)
			rec, err := h.engine.Store(gctx, StoreRequest{TenantID: tenant, Data: []byte(ssnText), Actor: "worker"})
			if err != nil {
				return err
			}
			plain, err := h.engine.Retrieve(gctx, RetrieveRequest{RecordID: rec.ID, TenantID: tenant, Actor: "worker", Roles: []string{"admin"}})
			if err != nil {
				return err
			}
			if string(plain) != ssnText {
				return fmt.Errorf("worker %d read %q", i, plain)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(2*workers), h.auditCount(t))

	var created atomic.Int32
	var tg errgroup.Group
	for i := 0; i < 10; i++ {
		tg.Go(func() error {
			_, err := h.engine.CreateTenant(ctx, "racy", "Racy", vault.Options{}, "root")
			switch {
			case err == nil:
				created.Add(1)
			case !errors.Is(err, governance.ErrTenantExists):
				return err
			}
			return nil
		})
	}
	require.NoError(t, tg.Wait())
	assert.Equal(t, int32(1), created.Load())
}

// TestEngine_Telemetry tests that operations emit spans and metrics.
func TestEngine_Telemetry(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := tracing.NewWithExporter(&config.TracingConfig{Enabled: true, Sampler: tracing.SamplerAlways}, exporter)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "test"}, registry)

	h := newHarness(t, WithTracer(tracer), WithMetrics(collector))
	ctx := context.Background()

	rec, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	require.NoError(t, err)
	_, err = h.engine.Retrieve(ctx, RetrieveRequest{RecordID: rec.ID, TenantID: "acme", Actor: "bob", Roles: []string{"user"}})
	require.Error(t, err)

	require.NoError(t, tracer.ForceFlush(ctx))
	names := make([]string, 0)
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "engine.store")
	assert.Contains(t, names, "engine.retrieve")

	count, err := testutil.GatherAndCount(registry, "test_records_stored_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(registry, "test_access_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// TestEngine_HealthChecks tests the component checks.
func TestEngine_HealthChecks(t *testing.T) {
	h := newHarness(t)

	checks := h.engine.HealthChecks()
	require.Len(t, checks, 3)
	for name, check := range checks {
		assert.NoError(t, check(context.Background()), name)
	}
}
