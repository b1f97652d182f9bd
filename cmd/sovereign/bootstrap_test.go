package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/sovereign/pkg/classifier"
	"mercator-hq/sovereign/pkg/compliance"
	"mercator-hq/sovereign/pkg/config"
	"mercator-hq/sovereign/pkg/engine"
	"mercator-hq/sovereign/pkg/governance"
	"mercator-hq/sovereign/pkg/telemetry/logging"
	"mercator-hq/sovereign/pkg/telemetry/tracing"
)

const ssnText = "Employee SSN 123-45-6789"

const rulesYAML = `
rules:
  - id: project-codename
    name: Project codename
    patterns: ['\bPROJECT-[A-Z]+\b']
    category: business
    level: sensitive
`

const tablesYAML = `
geo_restrictions:
  - country_code: BR
    level: limited
    allowed_sector_modes: [civilian, government]
residency_policies:
  - id: br-lgpd
    region: BR
    data_types: [personal]
    cross_border_allowed: true
    cross_border_conditions: ["LGPD transfer mechanism required"]
    frameworks: [LGPD]
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Telemetry.Logging.Level = "error"
	return cfg
}

func mustBootstrap(t *testing.T, cfg *config.Config) *system {
	t.Helper()
	sys, err := bootstrap(context.Background(), cfg, io.Discard)
	if err != nil {
		t.Fatalf("bootstrap() failed: %v", err)
	}
	t.Cleanup(func() { sys.Close(context.Background()) })
	return sys
}

// TestBootstrap_Defaults tests wiring with the in-memory backends.
func TestBootstrap_Defaults(t *testing.T) {
	sys := mustBootstrap(t, testConfig(t))
	ctx := context.Background()

	rec, err := sys.engine.Store(ctx, engine.StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	if err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if rec.Classification != governance.ClassificationHighlySensitive {
		t.Errorf("Classification = %s, want %s", rec.Classification, governance.ClassificationHighlySensitive)
	}

	data, err := sys.engine.Retrieve(ctx, engine.RetrieveRequest{
		RecordID: rec.ID, TenantID: "acme", Actor: "bob", Roles: []string{"admin"},
	})
	if err != nil {
		t.Fatalf("Retrieve() failed: %v", err)
	}
	if string(data) != ssnText {
		t.Errorf("Retrieve() = %q, want %q", data, ssnText)
	}

	n, err := sys.auditLog.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("audit entries = %d, want 2", n)
	}
}

// TestBootstrap_SQLitePersistence tests that records and audit entries
// survive a restart with the SQLite backends.
func TestBootstrap_SQLitePersistence(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.SQLite.Path = filepath.Join(dir, "records.db")
	cfg.Audit.Backend = "sqlite"
	cfg.Audit.SQLite.Path = filepath.Join(dir, "audit.db")
	ctx := context.Background()

	first, err := bootstrap(ctx, cfg, io.Discard)
	if err != nil {
		t.Fatalf("bootstrap() failed: %v", err)
	}
	rec, err := first.engine.Store(ctx, engine.StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"})
	if err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if err := first.Close(ctx); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	second := mustBootstrap(t, cfg)
	data, err := second.engine.Retrieve(ctx, engine.RetrieveRequest{
		RecordID: rec.ID, TenantID: "acme", Actor: "bob", Roles: []string{"data-owner"},
	})
	if err != nil {
		t.Fatalf("Retrieve() after restart failed: %v", err)
	}
	if string(data) != ssnText {
		t.Errorf("Retrieve() = %q, want %q", data, ssnText)
	}

	n, err := second.auditLog.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("audit entries after restart = %d, want 2", n)
	}
}

// TestBootstrap_Errors tests rejected configurations.
func TestBootstrap_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{"unknown storage", func(cfg *config.Config) { cfg.Storage.Backend = "tape" }},
		{"unknown audit", func(cfg *config.Config) { cfg.Audit.Backend = "paper" }},
		{"missing rules file", func(cfg *config.Config) {
			cfg.Classifier.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")
		}},
		{"missing tables file", func(cfg *config.Config) {
			cfg.Compliance.TablesFile = filepath.Join(t.TempDir(), "missing.yaml")
		}},
		{"production without key", func(cfg *config.Config) { cfg.Engine.Mode = config.ModeProduction }},
		{"unresolvable key", func(cfg *config.Config) { cfg.Engine.MasterKey = "${secret:absent-master-key}" }},
		{"unresolvable auth token", func(cfg *config.Config) { cfg.Server.AuthTokens = []string{"${secret:absent-ops-token}"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			sys, err := bootstrap(context.Background(), cfg, io.Discard)
			if err == nil {
				sys.Close(context.Background())
				t.Fatal("bootstrap() succeeded, want error")
			}
			if !errors.Is(err, governance.ErrConfiguration) {
				t.Errorf("bootstrap() error = %v, want a configuration error", err)
			}
		})
	}
}

// TestBootstrap_SecretFile tests a master key read from the secrets
// directory.
func TestBootstrap_SecretFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "master-key")
	if _, err := runKeysGenerate(t, path, false); err != nil {
		t.Fatalf("generateKeys() failed: %v", err)
	}

	cfg := testConfig(t)
	cfg.Engine.Mode = config.ModeProduction
	cfg.Engine.MasterKey = "${secret:master-key}"
	cfg.Secrets.FilePath = dir
	cfg.Secrets.Watch = false

	sys := mustBootstrap(t, cfg)
	if _, err := sys.engine.Store(context.Background(), engine.StoreRequest{
		TenantID: "acme", Data: []byte(ssnText), Actor: "alice",
	}); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
}

// TestBootstrap_RulesAndTables tests custom rules and tables files.
func TestBootstrap_RulesAndTables(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	tables := filepath.Join(dir, "tables.yaml")
	writeFile(t, rules, rulesYAML)
	writeFile(t, tables, tablesYAML)

	cfg := testConfig(t)
	cfg.Classifier.RulesFile = rules
	cfg.Compliance.TablesFile = tables
	sys := mustBootstrap(t, cfg)
	ctx := context.Background()

	result, err := sys.engine.Classify(ctx, "Codename PROJECT-ATLAS", classifier.Hints{}, "alice")
	if err != nil {
		t.Fatalf("Classify() failed: %v", err)
	}
	if result.Classification != governance.ClassificationSensitive {
		t.Errorf("Classification = %s, want %s", result.Classification, governance.ClassificationSensitive)
	}

	check, err := sys.engine.CheckCompliance(ctx, compliance.Request{
		Operation:     "transfer",
		SourceCountry: "BR",
		TargetCountry: "US",
		DataTypes:     []string{"personal"},
		Actor:         "alice",
	})
	if err != nil {
		t.Fatalf("CheckCompliance() failed: %v", err)
	}
	if check.Result != governance.ResultConditional {
		t.Errorf("Result = %s, want %s", check.Result, governance.ResultConditional)
	}
	if len(check.Conditions) == 0 || !strings.Contains(strings.Join(check.Conditions, ";"), "LGPD") {
		t.Errorf("Conditions = %v, want the LGPD transfer condition", check.Conditions)
	}
}

// TestOpsHandler tests the health, readiness, version and metrics routes.
func TestOpsHandler(t *testing.T) {
	sys := mustBootstrap(t, testConfig(t))
	if _, err := sys.engine.Store(context.Background(), engine.StoreRequest{
		TenantID: "acme", Data: []byte(ssnText), Actor: "alice",
	}); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	srv := httptest.NewServer(opsHandler(sys))
	defer srv.Close()

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/health", http.StatusOK, "status"},
		{"/ready", http.StatusOK, "records"},
		{"/version", http.StatusOK, Version},
		{"/metrics", http.StatusOK, "sovereign_records_stored_total"},
		{"/unknown", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s failed: %v", tt.path, err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantCode {
				t.Errorf("GET %s = %d, want %d", tt.path, resp.StatusCode, tt.wantCode)
			}
			if tt.contains != "" && !strings.Contains(string(body), tt.contains) {
				t.Errorf("GET %s body missing %q:\n%s", tt.path, tt.contains, body)
			}
		})
	}
}

// TestOpsHandler_AuthTokens tests the bearer guard with a token resolved
// from the environment.
func TestOpsHandler_AuthTokens(t *testing.T) {
	t.Setenv("SOVEREIGN_SECRET_OPS_TOKEN", "ops-s3cret")
	cfg := testConfig(t)
	cfg.Server.AuthTokens = []string{"${secret:ops-token}", "literal-token"}
	sys := mustBootstrap(t, cfg)
	h := opsHandler(sys)

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"liveness is public", "/health", "", http.StatusOK},
		{"readiness needs token", "/ready", "", http.StatusUnauthorized},
		{"metrics needs token", "/metrics", "", http.StatusUnauthorized},
		{"secret token", "/metrics", "ops-s3cret", http.StatusOK},
		{"literal token", "/version", "literal-token", http.StatusOK},
		{"unresolved reference is not a token", "/ready", "${secret:ops-token}", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

// TestOpsHandler_Disabled tests that disabled endpoints are not mounted.
func TestOpsHandler_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.Health.Enabled = false
	cfg.Telemetry.Metrics.Enabled = false
	sys := mustBootstrap(t, cfg)

	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		opsHandler(sys).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

// TestCommandContext tests that commands join the caller's trace and get a
// request ID.
func TestCommandContext(t *testing.T) {
	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	t.Setenv(tracing.TraceParentEnv, "00-"+traceID+"-00f067aa0ba902b7-01")

	ctx := commandContext(context.Background())
	if got := tracing.TraceID(ctx); got != traceID {
		t.Errorf("trace id = %q, want %q", got, traceID)
	}
	first := logging.GetRequestID(ctx)
	if first == "" {
		t.Fatal("request id not set")
	}
	if next := logging.GetRequestID(commandContext(context.Background())); next == first {
		t.Errorf("request id %q reused across invocations", next)
	}
}
