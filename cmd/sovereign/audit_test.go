package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/sovereign/pkg/audit"
	"mercator-hq/sovereign/pkg/cli"
	"mercator-hq/sovereign/pkg/engine"
)

// TestParseTimeFlag tests absolute and relative time flags.
func TestParseTimeFlag(t *testing.T) {
	now := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		value   string
		want    *time.Time
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"rfc3339", "2025-11-19T00:00:00Z", ptrTime(time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC)), false},
		{"relative", "24h", ptrTime(now.Add(-24 * time.Hour)), false},
		{"negative", "-1h", nil, true},
		{"garbage", "yesterday", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimeFlag("since", tt.value, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTimeFlag(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if (got == nil) != (tt.want == nil) || (got != nil && !got.Equal(*tt.want)) {
				t.Errorf("parseTimeFlag(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

// TestBuildAuditQuery tests flag validation.
func TestBuildAuditQuery(t *testing.T) {
	defer resetAuditFlags()
	now := time.Now().UTC()

	auditFlags.action = "read"
	auditFlags.outcome = "denied"
	auditFlags.since = "1h"
	q, err := buildAuditQuery(now, 10)
	if err != nil {
		t.Fatalf("buildAuditQuery() failed: %v", err)
	}
	if q.Action != audit.ActionRead || q.Outcome != audit.OutcomeDenied || q.Limit != 10 {
		t.Errorf("buildAuditQuery() = %+v", q)
	}
	if q.StartTime == nil || q.EndTime != nil {
		t.Errorf("time bounds = %v, %v", q.StartTime, q.EndTime)
	}

	bad := []func(){
		func() { auditFlags.action = "shred" },
		func() { auditFlags.outcome = "maybe" },
		func() { auditFlags.since = "2025-11-20T00:00:00Z"; auditFlags.until = "2025-11-19T00:00:00Z" },
		func() { auditFlags.offset = -1 },
	}
	for i, mutate := range bad {
		resetAuditFlags()
		mutate()
		if _, err := buildAuditQuery(now, 0); cli.ExitCode(err) != cli.ExitConfig {
			t.Errorf("case %d: buildAuditQuery() error = %v, want a config error", i, err)
		}
	}
}

// TestExportTotal tests progress totals under offset and limit.
func TestExportTotal(t *testing.T) {
	tests := []struct {
		count         int64
		offset, limit int
		want          int64
	}{
		{10, 0, 0, 10},
		{10, 3, 0, 7},
		{10, 3, 5, 5},
		{10, 20, 0, 0},
	}
	for _, tt := range tests {
		got := exportTotal(tt.count, &audit.Query{Offset: tt.offset, Limit: tt.limit})
		if got != tt.want {
			t.Errorf("exportTotal(%d, offset=%d, limit=%d) = %d, want %d", tt.count, tt.offset, tt.limit, got, tt.want)
		}
	}
}

// TestAuditTable tests the text rendering of entries.
func TestAuditTable(t *testing.T) {
	entries := auditTable{{
		Sequence:  7,
		Timestamp: time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC),
		Actor:     "alice",
		TenantID:  "acme",
		Action:    audit.ActionRead,
		Target:    "record:abc",
		Outcome:   audit.OutcomeDenied,
		Reason:    "role not allowed",
	}}

	var buf bytes.Buffer
	if err := cli.NewFormatter(cli.FormatText).FormatTo(&buf, entries); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"SEQUENCE", "alice", "record:abc", "denied", "role not allowed", "2025-11-20T12:00:00Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// TestExportAudit tests a streamed export from a SQLite audit trail.
func TestExportAudit(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, `
audit:
  backend: sqlite
  sqlite:
    path: `+filepath.Join(dir, "audit.db")+`
telemetry:
  logging:
    level: error
  metrics:
    enabled: false
`)
	defer setConfigFile(cfgPath)()
	defer resetAuditFlags()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() failed: %v", err)
	}
	sys, err := bootstrap(context.Background(), cfg, io.Discard)
	if err != nil {
		t.Fatalf("bootstrap() failed: %v", err)
	}
	ctx := context.Background()
	for _, actor := range []string{"alice", "bob", "alice"} {
		if _, err := sys.engine.Store(ctx, engine.StoreRequest{TenantID: "acme", Data: []byte("hello"), Actor: actor}); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}
	if err := sys.Close(ctx); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	out := filepath.Join(dir, "alice.json")
	auditFlags.actor = "alice"
	auditFlags.exportFormat = "json"
	auditFlags.output = out

	var stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetErr(&stderr)
	if err := exportAudit(cmd, nil); err != nil {
		t.Fatalf("exportAudit() failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var exported []audit.Entry
	if err := json.Unmarshal(data, &exported); err != nil {
		t.Fatalf("export is not a JSON array: %v\n%s", err, data)
	}
	if len(exported) != 2 {
		t.Fatalf("exported %d entries, want 2", len(exported))
	}
	for _, e := range exported {
		if e.Actor != "alice" || e.Action != audit.ActionWrite {
			t.Errorf("unexpected entry %+v", e)
		}
	}
	if exported[0].Sequence < exported[1].Sequence {
		t.Error("export is not newest first")
	}
	if !strings.Contains(stderr.String(), "Exported to") {
		t.Errorf("stderr = %q, want completion message", stderr.String())
	}
}

func resetAuditFlags() {
	auditFlags.actor = ""
	auditFlags.tenant = ""
	auditFlags.action = ""
	auditFlags.target = ""
	auditFlags.outcome = ""
	auditFlags.since = ""
	auditFlags.until = ""
	auditFlags.offset = 0
	auditFlags.output = ""
	auditFlags.queryLimit = 100
	auditFlags.queryFormat = "text"
	auditFlags.exportLimit = 0
	auditFlags.exportFormat = ""
}

// setConfigFile points --config at path and returns a restore func.
func setConfigFile(path string) func() {
	orig := cfgFile
	cfgFile = path
	return func() { cfgFile = orig }
}
