package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"mercator-hq/sovereign/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

// TestNew tests logger construction from config values.
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"text debug", Config{Level: "debug", Format: "text"}, false},
		{"warning alias", Config{Level: "warning", Format: "console"}, false},
		{"bad level", Config{Level: "loud"}, true},
		{"bad format", Config{Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Writer = &bytes.Buffer{}
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

// TestNew_LevelFilter tests that entries below the level are dropped.
func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info entry written at warn level: %s", buf.String())
	}
	logger.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("warn entry missing: %s", buf.String())
	}
}

// TestNew_Redaction tests redaction of messages, attributes and groups.
func TestNew_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{
		RedactPII: true,
		Writer:    &buf,
		RedactPatterns: []config.RedactPattern{
			{Name: "tenant_ref", Pattern: `TNT-\d+`, Replacement: "[TENANT]"},
		},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.With("master_key", "c2VjcmV0").Info("contact alice@example.com",
		"note", "ref TNT-42 card 4111 1111 1111 1111",
		"count", 3,
		"record", map[string]string{"id": "r1"},
	)
	entry := decodeLine(t, &buf)

	if entry["msg"] != "contact [EMAIL]" {
		t.Errorf("msg = %v, want redacted email", entry["msg"])
	}
	if entry["master_key"] != "***" {
		t.Errorf("master_key = %v, want ***", entry["master_key"])
	}
	if entry["note"] != "ref [TENANT] card ****-****-****-****" {
		t.Errorf("note = %v", entry["note"])
	}
	if entry["count"] != float64(3) {
		t.Errorf("count = %v, want 3", entry["count"])
	}
}

// TestNew_RedactionDisabled tests that values pass through untouched.
func TestNew_RedactionDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("contact alice@example.com")
	entry := decodeLine(t, &buf)
	if entry["msg"] != "contact alice@example.com" {
		t.Errorf("msg = %v, want unredacted", entry["msg"])
	}
}

// TestNew_ContextFields tests that context values are attached to entries.
func TestNew_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithActor(ctx, "alice")
	ctx = WithTenant(ctx, "acme")
	logger.InfoContext(ctx, "stored")

	entry := decodeLine(t, &buf)
	for key, want := range map[string]string{
		string(RequestIDKey): "req-1",
		string(ActorKey):     "alice",
		string(TenantKey):    "acme",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %s", key, entry[key], want)
		}
	}
}

// TestParseLevel tests level parsing.
func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "INFO", "", "warn", "warning", "error"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseLevel("trace"); err == nil {
		t.Error("ParseLevel(trace) succeeded, want error")
	}
}

// TestFromConfig tests conversion from the application config section.
func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.LoggingConfig{Level: "debug", Format: "text", RedactPII: true})
	if cfg.Level != "debug" || cfg.Format != "text" || !cfg.RedactPII {
		t.Errorf("FromConfig() = %+v", cfg)
	}
}
