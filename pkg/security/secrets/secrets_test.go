package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSecret(t *testing.T, dir, name, value string, perm os.FileMode) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(value), perm); err != nil {
		t.Fatal(err)
	}
}

// TestEnvProvider_Get tests name mapping onto prefixed variables.
func TestEnvProvider_Get(t *testing.T) {
	t.Setenv("SOVEREIGN_SECRET_MASTER_KEY", "from-env")
	p := NewEnvProvider("SOVEREIGN_SECRET_")

	if !p.Has("master-key") {
		t.Fatal("Has() = false, want true")
	}
	value, err := p.Get(context.Background(), "master-key")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if value != "from-env" {
		t.Errorf("expected 'from-env', got '%s'", value)
	}

	if _, err := p.Get(context.Background(), "absent"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Get(absent) error = %v, want ErrSecretNotFound", err)
	}
}

// TestFileProvider_Get tests reading and trimming a secret file.
func TestFileProvider_Get(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "master-key", "file-value\n", 0600)

	p, err := NewFileProvider(dir, false, nil)
	if err != nil {
		t.Fatalf("NewFileProvider() failed: %v", err)
	}
	defer p.Close()

	value, err := p.Get(context.Background(), "master-key")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if value != "file-value" {
		t.Errorf("expected 'file-value', got '%s'", value)
	}
}

// TestFileProvider_InsecurePermissions tests that world-readable files are refused.
func TestFileProvider_InsecurePermissions(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "loose", "value", 0644)

	p, err := NewFileProvider(dir, false, nil)
	if err != nil {
		t.Fatalf("NewFileProvider() failed: %v", err)
	}
	defer p.Close()

	if _, err := p.Get(context.Background(), "loose"); err == nil {
		t.Error("expected error for 0644 secret file")
	}
}

// TestFileProvider_Traversal tests that names cannot escape the directory.
func TestFileProvider_Traversal(t *testing.T) {
	p, err := NewFileProvider(t.TempDir(), false, nil)
	if err != nil {
		t.Fatalf("NewFileProvider() failed: %v", err)
	}
	defer p.Close()

	if p.Has("../etc/passwd") {
		t.Error("Has() accepted a traversal name")
	}
	if _, err := p.Get(context.Background(), "../etc/passwd"); err == nil {
		t.Error("Get() accepted a traversal name")
	}
}

// TestFileProvider_WatchInvalidates tests that rewriting a watched file is picked up.
func TestFileProvider_WatchInvalidates(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "rotating", "v1", 0600)

	p, err := NewFileProvider(dir, true, nil)
	if err != nil {
		t.Fatalf("NewFileProvider() failed: %v", err)
	}
	defer p.Close()

	changed := make(chan string, 4)
	p.OnChange(func(name string) { changed <- name })

	if v, _ := p.Get(context.Background(), "rotating"); v != "v1" {
		t.Fatalf("expected v1, got %s", v)
	}

	writeSecret(t, dir, "rotating", "v2", 0600)

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}

	if v, _ := p.Get(context.Background(), "rotating"); v != "v2" {
		t.Errorf("expected v2 after change, got %s", v)
	}
}

// TestManager_ProviderOrder tests that the first provider holding a secret wins.
func TestManager_ProviderOrder(t *testing.T) {
	t.Setenv("SOVEREIGN_SECRET_SHARED", "env-value")
	dir := t.TempDir()
	writeSecret(t, dir, "shared", "file-value", 0600)
	writeSecret(t, dir, "file-only", "only-in-file", 0400)

	files, err := NewFileProvider(dir, false, nil)
	if err != nil {
		t.Fatalf("NewFileProvider() failed: %v", err)
	}
	defer files.Close()

	m := NewManager([]Provider{NewEnvProvider("SOVEREIGN_SECRET_"), files}, CacheConfig{}, nil)

	if v, err := m.Get(context.Background(), "shared"); err != nil || v != "env-value" {
		t.Errorf("Get(shared) = %q, %v; want env-value", v, err)
	}
	if v, err := m.Get(context.Background(), "file-only"); err != nil || v != "only-in-file" {
		t.Errorf("Get(file-only) = %q, %v; want only-in-file", v, err)
	}
	if _, err := m.Get(context.Background(), "missing"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrSecretNotFound", err)
	}
}

// TestManager_Resolve tests reference detection.
func TestManager_Resolve(t *testing.T) {
	t.Setenv("SOVEREIGN_SECRET_MASTER_KEY", "resolved")
	m := NewManager([]Provider{NewEnvProvider("SOVEREIGN_SECRET_")}, CacheConfig{}, nil)

	tests := []struct {
		in   string
		want string
	}{
		{"${secret:master-key}", "resolved"},
		{"plain-value", "plain-value"},
		{"prefix ${secret:master-key}", "prefix ${secret:master-key}"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := m.Resolve(context.Background(), tt.in)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestManager_CacheAndInvalidate tests that cached values survive until invalidated.
func TestManager_CacheAndInvalidate(t *testing.T) {
	t.Setenv("SOVEREIGN_SECRET_TOKEN", "first")
	m := NewManager([]Provider{NewEnvProvider("SOVEREIGN_SECRET_")},
		CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 2}, nil)

	if v, _ := m.Get(context.Background(), "token"); v != "first" {
		t.Fatalf("expected first, got %s", v)
	}
	t.Setenv("SOVEREIGN_SECRET_TOKEN", "second")
	if v, _ := m.Get(context.Background(), "token"); v != "first" {
		t.Errorf("expected cached value 'first', got %s", v)
	}

	m.Invalidate()
	if v, _ := m.Get(context.Background(), "token"); v != "second" {
		t.Errorf("expected 'second' after invalidation, got %s", v)
	}
}

// TestCache_Eviction tests the size bound and TTL expiry.
func TestCache_Eviction(t *testing.T) {
	now := time.Unix(1000, 0)
	c := newCache(CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 2})
	c.now = func() time.Time { return now }

	c.set("a", "1")
	now = now.Add(time.Second)
	c.set("b", "2")
	now = now.Add(time.Second)
	c.set("c", "3")

	if c.size() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.size())
	}
	if _, ok := c.get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.get("c"); ok {
		t.Error("expired entry should not be returned")
	}
}
