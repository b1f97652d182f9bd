package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"mercator-hq/sovereign/pkg/config"
)

// TestChecker_Readiness tests aggregation of component checks.
func TestChecker_Readiness(t *testing.T) {
	ctx := context.Background()

	checker := New(0)
	if checker.checkTimeout != 5*time.Second {
		t.Errorf("default timeout = %v, want 5s", checker.checkTimeout)
	}
	if got := checker.Readiness(ctx).Status; got != StatusReady {
		t.Errorf("no checks status = %q, want ready", got)
	}

	checker.Register("records", func(ctx context.Context) error { return nil })
	checker.Register("audit", func(ctx context.Context) error { return nil })
	if got := checker.Readiness(ctx); got.Status != StatusReady || len(got.Checks) != 2 {
		t.Errorf("healthy status = %+v", got)
	}

	checker.Register("audit", func(ctx context.Context) error { return errors.New("database is locked") })
	status := checker.Readiness(ctx)
	if status.Status != StatusDegraded {
		t.Errorf("status = %q, want degraded", status.Status)
	}
	if r := status.Checks["audit"]; r.Status != StatusUnhealthy || r.Message != "database is locked" {
		t.Errorf("audit result = %+v", r)
	}

	if names := checker.Names(); !reflect.DeepEqual(names, []string{"audit", "records"}) {
		t.Errorf("Names() = %v", names)
	}
}

// TestChecker_Timeout tests that slow checks are reported unhealthy.
func TestChecker_Timeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	status := checker.Readiness(context.Background())
	if r := status.Checks["slow"]; r.Status != StatusUnhealthy || r.Message != ErrCheckTimeout.Error() {
		t.Errorf("slow result = %+v", r)
	}
}

// TestHandlers tests the HTTP endpoints.
func TestHandlers(t *testing.T) {
	checker := New(time.Second)
	mux := http.NewServeMux()
	checker.Mount(mux, config.HealthConfig{LivenessPath: "/livez", ReadinessPath: "/readyz"}, "1.2.3", "abc")

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
	}{
		{"liveness", http.MethodGet, "/livez", http.StatusOK},
		{"liveness head", http.MethodHead, "/livez", http.StatusOK},
		{"readiness", http.MethodGet, "/readyz", http.StatusOK},
		{"version", http.MethodGet, "/version", http.StatusOK},
		{"post rejected", http.MethodPost, "/livez", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode version: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc" || info.GoVersion == "" {
		t.Errorf("version info = %+v", info)
	}

	checker.Register("vault", func(ctx context.Context) error { return errors.New("sealed") })
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded readiness status = %d, want 503", rec.Code)
	}
}
