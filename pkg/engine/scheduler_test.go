package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct {
	calls atomic.Int32
	n     int
	err   error
}

func (p *countingPurger) PurgeExpired(ctx context.Context) (int, error) {
	p.calls.Add(1)
	return p.n, p.err
}

// TestNewScheduler tests schedule validation.
func TestNewScheduler(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"daily", "0 3 * * *", false},
		{"every six hours", "0 */6 * * *", false},
		{"descriptor", "@hourly", false},
		{"empty", "", true},
		{"garbage", "invalid cron", true},
		{"six fields", "0 0 3 * * *", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheduler(&countingPurger{}, tt.schedule, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewScheduler(%q) error = %v, wantErr %v", tt.schedule, err, tt.wantErr)
			}
		})
	}
}

// TestScheduler_StartStop tests the scheduler lifecycle.
func TestScheduler_StartStop(t *testing.T) {
	s, err := NewScheduler(&countingPurger{}, "0 3 * * *", nil)
	if err != nil {
		t.Fatalf("NewScheduler() failed: %v", err)
	}

	if s.NextRun() != nil {
		t.Error("NextRun() should be nil before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("IsRunning() = false after Start")
	}
	if err := s.Start(ctx); err != nil {
		t.Errorf("second Start() failed: %v", err)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	s.Stop()
}

// TestScheduler_ContextCancel tests that cancelling the start context stops
// the scheduler.
func TestScheduler_ContextCancel(t *testing.T) {
	s, err := NewScheduler(&countingPurger{}, "@daily", nil)
	if err != nil {
		t.Fatalf("NewScheduler() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for s.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.IsRunning() {
		t.Error("scheduler still running after context cancel")
	}
}

// TestScheduler_RunNow tests a manual purge cycle.
func TestScheduler_RunNow(t *testing.T) {
	purger := &countingPurger{n: 3}
	s, err := NewScheduler(purger, "@daily", nil)
	if err != nil {
		t.Fatalf("NewScheduler() failed: %v", err)
	}

	n, err := s.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("RunNow() = %d, want 3", n)
	}
	if last, lastErr := s.LastRun(); last.IsZero() || lastErr != nil {
		t.Errorf("LastRun() = %v, %v", last, lastErr)
	}

	purger.err = errors.New("storage offline")
	if _, err := s.RunNow(context.Background()); err == nil {
		t.Error("RunNow() succeeded, want error")
	}
	if _, lastErr := s.LastRun(); lastErr == nil {
		t.Error("LastRun() did not record the failure")
	}
	if got := purger.calls.Load(); got != 2 {
		t.Errorf("purger called %d times, want 2", got)
	}
}

// TestScheduler_PurgesEngine tests the scheduler against a real engine.
func TestScheduler_PurgesEngine(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.engine.Store(ctx, StoreRequest{TenantID: "acme", Data: []byte(ssnText), Actor: "alice"}); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	s, err := NewScheduler(h.engine, "@daily", nil)
	if err != nil {
		t.Fatalf("NewScheduler() failed: %v", err)
	}

	h.clock.Advance(100 * 24 * time.Hour)
	n, err := s.RunNow(ctx)
	if err != nil {
		t.Fatalf("RunNow() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("RunNow() purged %d records, want 1", n)
	}
}
