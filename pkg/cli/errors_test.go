package cli

import (
	"errors"
	"fmt"
	"testing"

	"mercator-hq/sovereign/pkg/governance"
)

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "engine.master_key",
		Message: "required in production mode",
	}

	expected := "config error in engine.master_key: required in production mode"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}

	if got := NewConfigError("", "bad file").Error(); got != "config error: bad file" {
		t.Errorf("Error() = %q", got)
	}

	if !errors.Is(err, governance.ErrConfiguration) {
		t.Error("ConfigError should match governance.ErrConfiguration")
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	underlying := governance.Denied("role mismatch")
	err := NewCommandError("audit", underlying)

	if err.Error() != "command audit failed: access denied: role mismatch" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, governance.ErrAccessDenied) {
		t.Error("errors.Is() should see through CommandError")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", NewConfigError("engine.mode", "bad"), ExitConfig},
		{"configuration error", &governance.ConfigurationError{Message: "no key"}, ExitConfig},
		{"denied", NewCommandError("check", governance.Denied("nope")), ExitDenied},
		{"not found", governance.NotFound("record", "r1"), ExitNotFound},
		{"too large", fmt.Errorf("store: %w", governance.ErrInputTooLarge), ExitTooLarge},
		{"integrity", governance.ErrDecryptionFailed, ExitIntegrity},
		{"invalid", fmt.Errorf("%w: sector", governance.ErrInvalidValue), ExitUsage},
		{"other", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
