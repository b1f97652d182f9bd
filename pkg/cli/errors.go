package cli

import (
	"errors"
	"fmt"

	"mercator-hq/sovereign/pkg/governance"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitUsage     = 2
	ExitConfig    = 3
	ExitDenied    = 4
	ExitNotFound  = 5
	ExitTooLarge  = 6
	ExitIntegrity = 7
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// Is reports whether target is governance.ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == governance.ErrConfiguration
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, governance.ErrConfiguration):
		return ExitConfig
	case errors.Is(err, governance.ErrAccessDenied):
		return ExitDenied
	case errors.Is(err, governance.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, governance.ErrInputTooLarge):
		return ExitTooLarge
	case errors.Is(err, governance.ErrDecryptionFailed):
		return ExitIntegrity
	case errors.Is(err, governance.ErrInvalidValue), errors.Is(err, governance.ErrInvalidRule):
		return ExitUsage
	default:
		return ExitFailure
	}
}
