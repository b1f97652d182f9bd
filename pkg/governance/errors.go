package governance

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates a record, policy, tenant or rule is absent.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied indicates a tenant isolation or role check failed.
	ErrAccessDenied = errors.New("access denied")

	// ErrDecryptionFailed indicates a ciphertext blob is malformed or its
	// authentication tag did not verify.
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")

	// ErrInvalidRule indicates a classification rule could not be compiled.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrConfiguration indicates a fatal startup configuration problem.
	ErrConfiguration = errors.New("configuration error")

	// ErrTenantExists indicates a tenant with the same ID is already registered.
	ErrTenantExists = errors.New("tenant already exists")

	// ErrInvalidValue indicates a value outside a closed enumeration or an
	// otherwise invalid argument.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInputTooLarge indicates the input exceeds the configured size bound.
	ErrInputTooLarge = errors.New("input too large")
)

// AccessDeniedError carries the reason an access check failed.
// The reason is always set.
type AccessDeniedError struct {
	Reason string
}

// Error implements the error interface.
func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// Is reports whether target is ErrAccessDenied.
func (e *AccessDeniedError) Is(target error) bool {
	return target == ErrAccessDenied
}

// Denied returns an *AccessDeniedError with a formatted reason.
func Denied(format string, args ...interface{}) error {
	return &AccessDeniedError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError identifies what was not found.
type NotFoundError struct {
	Kind string
	ID   string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound returns a *NotFoundError for the given kind and ID.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ConfigurationError describes a fatal configuration problem found at startup.
type ConfigurationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// DenialReason extracts the reason from an access denial, or "" if err is
// not one.
func DenialReason(err error) string {
	var denied *AccessDeniedError
	if errors.As(err, &denied) {
		return denied.Reason
	}
	return ""
}

// StatusCode maps an engine error to an HTTP status code.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidValue), errors.Is(err, ErrInvalidRule), errors.Is(err, ErrTenantExists):
		return http.StatusBadRequest
	case errors.Is(err, ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
