package secrets

import (
	"context"
	"errors"
)

// ErrSecretNotFound is returned when no provider holds the named secret.
var ErrSecretNotFound = errors.New("secret not found")

// Provider retrieves secrets from one backend.
type Provider interface {
	// Get returns the value of the named secret.
	Get(ctx context.Context, name string) (string, error)

	// Name identifies the provider in logs (env, file).
	Name() string

	// Has reports whether the provider can serve the secret.
	Has(name string) bool
}

// Invalidator is implemented by providers that cache values and can drop
// them on demand.
type Invalidator interface {
	Invalidate()
}
