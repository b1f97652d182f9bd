package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider reads secrets from prefixed environment variables.
//
// The secret "master-key" with prefix "SOVEREIGN_SECRET_" is read from
// SOVEREIGN_SECRET_MASTER_KEY.
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider creates an environment variable provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix}
}

// Get reads the variable mapped from name.
func (p *EnvProvider) Get(ctx context.Context, name string) (string, error) {
	variable := p.variable(name)
	value, ok := os.LookupEnv(variable)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s not set", ErrSecretNotFound, variable)
	}
	return value, nil
}

// Name returns "env".
func (p *EnvProvider) Name() string {
	return "env"
}

// Has reports whether the mapped variable is set.
func (p *EnvProvider) Has(name string) bool {
	value, ok := os.LookupEnv(p.variable(name))
	return ok && value != ""
}

func (p *EnvProvider) variable(name string) string {
	return p.Prefix + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}
