package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
)

var referencePattern = regexp.MustCompile(`^\$\{secret:([A-Za-z0-9._-]+)\}$`)

// Manager resolves secrets through an ordered provider list.
type Manager struct {
	providers []Provider
	cache     *cache
	logger    *slog.Logger
}

// NewManager creates a manager. Providers are consulted in order.
func NewManager(providers []Provider, cfg CacheConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		providers: providers,
		cache:     newCache(cfg),
		logger:    logger.With("component", "secrets"),
	}
}

// Get returns the named secret from the cache or the first provider that
// has it.
func (m *Manager) Get(ctx context.Context, name string) (string, error) {
	if value, ok := m.cache.get(name); ok {
		return value, nil
	}

	var lastErr error
	for _, p := range m.providers {
		if !p.Has(name) {
			continue
		}
		value, err := p.Get(ctx, name)
		if err != nil {
			lastErr = err
			m.logger.Debug("secret provider failed", "provider", p.Name(), "name", redactName(name), "error", err)
			continue
		}
		m.cache.set(name, value)
		m.logger.Debug("secret resolved", "provider", p.Name(), "name", redactName(name))
		return value, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", redactName(name), lastErr)
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, redactName(name))
}

// Resolve returns value unchanged unless it is exactly a ${secret:name}
// reference, in which case the secret is looked up.
func (m *Manager) Resolve(ctx context.Context, value string) (string, error) {
	name, ok := Reference(value)
	if !ok {
		return value, nil
	}
	return m.Get(ctx, name)
}

// Invalidate drops cached values in the manager and in every provider
// that caches.
func (m *Manager) Invalidate() {
	m.cache.clear()
	for _, p := range m.providers {
		if inv, ok := p.(Invalidator); ok {
			inv.Invalidate()
		}
	}
}

// Reference extracts the secret name from a ${secret:name} value.
func Reference(value string) (string, bool) {
	match := referencePattern.FindStringSubmatch(value)
	if match == nil {
		return "", false
	}
	return match[1], true
}

func redactName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
