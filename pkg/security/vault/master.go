package vault

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/hkdf"

	"mercator-hq/sovereign/pkg/governance"
	"mercator-hq/sovereign/pkg/security/cipher"
)

const (
	masterKeyInfo      = "sovereign/master-key/v1"
	developmentKeySeed = "sovereign-development-only-master-key"
)

// KeySource says where the master key came from.
type KeySource string

const (
	SourceConfigured  KeySource = "configured"
	SourceDerived     KeySource = "derived"
	SourceDevelopment KeySource = "development"
)

// MasterKeyConfig is the master key configuration.
type MasterKeyConfig struct {
	// Value is base64 of 32 raw bytes, any other passphrase (derived with
	// HKDF-SHA256), or a ${secret:name} reference.
	Value string

	// Production refuses to start without a value.
	Production bool
}

// Resolver expands secret references in configuration values.
type Resolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}

// ResolveMasterKey turns configuration into a 32-byte master key.
//
// In production a missing value is a *governance.ConfigurationError. In
// development a deterministic key is derived from a fixed seed and a
// warning is logged.
func ResolveMasterKey(ctx context.Context, cfg MasterKeyConfig, resolver Resolver, logger *slog.Logger) ([]byte, KeySource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	value := cfg.Value
	if value != "" && resolver != nil {
		resolved, err := resolver.Resolve(ctx, value)
		if err != nil {
			return nil, "", &governance.ConfigurationError{
				Field:   "engine.master_key",
				Message: fmt.Sprintf("failed to resolve secret reference: %v", err),
			}
		}
		value = resolved
	}

	if value == "" {
		if cfg.Production {
			return nil, "", &governance.ConfigurationError{
				Field:   "engine.master_key",
				Message: "master key is required in production mode",
			}
		}
		key, err := DeriveKey(developmentKeySeed)
		if err != nil {
			return nil, "", err
		}
		logger.Warn("using deterministic DEVELOPMENT master key; never use this in production",
			"component", "vault")
		return key, SourceDevelopment, nil
	}

	if raw, err := base64.StdEncoding.DecodeString(value); err == nil && len(raw) == cipher.KeySize {
		return raw, SourceConfigured, nil
	}

	key, err := DeriveKey(value)
	if err != nil {
		return nil, "", err
	}
	return key, SourceDerived, nil
}

// DeriveKey stretches secret into a 32-byte key with HKDF-SHA256.
func DeriveKey(secret string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(masterKeyInfo))
	key := make([]byte, cipher.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}
