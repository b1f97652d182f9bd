package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "engine.mode").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Has reports whether field failed validation.
func (e ValidationError) Has(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Validate validates the entire configuration. All field errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateSecrets(&cfg.Secrets)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	switch cfg.Mode {
	case ModeDevelopment:
	case ModeProduction:
		if strings.TrimSpace(cfg.MasterKey) == "" {
			errs = append(errs, FieldError{
				Field:   "engine.master_key",
				Message: "master key is required in production mode",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "engine.mode",
			Message: fmt.Sprintf("invalid mode %q (must be development or production)", cfg.Mode),
		})
	}

	if strings.TrimSpace(cfg.RootActor) == "" {
		errs = append(errs, FieldError{
			Field:   "engine.root_actor",
			Message: "root actor is required",
		})
	}
	if cfg.MaxInputBytes <= 0 {
		errs = append(errs, FieldError{
			Field:   "engine.max_input_bytes",
			Message: "max input bytes must be positive",
		})
	}
	if cfg.RuleOrdering != "insertion" && cfg.RuleOrdering != "rule-id" {
		errs = append(errs, FieldError{
			Field:   "engine.rule_ordering",
			Message: fmt.Sprintf("invalid rule ordering %q (must be insertion or rule-id)", cfg.RuleOrdering),
		})
	}
	return errs
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		errs = append(errs, validateSQLite("storage.sqlite", &cfg.SQLite)...)
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory or sqlite)", cfg.Backend),
		})
	}
	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		errs = append(errs, validateSQLite("audit.sqlite", &cfg.SQLite)...)
	case "postgres":
		errs = append(errs, validatePostgres(&cfg.Postgres)...)
	default:
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory, sqlite or postgres)", cfg.Backend),
		})
	}

	if cfg.Export.Format != "json" && cfg.Export.Format != "csv" {
		errs = append(errs, FieldError{
			Field:   "audit.export.format",
			Message: fmt.Sprintf("invalid export format %q (must be json or csv)", cfg.Export.Format),
		})
	}
	if cfg.Export.MaxEntries < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.export.max_entries",
			Message: "max entries must be non-negative",
		})
	}
	return errs
}

func validateSQLite(prefix string, cfg *SQLiteConfig) []FieldError {
	var errs []FieldError
	if cfg.Path == "" {
		errs = append(errs, FieldError{Field: prefix + ".path", Message: "path is required"})
	}
	if cfg.MaxOpenConns < 0 {
		errs = append(errs, FieldError{Field: prefix + ".max_open_conns", Message: "must be non-negative"})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{Field: prefix + ".busy_timeout", Message: "must be non-negative"})
	}
	return errs
}

func validatePostgres(cfg *PostgresConfig) []FieldError {
	var errs []FieldError
	if cfg.Host == "" {
		errs = append(errs, FieldError{Field: "audit.postgres.host", Message: "host is required"})
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, FieldError{Field: "audit.postgres.port", Message: "port must be between 1 and 65535"})
	}
	if cfg.Database == "" {
		errs = append(errs, FieldError{Field: "audit.postgres.database", Message: "database is required"})
	}
	if cfg.User == "" {
		errs = append(errs, FieldError{Field: "audit.postgres.user", Message: "user is required"})
	}
	validModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if !validModes[cfg.SSLMode] {
		errs = append(errs, FieldError{
			Field:   "audit.postgres.ssl_mode",
			Message: fmt.Sprintf("invalid ssl mode %q", cfg.SSLMode),
		})
	}
	if cfg.MaxConns < 0 {
		errs = append(errs, FieldError{Field: "audit.postgres.max_conns", Message: "must be non-negative"})
	}
	return errs
}

func validateRetention(cfg *RetentionConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(cfg.PurgeSchedule); err != nil {
		return []FieldError{{
			Field:   "retention.purge_schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		}}
	}
	return nil
}

func validateSecrets(cfg *SecretsConfig) []FieldError {
	var errs []FieldError
	if cfg.Cache.TTL < 0 {
		errs = append(errs, FieldError{Field: "secrets.cache.ttl", Message: "ttl must be non-negative"})
	}
	if cfg.Cache.MaxSize < 0 {
		errs = append(errs, FieldError{Field: "secrets.cache.max_size", Message: "max size must be non-negative"})
	}
	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError
	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must be positive"})
	}
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "server.tls", Message: "cert_file and key_file are required when TLS is enabled"})
		}
		if cfg.TLS.MinVersion != "1.2" && cfg.TLS.MinVersion != "1.3" {
			errs = append(errs, FieldError{
				Field:   "server.tls.min_version",
				Message: fmt.Sprintf("unsupported TLS version %q (1.2, 1.3)", cfg.TLS.MinVersion),
			})
		}
	}
	for i, token := range cfg.AuthTokens {
		if token == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("server.auth_tokens[%d]", i), Message: "token must not be empty"})
		}
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn or error)", cfg.Logging.Level),
		})
	}
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json, text or console)", cfg.Logging.Format),
		})
	}
	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q (must be always, never or ratio)", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0 and 1",
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}

	if cfg.Health.Enabled {
		if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.liveness_path",
				Message: "liveness path must start with /",
			})
		}
		if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.readiness_path",
				Message: "readiness path must start with /",
			})
		}
	}
	return errs
}
