package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "SOVEREIGN_"

// LoadConfig loads configuration from a YAML file at path. Defaults are
// applied and the result is validated. Environment variables are not
// consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 - path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies SOVEREIGN_SECTION_FIELD environment overrides, which take
// precedence over the file. An empty path starts from the defaults.
//
// The loading sequence is:
// 1. Start from defaults
// 2. Decode YAML from file over them
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		// #nosec G304 - path comes from the command line
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if cfg, err = parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies SOVEREIGN_* environment variables. A value that
// does not parse for its field is an error.
func applyEnvOverrides(cfg *Config) error {
	o := envOverrides{}

	// Engine overrides
	o.setString("ENGINE_MODE", &cfg.Engine.Mode)
	o.setString("ENGINE_MASTER_KEY", &cfg.Engine.MasterKey)
	o.setString("ENGINE_ROOT_ACTOR", &cfg.Engine.RootActor)
	o.setInt("ENGINE_MAX_INPUT_BYTES", &cfg.Engine.MaxInputBytes)
	o.setString("ENGINE_RULE_ORDERING", &cfg.Engine.RuleOrdering)

	// Classifier and compliance overrides
	o.setString("CLASSIFIER_RULES_FILE", &cfg.Classifier.RulesFile)
	o.setBool("CLASSIFIER_INCLUDE_DEFAULTS", &cfg.Classifier.IncludeDefaults)
	o.setString("COMPLIANCE_TABLES_FILE", &cfg.Compliance.TablesFile)

	// Storage overrides
	o.setString("STORAGE_BACKEND", &cfg.Storage.Backend)
	o.setString("STORAGE_SQLITE_PATH", &cfg.Storage.SQLite.Path)

	// Audit overrides
	o.setString("AUDIT_BACKEND", &cfg.Audit.Backend)
	o.setString("AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	o.setString("AUDIT_POSTGRES_HOST", &cfg.Audit.Postgres.Host)
	o.setInt("AUDIT_POSTGRES_PORT", &cfg.Audit.Postgres.Port)
	o.setString("AUDIT_POSTGRES_DATABASE", &cfg.Audit.Postgres.Database)
	o.setString("AUDIT_POSTGRES_USER", &cfg.Audit.Postgres.User)
	o.setString("AUDIT_POSTGRES_PASSWORD", &cfg.Audit.Postgres.Password)
	o.setString("AUDIT_POSTGRES_SSL_MODE", &cfg.Audit.Postgres.SSLMode)
	o.setString("AUDIT_EXPORT_FORMAT", &cfg.Audit.Export.Format)

	// Retention overrides
	o.setBool("RETENTION_ENABLED", &cfg.Retention.Enabled)
	o.setString("RETENTION_PURGE_SCHEDULE", &cfg.Retention.PurgeSchedule)

	// Secrets overrides
	o.setString("SECRETS_ENV_PREFIX", &cfg.Secrets.EnvPrefix)
	o.setString("SECRETS_FILE_PATH", &cfg.Secrets.FilePath)
	o.setBool("SECRETS_WATCH", &cfg.Secrets.Watch)
	o.setBool("SECRETS_CACHE_ENABLED", &cfg.Secrets.Cache.Enabled)
	o.setDuration("SECRETS_CACHE_TTL", &cfg.Secrets.Cache.TTL)

	// Server overrides
	o.setString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	o.setBool("SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled)
	o.setString("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	o.setString("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)

	// Telemetry overrides
	o.setString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	o.setString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	o.setBool("TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	o.setBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	o.setString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	o.setBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	o.setString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	o.setFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)

	if len(o.errs) > 0 {
		return ValidationError{Errors: o.errs}
	}
	return nil
}

// envOverrides reads typed SOVEREIGN_* variables and collects parse errors.
type envOverrides struct {
	errs []FieldError
}

func (o *envOverrides) lookup(name string) (string, bool) {
	val := os.Getenv(EnvPrefix + name)
	return val, val != ""
}

func (o *envOverrides) fail(name string, err error) {
	o.errs = append(o.errs, FieldError{
		Field:   EnvPrefix + name,
		Message: fmt.Sprintf("invalid value: %v", err),
	})
}

func (o *envOverrides) setString(name string, dst *string) {
	if val, ok := o.lookup(name); ok {
		*dst = val
	}
}

func (o *envOverrides) setBool(name string, dst *bool) {
	if val, ok := o.lookup(name); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			o.fail(name, err)
			return
		}
		*dst = b
	}
}

func (o *envOverrides) setInt(name string, dst *int) {
	if val, ok := o.lookup(name); ok {
		i, err := strconv.Atoi(val)
		if err != nil {
			o.fail(name, err)
			return
		}
		*dst = i
	}
}

func (o *envOverrides) setFloat(name string, dst *float64) {
	if val, ok := o.lookup(name); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			o.fail(name, err)
			return
		}
		*dst = f
	}
}

func (o *envOverrides) setDuration(name string, dst *time.Duration) {
	if val, ok := o.lookup(name); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			o.fail(name, err)
			return
		}
		*dst = d
	}
}

// DSN builds a PostgreSQL connection URL. password is passed separately so
// callers can resolve secret references first.
func (c PostgresConfig) DSN(password string) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if password != "" {
		u.User = url.UserPassword(c.User, password)
	} else {
		u.User = url.User(c.User)
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
