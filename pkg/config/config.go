package config

import "time"

// Config is the root configuration for the governance engine.
// It is loaded from YAML with SOVEREIGN_* environment overrides.
type Config struct {
	// Engine contains core engine settings.
	Engine EngineConfig `yaml:"engine"`

	// Classifier contains classification rule settings.
	Classifier ClassifierConfig `yaml:"classifier"`

	// Compliance contains compliance table settings.
	Compliance ComplianceConfig `yaml:"compliance"`

	// Storage configures the record store backend.
	Storage StorageConfig `yaml:"storage"`

	// Audit configures the audit log backend and export.
	Audit AuditConfig `yaml:"audit"`

	// Retention configures the expired record purge.
	Retention RetentionConfig `yaml:"retention"`

	// Secrets configures secret resolution for ${secret:name} references.
	Secrets SecretsConfig `yaml:"secrets"`

	// Server configures the operational HTTP endpoint of "sovereign run".
	Server ServerConfig `yaml:"server"`

	// Telemetry contains logging, metrics and tracing settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains core engine settings.
type EngineConfig struct {
	// Mode is "development" or "production". Production requires a master key.
	// Default: "development"
	Mode string `yaml:"mode"`

	// MasterKey is base64 of 32 bytes, a passphrase, or a ${secret:name}
	// reference. Tenant keys are wrapped with it.
	MasterKey string `yaml:"master_key"`

	// RootActor is the identity allowed to read restricted records.
	// Default: "root"
	RootActor string `yaml:"root_actor"`

	// MaxInputBytes caps the size of classified and stored content.
	// Default: 10485760 (10MB)
	MaxInputBytes int `yaml:"max_input_bytes"`

	// RuleOrdering breaks ties between equally ranked rules.
	// Options: "insertion", "rule-id"
	// Default: "insertion"
	RuleOrdering string `yaml:"rule_ordering"`
}

// Production reports whether the engine runs in production mode.
func (c EngineConfig) Production() bool {
	return c.Mode == ModeProduction
}

// ClassifierConfig contains classification rule settings.
type ClassifierConfig struct {
	// RulesFile is an optional YAML file of additional rules.
	RulesFile string `yaml:"rules_file"`

	// IncludeDefaults loads the built-in rule set before RulesFile.
	// Default: true
	IncludeDefaults bool `yaml:"include_defaults"`
}

// ComplianceConfig contains compliance table settings.
type ComplianceConfig struct {
	// TablesFile is an optional YAML file merged over the built-in tables.
	TablesFile string `yaml:"tables_file"`
}

// StorageConfig configures the record store.
type StorageConfig struct {
	// Backend selects the implementation.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// AuditConfig configures the audit log.
type AuditConfig struct {
	// Backend selects the implementation.
	// Options: "memory", "sqlite", "postgres"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres configures the PostgreSQL backend.
	Postgres PostgresConfig `yaml:"postgres"`

	// Export configures audit exports.
	Export ExportConfig `yaml:"export"`
}

// SQLiteConfig contains SQLite database settings.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresConfig contains PostgreSQL settings.
type PostgresConfig struct {
	// Host is the database host.
	Host string `yaml:"host"`

	// Port is the database port.
	// Default: 5432
	Port int `yaml:"port"`

	// Database is the database name.
	Database string `yaml:"database"`

	// User is the database user.
	User string `yaml:"user"`

	// Password may be a ${secret:name} reference.
	Password string `yaml:"password"`

	// SSLMode is the libpq sslmode.
	// Default: "require"
	SSLMode string `yaml:"ssl_mode"`

	// MaxConns caps the connection pool.
	// Default: 10
	MaxConns int `yaml:"max_conns"`
}

// ExportConfig configures audit exports.
type ExportConfig struct {
	// Format is the default export format.
	// Options: "json", "csv"
	// Default: "json"
	Format string `yaml:"format"`

	// MaxEntries caps a single export (0 = unlimited).
	// Default: 1000000
	MaxEntries int `yaml:"max_entries"`
}

// RetentionConfig configures the expired record purge.
type RetentionConfig struct {
	// Enabled turns on the scheduled purge in "sovereign run".
	// Default: true
	Enabled bool `yaml:"enabled"`

	// PurgeSchedule is a cron expression.
	// Default: "0 3 * * *"
	PurgeSchedule string `yaml:"purge_schedule"`
}

// SecretsConfig configures secret resolution.
type SecretsConfig struct {
	// EnvPrefix is prepended to secret names looked up in the environment.
	// Default: "SOVEREIGN_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// FilePath is a directory of secret files, one per name. Empty disables
	// the file provider.
	FilePath string `yaml:"file_path"`

	// Watch reloads secret files on change.
	// Default: true
	Watch bool `yaml:"watch"`

	// Cache configures secret caching.
	Cache SecretsCacheConfig `yaml:"cache"`
}

// SecretsCacheConfig configures secret caching.
type SecretsCacheConfig struct {
	// Enabled controls caching.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// TTL is how long a resolved secret is cached.
	// Default: 5m
	TTL time.Duration `yaml:"ttl"`

	// MaxSize is the maximum number of cached secrets.
	// Default: 1000
	MaxSize int `yaml:"max_size"`
}

// ServerConfig configures the operational HTTP endpoint.
type ServerConfig struct {
	// ListenAddress is the host:port for health and metrics.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout bounds reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// TLS serves the endpoint over HTTPS.
	TLS TLSConfig `yaml:"tls"`

	// AuthTokens are bearer tokens accepted on every route except the
	// liveness probe. Each may be a ${secret:name} reference. Empty
	// disables authentication.
	AuthTokens []string `yaml:"auth_tokens"`
}

// TLSConfig configures HTTPS for the operational endpoint.
type TLSConfig struct {
	Enabled bool `yaml:"enabled"`

	// CertFile and KeyFile are PEM files. They are reloaded when they
	// change on disk.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ClientCAFile enables mutual TLS; clients must present a certificate
	// signed by this CA.
	ClientCAFile string `yaml:"client_ca_file"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactPII masks emails, card numbers, SSNs, phone numbers and key
	// material in log output.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "sovereign"
	Namespace string `yaml:"namespace"`

	// DurationBuckets defines histogram buckets for operation duration (seconds).
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "sovereign"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the export timeout.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the liveness probe path.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness probe path.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each component check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
