package config

import "time"

// Engine modes.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultEngineMode    = ModeDevelopment
	DefaultRootActor     = "root"
	DefaultMaxInputBytes = 10 * 1024 * 1024
	DefaultRuleOrdering  = "insertion"

	// Classifier defaults
	DefaultClassifierIncludeDefaults = true

	// Storage defaults
	DefaultStorageBackend    = "memory"
	DefaultStorageSQLitePath = "data/records.db"

	// Audit defaults
	DefaultAuditBackend          = "memory"
	DefaultAuditSQLitePath       = "data/audit.db"
	DefaultSQLiteMaxOpenConns    = 10
	DefaultSQLiteWALMode         = true
	DefaultSQLiteBusyTimeout     = 5 * time.Second
	DefaultPostgresPort          = 5432
	DefaultPostgresSSLMode       = "require"
	DefaultPostgresMaxConns      = 10
	DefaultAuditExportFormat     = "json"
	DefaultAuditExportMaxEntries = 1000000

	// Retention defaults
	DefaultRetentionEnabled  = true
	DefaultRetentionSchedule = "0 3 * * *"

	// Secrets defaults
	DefaultSecretsEnvPrefix    = "SOVEREIGN_SECRET_"
	DefaultSecretsWatch        = true
	DefaultSecretsCacheEnabled = true
	DefaultSecretsCacheTTL     = 5 * time.Minute
	DefaultSecretsCacheMaxSize = 1000

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:9090"
	DefaultReadTimeout     = 10 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultTLSMinVersion   = "1.3"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLoggingRedactPII   = true
	DefaultMetricsEnabled     = true
	DefaultPrometheusPath     = "/metrics"
	DefaultMetricsNamespace   = "sovereign"
	DefaultTracingEnabled     = false
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingService     = "sovereign"
	DefaultTracingInsecure    = true
	DefaultTracingTimeout     = 10 * time.Second
	DefaultHealthEnabled      = true
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// DefaultDurationBuckets are the operation duration histogram buckets.
var DefaultDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// Default returns a configuration with every default applied, including
// boolean defaults. Files are decoded over it so that absent booleans keep
// their default rather than the zero value.
func Default() *Config {
	cfg := &Config{
		Classifier: ClassifierConfig{IncludeDefaults: DefaultClassifierIncludeDefaults},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{WALMode: DefaultSQLiteWALMode},
		},
		Audit: AuditConfig{
			SQLite: SQLiteConfig{WALMode: DefaultSQLiteWALMode},
		},
		Retention: RetentionConfig{Enabled: DefaultRetentionEnabled},
		Secrets: SecretsConfig{
			Watch: DefaultSecretsWatch,
			Cache: SecretsCacheConfig{Enabled: DefaultSecretsCacheEnabled},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactPII: DefaultLoggingRedactPII},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{
				Enabled:  DefaultTracingEnabled,
				Insecure: DefaultTracingInsecure,
			},
			Health: HealthConfig{Enabled: DefaultHealthEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued string, numeric and duration fields.
// Booleans are left alone; start from Default to get boolean defaults.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.Mode == "" {
		cfg.Engine.Mode = DefaultEngineMode
	}
	if cfg.Engine.RootActor == "" {
		cfg.Engine.RootActor = DefaultRootActor
	}
	if cfg.Engine.MaxInputBytes == 0 {
		cfg.Engine.MaxInputBytes = DefaultMaxInputBytes
	}
	if cfg.Engine.RuleOrdering == "" {
		cfg.Engine.RuleOrdering = DefaultRuleOrdering
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultStorageSQLitePath
	}
	applySQLiteDefaults(&cfg.Storage.SQLite)

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	applySQLiteDefaults(&cfg.Audit.SQLite)
	if cfg.Audit.Postgres.Port == 0 {
		cfg.Audit.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Audit.Postgres.SSLMode == "" {
		cfg.Audit.Postgres.SSLMode = DefaultPostgresSSLMode
	}
	if cfg.Audit.Postgres.MaxConns == 0 {
		cfg.Audit.Postgres.MaxConns = DefaultPostgresMaxConns
	}
	if cfg.Audit.Export.Format == "" {
		cfg.Audit.Export.Format = DefaultAuditExportFormat
	}
	if cfg.Audit.Export.MaxEntries == 0 {
		cfg.Audit.Export.MaxEntries = DefaultAuditExportMaxEntries
	}

	// Retention defaults
	if cfg.Retention.PurgeSchedule == "" {
		cfg.Retention.PurgeSchedule = DefaultRetentionSchedule
	}

	// Secrets defaults
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
	if cfg.Secrets.Cache.TTL == 0 {
		cfg.Secrets.Cache.TTL = DefaultSecretsCacheTTL
	}
	if cfg.Secrets.Cache.MaxSize == 0 {
		cfg.Secrets.Cache.MaxSize = DefaultSecretsCacheMaxSize
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

func applySQLiteDefaults(cfg *SQLiteConfig) {
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = DefaultSQLiteBusyTimeout
	}
}
