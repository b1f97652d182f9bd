package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"mercator-hq/sovereign/pkg/audit"
	auditstorage "mercator-hq/sovereign/pkg/audit/storage"
	"mercator-hq/sovereign/pkg/classifier"
	"mercator-hq/sovereign/pkg/cli"
	"mercator-hq/sovereign/pkg/compliance"
	"mercator-hq/sovereign/pkg/config"
	"mercator-hq/sovereign/pkg/engine"
	"mercator-hq/sovereign/pkg/policy/catalog"
	"mercator-hq/sovereign/pkg/records"
	recordstorage "mercator-hq/sovereign/pkg/records/storage"
	"mercator-hq/sovereign/pkg/security/auth"
	"mercator-hq/sovereign/pkg/security/secrets"
	"mercator-hq/sovereign/pkg/security/vault"
	"mercator-hq/sovereign/pkg/telemetry"
	"mercator-hq/sovereign/pkg/telemetry/logging"
	"mercator-hq/sovereign/pkg/telemetry/tracing"
)

// system is a fully wired engine and the resources it holds.
type system struct {
	cfg       *config.Config
	telemetry *telemetry.Telemetry
	secrets   *secrets.Manager
	engine    *engine.Engine
	auditLog  *audit.Log
	opsAuth   *auth.Middleware

	closers []io.Closer
}

// bootstrap builds every component named in cfg. Logs go to logOut.
// The caller must Close the returned system.
func bootstrap(ctx context.Context, cfg *config.Config, logOut io.Writer) (sys *system, err error) {
	tel, err := telemetry.New(&cfg.Telemetry, Version, logOut)
	if err != nil {
		return nil, cli.NewConfigError("telemetry", err.Error())
	}
	logger := tel.Logger

	sys = &system{cfg: cfg, telemetry: tel}
	defer func() {
		if err != nil {
			sys.Close(context.Background())
			sys = nil
		}
	}()

	sys.secrets, err = sys.newSecretsManager(cfg.Secrets, logger)
	if err != nil {
		return sys, err
	}

	masterKey, source, err := vault.ResolveMasterKey(ctx, vault.MasterKeyConfig{
		Value:      cfg.Engine.MasterKey,
		Production: cfg.Engine.Production(),
	}, sys.secrets, logger)
	if err != nil {
		return sys, err
	}
	logger.Debug("master key resolved", "source", source)

	v, err := vault.New(masterKey, logger)
	if err != nil {
		return sys, err
	}

	store, err := openRecordStorage(cfg.Storage)
	if err != nil {
		return sys, err
	}
	sys.closers = append(sys.closers, store)

	auditBackend, err := openAuditStorage(ctx, cfg.Audit, sys.secrets)
	if err != nil {
		return sys, err
	}
	sys.auditLog = audit.NewLog(auditBackend, logger)
	sys.closers = append(sys.closers, sys.auditLog)

	cls, err := newClassifier(cfg, logger)
	if err != nil {
		return sys, err
	}

	tables, err := loadComplianceTables(cfg.Compliance)
	if err != nil {
		return sys, err
	}
	evaluator, err := compliance.New(tables, compliance.WithLogger(logger))
	if err != nil {
		return sys, err
	}

	sys.engine, err = engine.New(engine.Config{
		Classifier:    cls,
		Catalog:       catalog.New(logger),
		Vault:         v,
		Records:       store,
		Audit:         sys.auditLog,
		Compliance:    evaluator,
		RootActor:     cfg.Engine.RootActor,
		MaxInputBytes: int64(cfg.Engine.MaxInputBytes),
	},
		engine.WithLogger(logger),
		engine.WithMetrics(tel.Metrics),
		engine.WithTracer(tel.Tracer),
	)
	if err != nil {
		return sys, err
	}

	for name, check := range sys.engine.HealthChecks() {
		tel.Health.Register(name, check)
	}

	sys.opsAuth, err = newOpsAuth(ctx, cfg, sys.secrets, logger)
	if err != nil {
		return sys, err
	}
	return sys, nil
}

// Close releases storage and flushes telemetry. Errors are joined.
func (s *system) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newSecretsManager reads the environment first, then the secrets
// directory when one is configured.
func (s *system) newSecretsManager(cfg config.SecretsConfig, logger *slog.Logger) (*secrets.Manager, error) {
	providers := []secrets.Provider{secrets.NewEnvProvider(cfg.EnvPrefix)}
	if cfg.FilePath != "" {
		fp, err := secrets.NewFileProvider(cfg.FilePath, cfg.Watch, logger)
		if err != nil {
			return nil, cli.NewConfigError("secrets.file_path", err.Error())
		}
		providers = append(providers, fp)
		s.closers = append(s.closers, fp)
	}
	return secrets.NewManager(providers, secrets.CacheConfig{
		Enabled: cfg.Cache.Enabled,
		TTL:     cfg.Cache.TTL,
		MaxSize: cfg.Cache.MaxSize,
	}, logger), nil
}

// newOpsAuth resolves the configured bearer tokens. The liveness probe
// stays public.
func newOpsAuth(ctx context.Context, cfg *config.Config, resolver vault.Resolver, logger *slog.Logger) (*auth.Middleware, error) {
	tokens := make([]string, 0, len(cfg.Server.AuthTokens))
	for i, ref := range cfg.Server.AuthTokens {
		token, err := resolver.Resolve(ctx, ref)
		if err != nil {
			return nil, cli.NewConfigError(fmt.Sprintf("server.auth_tokens[%d]", i), err.Error())
		}
		tokens = append(tokens, token)
	}
	validator, err := auth.NewTokenValidator(tokens)
	if err != nil {
		return nil, cli.NewConfigError("server.auth_tokens", err.Error())
	}
	return auth.NewMiddleware(validator, []string{cfg.Telemetry.Health.LivenessPath}, logger), nil
}

func openRecordStorage(cfg config.StorageConfig) (records.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return recordstorage.NewMemoryStorage(), nil
	case "sqlite":
		s, err := recordstorage.NewSQLiteStorage(recordstorage.SQLiteConfig{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open record storage: %w", err)
		}
		return s, nil
	default:
		return nil, cli.NewConfigError("storage.backend", fmt.Sprintf("unsupported backend %q", cfg.Backend))
	}
}

func openAuditStorage(ctx context.Context, cfg config.AuditConfig, resolver vault.Resolver) (audit.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return auditstorage.NewMemoryStorage(), nil
	case "sqlite":
		s, err := auditstorage.NewSQLiteStorage(&auditstorage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open audit storage: %w", err)
		}
		return s, nil
	case "postgres":
		password, err := resolver.Resolve(ctx, cfg.Postgres.Password)
		if err != nil {
			return nil, cli.NewConfigError("audit.postgres.password", err.Error())
		}
		s, err := auditstorage.NewPostgresStorage(ctx, auditstorage.PostgresConfig{
			DSN:      cfg.Postgres.DSN(password),
			MaxConns: int32(cfg.Postgres.MaxConns),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open audit storage: %w", err)
		}
		return s, nil
	default:
		return nil, cli.NewConfigError("audit.backend", fmt.Sprintf("unsupported backend %q", cfg.Backend))
	}
}

func newClassifier(cfg *config.Config, logger *slog.Logger) (*classifier.Classifier, error) {
	opts := []classifier.Option{
		classifier.WithLogger(logger),
		classifier.WithOrdering(classifier.Ordering(cfg.Engine.RuleOrdering)),
	}

	var cls *classifier.Classifier
	if cfg.Classifier.IncludeDefaults {
		var err error
		cls, err = classifier.NewWithDefaults(opts...)
		if err != nil {
			return nil, err
		}
	} else {
		cls = classifier.New(opts...)
	}

	if cfg.Classifier.RulesFile == "" {
		return cls, nil
	}
	rules, err := classifier.LoadRulesFile(cfg.Classifier.RulesFile)
	if err != nil {
		return nil, cli.NewConfigError("classifier.rules_file", err.Error())
	}
	for _, r := range rules {
		if err := cls.AddRule(r); err != nil {
			return nil, cli.NewConfigError("classifier.rules_file", err.Error())
		}
	}
	return cls, nil
}

func loadComplianceTables(cfg config.ComplianceConfig) (compliance.Tables, error) {
	tables := compliance.DefaultTables()
	if cfg.TablesFile == "" {
		return tables, nil
	}
	file, err := compliance.LoadTablesFile(cfg.TablesFile)
	if err != nil {
		return compliance.Tables{}, cli.NewConfigError("compliance.tables_file", err.Error())
	}
	merged := tables.Merge(file)
	if err := merged.Validate(); err != nil {
		return compliance.Tables{}, cli.NewConfigError("compliance.tables_file", err.Error())
	}
	return merged, nil
}

// withSystem loads config, wires a system that logs to stderr and runs fn.
// Used by the short-lived commands so stdout carries only their output.
func withSystem(fn func(ctx context.Context, sys *system) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	sys, err := bootstrap(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer cancel()
		if err := sys.Close(closeCtx); err != nil {
			sys.telemetry.Logger.Error("shutdown failed", "error", err)
		}
	}()

	return fn(commandContext(ctx), sys)
}

// commandContext joins the caller's trace from TRACEPARENT and tags the
// invocation with a request ID for its log entries.
func commandContext(ctx context.Context) context.Context {
	ctx = tracing.ContextFromEnvironment(ctx)
	return logging.WithRequestID(ctx, uuid.NewString())
}
