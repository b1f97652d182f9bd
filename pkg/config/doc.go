// Package config provides configuration management for the governance engine.
//
// Configuration is loaded from YAML with environment variable overrides and
// validated before use. There is no global instance; the loaded *Config is
// passed explicitly to the components that need it.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides("sovereign.yaml")
//
// An empty path starts from Default. LoadConfig reads a file without
// consulting the environment.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention SOVEREIGN_SECTION_FIELD:
//
//   - SOVEREIGN_ENGINE_MODE overrides engine.mode
//   - SOVEREIGN_ENGINE_MASTER_KEY overrides engine.master_key
//   - SOVEREIGN_AUDIT_BACKEND overrides audit.backend
//   - SOVEREIGN_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// A value that does not parse for its field fails loading.
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Validation collects every FieldError into one ValidationError:
//
//	configuration validation failed with 2 errors:
//	  - engine.master_key: master key is required in production mode
//	  - retention.purge_schedule: invalid cron expression: ...
//
// # Example Configuration
//
//	engine:
//	  mode: production
//	  master_key: "${secret:master_key}"
//	  root_actor: root
//
//	storage:
//	  backend: sqlite
//	  sqlite:
//	    path: data/records.db
//
//	audit:
//	  backend: postgres
//	  postgres:
//	    host: db.internal
//	    database: sovereign
//	    user: sovereign
//	    password: "${secret:audit_db_password}"
//
//	retention:
//	  purge_schedule: "0 3 * * *"
//
//	secrets:
//	  file_path: /run/secrets
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
package config
