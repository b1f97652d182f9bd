/*
Package secrets resolves key material referenced from configuration.

# Overview

The engine never reads its master key from a hard-coded environment variable.
Instead, the configured value may be a reference of the form ${secret:name},
resolved here through an ordered list of providers. The first provider that
knows the secret wins.

# Providers

  - EnvProvider reads SOVEREIGN_SECRET_<NAME> style environment variables.
  - FileProvider reads one file per secret from a directory (Kubernetes-style
    mounts). Files must be mode 0600 or 0400. With watching enabled the
    provider invalidates its cache on change using fsnotify.

# Usage

	env := secrets.NewEnvProvider("SOVEREIGN_SECRET_")
	files, err := secrets.NewFileProvider("/var/run/secrets/sovereign", true, logger)
	if err != nil {
		return err
	}
	defer files.Close()

	mgr := secrets.NewManager([]secrets.Provider{env, files}, secrets.CacheConfig{
		Enabled: true,
		TTL:     5 * time.Minute,
		MaxSize: 64,
	}, logger)

	value, err := mgr.Resolve(ctx, "${secret:master-key}")

Values without a reference are returned unchanged. Secret names are redacted
in every log line.
*/
package secrets
