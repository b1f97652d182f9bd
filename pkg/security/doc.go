/*
Package security groups the key management and transport protection used
by the governance engine.

# Subpackages

  - cipher: AES-256-GCM sealing of record payloads
  - vault: master key resolution and per-tenant key isolation
  - secrets: ${secret:name} references resolved from env or files
  - tls: HTTPS for the operational endpoint, with certificate reload
  - auth: bearer-token guard for the operational endpoint

# Secret References

Configuration values may name a secret instead of embedding it:

	manager := secrets.NewManager([]secrets.Provider{
		secrets.NewEnvProvider("SOVEREIGN_SECRET_"),
	}, secrets.CacheConfig{Enabled: true, TTL: 5 * time.Minute}, logger)

	key, err := manager.Resolve(ctx, "${secret:master-key}")

# Guarding the Ops Endpoint

	validator, err := auth.NewTokenValidator(tokens)
	if err != nil {
		return err
	}
	handler = auth.NewMiddleware(validator, []string{"/health"}, logger).Handle(handler)
*/
package security
