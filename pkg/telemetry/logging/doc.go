// Package logging configures log/slog for the governance engine.
//
// New returns a *slog.Logger whose handler redacts PII and key material from
// string attributes before they reach the output, and adds the actor,
// tenant and request ID stored in the context by WithActor, WithTenant and
// WithRequestID:
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	})
//	ctx = logging.WithTenant(ctx, "acme")
//	logger.InfoContext(ctx, "record stored", "record_id", id)
//
// Redaction applies default patterns (emails, SSNs, card numbers, phone
// numbers, bearer tokens, password assignments, base64 256-bit keys) plus
// any custom patterns. Attributes whose key names a secret (password,
// token, secret, master_key, plaintext, ...) are masked regardless of
// content.
package logging
