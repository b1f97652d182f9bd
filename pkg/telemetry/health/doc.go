// Package health serves liveness and readiness probes for "sovereign run".
//
// Components register a CheckFunc; readiness runs them concurrently with a
// per-check timeout and reports 503 when any fails:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.Register("audit", func(ctx context.Context) error {
//	    _, err := auditLog.Count(ctx, nil)
//	    return err
//	})
//	checker.Mount(mux, cfg.Telemetry.Health, version, commit)
package health
