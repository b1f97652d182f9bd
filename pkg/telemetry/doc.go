// Package telemetry wires logging, metrics, tracing and health checks from
// the telemetry section of the configuration.
//
// # Components
//
//   - logging: slog with PII and key redaction
//   - metrics: Prometheus collector for engine operations
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness and readiness endpoints
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry, version)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	eng, err := engine.New(engine.Config{...},
//	    engine.WithLogger(tel.Logger),
//	    engine.WithMetrics(tel.Metrics),
//	    engine.WithTracer(tel.Tracer),
//	)
package telemetry
