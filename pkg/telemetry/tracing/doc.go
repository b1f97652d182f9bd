// Package tracing provides OpenTelemetry tracing for engine operations.
//
// New returns a Tracer that exports spans over OTLP gRPC when tracing is
// enabled and a noop tracer otherwise:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "engine.Store")
//	tracing.SetRequestAttributes(span, actor, tenantID)
//	defer func() { tracing.End(span, err) }()
//
// Sampling is parent-based with an always, never or ratio root sampler.
// ContextFromEnvironment lets CLI invocations join a trace through the
// TRACEPARENT variable.
package tracing
