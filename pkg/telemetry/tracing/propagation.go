package tracing

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/propagation"
)

// TraceParentEnv is read by ContextFromEnvironment so that CLI invocations
// can join a trace started by the caller.
const TraceParentEnv = "TRACEPARENT"

// Propagator returns the W3C trace context and baggage propagator.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// ExtractFromMap returns ctx with the trace context found in carrier.
func ExtractFromMap(ctx context.Context, carrier map[string]string) context.Context {
	return Propagator().Extract(ctx, propagation.MapCarrier(carrier))
}

// InjectToMap writes the trace context of ctx into carrier.
func InjectToMap(ctx context.Context, carrier map[string]string) {
	Propagator().Inject(ctx, propagation.MapCarrier(carrier))
}

// ContextFromEnvironment returns ctx with the parent trace named by the
// TRACEPARENT environment variable, if set and valid.
func ContextFromEnvironment(ctx context.Context) context.Context {
	tp := os.Getenv(TraceParentEnv)
	if tp == "" {
		return ctx
	}
	return ExtractFromMap(ctx, map[string]string{"traceparent": tp})
}
