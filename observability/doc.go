// Package observability provides OpenTelemetry tracing and health reporting.
//
// Tracing:
//
//	cfg := observability.DefaultTracerConfig("steamlens")
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "steam.session")
//	defer span.End()
//
// Health checks:
//
//	health := observability.NewServiceHealth("steamlens", version.Short())
//	health.AddComponent(observability.BreakerChecker{Breaker: cb}.CheckHealth(ctx))
package observability
