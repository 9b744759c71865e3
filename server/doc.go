// Package server provides the diagnostics HTTP server for steamlens, built
// on Gin.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: Panic recovery with structured logging
//   - RequestID: Request ID generation and propagation
//   - RequestLogger: Request logging with duration tracking
//
// # Endpoints
//
// Built-in endpoints (server/endpoint), registered by RegisterDiagnostics:
//
//   - /health: Health aggregation, degraded while the circuit breaker is not closed
//   - /alive: Liveness check
//   - /stats: Cache, rate limiter, circuit breaker and dispatcher stats
//   - /metrics: Prometheus metrics
//   - /version: Build version information
//   - /breaker/reset, /cache/clear: Operator actions (Config.Admin)
package server
