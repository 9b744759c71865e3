package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kbukum/steamlens/caller"
	"github.com/kbukum/steamlens/observability"
	"github.com/kbukum/steamlens/server/endpoint"
	"github.com/kbukum/steamlens/version"
)

// Diagnostics is what the diagnostics routes report on.
type Diagnostics struct {
	ServiceName string
	Caller      *caller.Caller
	// Gatherer backs /metrics; nil uses the default Prometheus gatherer.
	Gatherer prometheus.Gatherer
}

// RegisterDiagnostics registers the read-only diagnostics routes and, when
// Config.Admin is set, the operator routes.
//
//	GET  /health         aggregated health, degraded while the breaker is not closed
//	GET  /alive          liveness
//	GET  /stats          caller.Snapshot
//	GET  /metrics        Prometheus exposition
//	GET  /version        build info
//	POST /breaker/reset  force the breaker closed
//	POST /cache/clear    empty every cache tier
func (s *Server) RegisterDiagnostics(d Diagnostics) {
	breaker := observability.BreakerChecker{Breaker: d.Caller.Breaker()}

	s.engine.GET("/health", endpoint.Health(d.ServiceName, version.Get().Short(), breaker))
	s.engine.GET("/alive", endpoint.Liveness(d.ServiceName, s.created))
	s.engine.GET("/stats", endpoint.Stats(d.Caller.Stats))
	s.engine.GET("/metrics", endpoint.Metrics(d.Gatherer))
	s.engine.GET("/version", endpoint.Version())

	if s.config.Admin {
		s.engine.POST("/breaker/reset", endpoint.BreakerReset(d.Caller.Breaker()))
		s.engine.POST("/cache/clear", endpoint.CacheClear(d.Caller.ClearCaches))
	}
}
