package observability

import (
	"context"
	"strconv"

	"github.com/kbukum/steamlens/resilience"
)

// HealthStatus represents the health state of a component or service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the health of an individual component.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// ServiceHealth describes the overall health of a service and its components.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// HealthChecker is implemented by components that can report their health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// NewServiceHealth creates a ServiceHealth with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{
		Service: service,
		Status:  HealthStatusUp,
		Version: version,
	}
}

// AddComponent adds a component health result and degrades overall status if needed.
func (sh *ServiceHealth) AddComponent(ch Health) {
	sh.Components = append(sh.Components, ch)

	switch ch.Status {
	case HealthStatusDown:
		sh.Status = HealthStatusDown
	case HealthStatusDegraded:
		if sh.Status != HealthStatusDown {
			sh.Status = HealthStatusDegraded
		}
	}
}

// BreakerChecker reports a circuit breaker as a health component: degraded
// while the breaker is open or testing recovery, up otherwise.
type BreakerChecker struct {
	Breaker *resilience.CircuitBreaker
}

// CheckHealth implements HealthChecker.
func (b BreakerChecker) CheckHealth(context.Context) Health {
	st := b.Breaker.Stats()
	h := Health{
		Name:   "circuit_breaker:" + st.Name,
		Status: HealthStatusUp,
		Details: map[string]string{
			"state":    st.State,
			"failures": strconv.Itoa(st.FailureCount),
		},
	}
	if st.State != resilience.StateClosed.String() {
		h.Status = HealthStatusDegraded
		h.Message = "upstream calls are being rejected"
	}
	return h
}
