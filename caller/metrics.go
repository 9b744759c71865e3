package caller

import (
	"time"

	"github.com/kbukum/steamlens/resilience"
)

// Invoke outcomes reported to Metrics.
const (
	OutcomeCacheHit    = "cache_hit"
	OutcomeSuccess     = "success"
	OutcomeEmpty       = "empty"
	OutcomeRateLimited = "rate_limited"
	OutcomeCircuitOpen = "circuit_open"
	OutcomeFailure     = "failure"
	OutcomeCancelled   = "cancelled"
)

// Metrics receives caller-level observations.
type Metrics interface {
	// ObserveInvoke records one Invoke with its outcome.
	ObserveInvoke(outcome string, elapsed time.Duration)
	// ObserveAttempt records one upstream request; status is 0 for transport errors.
	ObserveAttempt(status int, retryable bool)
	// BreakerTransition records a circuit breaker state change.
	BreakerTransition(from, to resilience.State)
}

// NoopMetrics is the default Metrics implementation.
type NoopMetrics struct{}

func (NoopMetrics) ObserveInvoke(string, time.Duration)                  {}
func (NoopMetrics) ObserveAttempt(int, bool)                             {}
func (NoopMetrics) BreakerTransition(resilience.State, resilience.State) {}

var _ Metrics = NoopMetrics{}
