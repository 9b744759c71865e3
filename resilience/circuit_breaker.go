package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen admits a single trial call to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrCircuitOpen is matched by every *OpenError.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// OpenError is returned by Execute when the call was rejected without running.
type OpenError struct {
	Name string
	// RetryIn is the time left until the breaker admits a trial call. Zero when a
	// trial is already in flight.
	RetryIn time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open (retry in %s)", e.Name, e.RetryIn.Round(time.Millisecond))
}

// Is makes errors.Is(err, ErrCircuitOpen) true.
func (e *OpenError) Is(target error) bool { return target == ErrCircuitOpen }

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this circuit breaker for metrics/logging.
	Name string `mapstructure:"name"`
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int `mapstructure:"failure_threshold" validate:"gte=1"`
	// Timeout is how long the circuit stays open before admitting a trial call.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// IsFailure decides whether an error counts against the breaker.
	// Defaults to everything except context cancellation.
	IsFailure func(error) bool `mapstructure:"-"`
	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(name string, from, to State) `mapstructure:"-"`
	// Now overrides the clock (tests).
	Now func() time.Time `mapstructure:"-"`
}

// ApplyDefaults fills zero values: 5 failures, 60s timeout.
func (c *CircuitBreakerConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.IsFailure == nil {
		c.IsFailure = DefaultIsFailure
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// DefaultIsFailure counts every error except context cancellation.
func DefaultIsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// CircuitBreakerStats is a point-in-time view of a breaker.
type CircuitBreakerStats struct {
	Name             string `json:"name"`
	State            string `json:"state"`
	FailureCount     int    `json:"failure_count"`
	FailureThreshold int    `json:"failure_threshold"`
	// TimeSinceLastFailure is nil when no failure has been recorded since the
	// last close.
	TimeSinceLastFailure *float64 `json:"time_since_last_failure_seconds"`
	TimeoutSeconds       float64  `json:"timeout_seconds"`
}

// CircuitBreaker implements the circuit breaker pattern.
//
// States:
//   - Closed: calls run; failures are counted
//   - Open: calls fail with *OpenError until Timeout has passed since the last failure
//   - HalfOpen: one trial call runs; success closes, failure re-opens
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	lastFailureAt time.Time
	trialRunning  bool
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	config.ApplyDefaults()
	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Name returns the configured name.
func (cb *CircuitBreaker) Name() string { return cb.config.Name }

// Execute runs fn through the circuit breaker. When the call is rejected fn is
// not run and the returned error is an *OpenError. Otherwise fn's error is
// returned unchanged.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	trial, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(trial, err)
	return err
}

// admit decides under the lock whether a call may run.
func (cb *CircuitBreaker) admit() (trial bool, err error) {
	cb.mu.Lock()
	var changed *transition
	defer func() {
		cb.mu.Unlock()
		cb.notify(changed)
	}()

	switch cb.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		elapsed := cb.config.Now().Sub(cb.lastFailureAt)
		if elapsed < cb.config.Timeout {
			return false, &OpenError{Name: cb.config.Name, RetryIn: cb.config.Timeout - elapsed}
		}
		changed = cb.toState(StateHalfOpen)
		cb.trialRunning = true
		return true, nil
	default: // half-open
		if cb.trialRunning {
			return false, &OpenError{Name: cb.config.Name}
		}
		cb.trialRunning = true
		return true, nil
	}
}

// record applies the outcome of an admitted call.
func (cb *CircuitBreaker) record(trial bool, err error) {
	cb.mu.Lock()
	var changed *transition
	defer func() {
		cb.mu.Unlock()
		cb.notify(changed)
	}()

	if trial {
		cb.trialRunning = false
	}

	switch {
	case err == nil:
		switch cb.state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			if trial {
				changed = cb.toState(StateClosed)
			}
		}
	case cb.config.IsFailure(err):
		switch cb.state {
		case StateClosed:
			cb.failures++
			cb.lastFailureAt = cb.config.Now()
			if cb.failures >= cb.config.FailureThreshold {
				changed = cb.toState(StateOpen)
			}
		case StateHalfOpen:
			if trial {
				cb.failures++
				cb.lastFailureAt = cb.config.Now()
				changed = cb.toState(StateOpen)
			}
		}
	}
	// Calls admitted while the circuit was closed can finish after it left
	// that state. Only the trial call decides how HalfOpen resolves, and nothing
	// but a trial call leaves Open.
}

// State returns the current state. Reading the state never triggers the
// Open to HalfOpen transition; only Execute does.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset forces the breaker closed and clears its failure history.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	changed := cb.toState(StateClosed)
	cb.failures = 0
	cb.lastFailureAt = time.Time{}
	cb.trialRunning = false
	cb.mu.Unlock()
	cb.notify(changed)
}

// Stats returns a snapshot of the breaker.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	s := CircuitBreakerStats{
		Name:             cb.config.Name,
		State:            cb.state.String(),
		FailureCount:     cb.failures,
		FailureThreshold: cb.config.FailureThreshold,
		TimeoutSeconds:   cb.config.Timeout.Seconds(),
	}
	if !cb.lastFailureAt.IsZero() {
		since := cb.config.Now().Sub(cb.lastFailureAt).Seconds()
		s.TimeSinceLastFailure = &since
	}
	return s
}

type transition struct{ from, to State }

// toState must be called with the lock held.
func (cb *CircuitBreaker) toState(to State) *transition {
	if cb.state == to {
		return nil
	}
	from := cb.state
	cb.state = to
	if to == StateClosed {
		cb.failures = 0
		cb.lastFailureAt = time.Time{}
	}
	return &transition{from: from, to: to}
}

func (cb *CircuitBreaker) notify(t *transition) {
	if t != nil && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, t.from, t.to)
	}
}
