// Package resilience provides the fault-tolerance primitives used on the
// outbound call path:
//   - TokenBucket: local request budget for an upstream quota
//   - CircuitBreaker: fails fast while an upstream is unhealthy
//   - Retry: jittered exponential backoff for transient faults
//
// They compose as breaker around retry, with the bucket consulted first:
//
//	if !bucket.Allow() {
//	    return errRateLimited
//	}
//	err := cb.Execute(func() error {
//	    _, err := resilience.Retry(ctx, retryCfg, call)
//	    return err
//	})
//
// Every type is safe for concurrent use and never holds its lock while
// running user code or sleeping.
package resilience
