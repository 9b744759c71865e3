package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`
	// BaseDelay is the delay before the first retry; it doubles per retry.
	BaseDelay time.Duration `mapstructure:"base_delay" validate:"gt=0"`
	// MaxDelay caps the exponential part of the delay. Zero means no cap.
	MaxDelay time.Duration `mapstructure:"max_delay"`
	// RetryIf determines if an error should be retried.
	RetryIf func(error) bool `mapstructure:"-"`
	// OnRetry is called before each sleep with the 1-based attempt that failed.
	OnRetry func(attempt int, err error, delay time.Duration) `mapstructure:"-"`
}

// ApplyDefaults fills zero values: 2 retries from 500ms.
func (c *RetryConfig) ApplyDefaults() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.RetryIf == nil {
		c.RetryIf = DefaultRetryIf
	}
}

// DefaultRetryConfig returns the defaults used for upstream calls.
func DefaultRetryConfig() RetryConfig {
	cfg := RetryConfig{MaxRetries: 2}
	cfg.ApplyDefaults()
	return cfg
}

// DefaultRetryIf retries all errors except context cancellation.
func DefaultRetryIf(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Retry runs fn up to MaxRetries+1 times. It returns the first success, the
// first error RetryIf rejects, or the last error once attempts run out; that
// error is returned unwrapped. A cancelled context aborts the sleep and
// returns ctx.Err().
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	cfg.ApplyDefaults()

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.RetryIf(err) || attempt == cfg.MaxRetries {
			break
		}

		delay := Backoff(attempt, cfg.BaseDelay, cfg.MaxDelay)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// RetryFunc is Retry for functions that return only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := Retry(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Backoff returns the delay after the given 0-based attempt:
// base*2^attempt (capped at maxDelay when set) plus jitter uniform in
// [0, 25%) of that value.
func Backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		if maxDelay > 0 && d >= maxDelay {
			break
		}
		d *= 2
	}
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	return d + time.Duration(rand.Float64()*0.25*float64(d))
}
