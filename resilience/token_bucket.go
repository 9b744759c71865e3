package resilience

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketConfig configures a token bucket.
type TokenBucketConfig struct {
	// Rate is the refill rate in tokens per second.
	Rate float64 `mapstructure:"rate" validate:"gt=0"`
	// Capacity is the maximum number of stored tokens. The bucket starts full.
	Capacity int `mapstructure:"capacity" validate:"gte=1"`
	// Now overrides the clock (tests).
	Now func() time.Time `mapstructure:"-"`
}

// ApplyDefaults fills zero values: 0.5 tokens/s, capacity 5.
func (c *TokenBucketConfig) ApplyDefaults() {
	if c.Rate <= 0 {
		c.Rate = 0.5
	}
	if c.Capacity <= 0 {
		c.Capacity = 5
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// TokenBucketStats is a point-in-time view of a bucket.
type TokenBucketStats struct {
	TokensAvailable float64 `json:"tokens_available"`
	Capacity        int     `json:"capacity"`
	Rate            float64 `json:"rate"`
	WaitTime        float64 `json:"wait_time_seconds"`
}

// TokenBucket is a non-blocking token bucket. Tokens refill continuously at
// Rate up to Capacity and are consumed all-or-nothing. It never reserves
// future tokens, so the level stays within [0, Capacity].
type TokenBucket struct {
	config TokenBucketConfig

	// mu makes TokensAt and AllowN one atomic step for WaitTime and Stats.
	mu      sync.Mutex
	limiter *rate.Limiter
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(config TokenBucketConfig) *TokenBucket {
	config.ApplyDefaults()
	return &TokenBucket{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Capacity),
	}
}

// Consume takes n tokens if that many are available and reports whether it
// did. A request for more than Capacity tokens never succeeds.
func (b *TokenBucket) Consume(n int) bool {
	if n <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limiter.AllowN(b.config.Now(), n)
}

// Allow is Consume(1).
func (b *TokenBucket) Allow() bool {
	return b.Consume(1)
}

// Tokens returns the current token level after refill.
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokensLocked()
}

// WaitTime returns how long until one token is available; zero if one is
// available now.
func (b *TokenBucket) WaitTime() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waitLocked(b.tokensLocked())
}

// Stats returns a snapshot of the bucket.
func (b *TokenBucket) Stats() TokenBucketStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	tokens := b.tokensLocked()
	return TokenBucketStats{
		TokensAvailable: math.Round(tokens*100) / 100,
		Capacity:        b.config.Capacity,
		Rate:            b.config.Rate,
		WaitTime:        b.waitLocked(tokens).Seconds(),
	}
}

func (b *TokenBucket) tokensLocked() float64 {
	t := b.limiter.TokensAt(b.config.Now())
	return math.Max(0, math.Min(t, float64(b.config.Capacity)))
}

func (b *TokenBucket) waitLocked(tokens float64) time.Duration {
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) / b.config.Rate * float64(time.Second))
}
