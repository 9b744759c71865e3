package caller

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/steamlens/cache"
	"github.com/kbukum/steamlens/dispatch"
	"github.com/kbukum/steamlens/httpclient"
	"github.com/kbukum/steamlens/logger"
	"github.com/kbukum/steamlens/resilience"
)

// TokenWait bounds how long Invoke waits for a rate-limit token.
type TokenWait struct {
	// Attempts is the number of times a token is tried for.
	Attempts int `mapstructure:"attempts" validate:"gte=1"`
	// MaxWait caps each sleep between attempts. Zero retries immediately.
	MaxWait time.Duration `mapstructure:"max_wait" validate:"gte=0"`
}

// CachesConfig configures the three cache tiers.
type CachesConfig struct {
	// API caches upstream responses; used by Invoke.
	API cache.Config `mapstructure:"api"`
	// Tool caches derived results computed by consumers.
	Tool cache.Config `mapstructure:"tool"`
	// Guide caches long-lived reference content.
	Guide cache.Config `mapstructure:"guide"`
}

// Config configures a Caller.
type Config struct {
	// Upstream names the remote service in errors, logs and metrics.
	Upstream string `mapstructure:"upstream"`

	Caches    CachesConfig                    `mapstructure:"caches"`
	Bucket    resilience.TokenBucketConfig    `mapstructure:"rate_limit"`
	Breaker   resilience.CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Retry     resilience.RetryConfig          `mapstructure:"retry"`
	TokenWait TokenWait                       `mapstructure:"token_wait"`
	Dispatch  dispatch.Config                 `mapstructure:"dispatch"`

	// Coalesce shares one upstream call between concurrent misses for the
	// same key. Off by default: concurrent misses each call upstream.
	Coalesce bool `mapstructure:"coalesce"`

	Logger  *logger.Logger `mapstructure:"-"`
	Metrics Metrics        `mapstructure:"-"`
	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer `mapstructure:"-"`
}

// DefaultConfig returns the policy used for the Steam Web API: 2 retries from
// 500ms and up to 3 token attempts with sleeps capped at 2s.
func DefaultConfig() Config {
	cfg := Config{
		Retry:     resilience.RetryConfig{MaxRetries: 2},
		TokenWait: TokenWait{MaxWait: 2 * time.Second},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values that have no meaning of their own. Zero
// Retry.MaxRetries (no retries) and zero TokenWait.MaxWait (no sleep) are
// kept as given; start from DefaultConfig for the standard policy.
func (c *Config) ApplyDefaults() {
	if c.Upstream == "" {
		c.Upstream = "steam_api"
	}
	tier(&c.Caches.API, "api", 200, 15*time.Minute)
	tier(&c.Caches.Tool, "tool", 100, 5*time.Minute)
	tier(&c.Caches.Guide, "guide", 500, 60*time.Minute)

	c.Bucket.ApplyDefaults()
	if c.Breaker.Name == "" {
		c.Breaker.Name = c.Upstream
	}
	c.Breaker.ApplyDefaults()
	if c.Retry.RetryIf == nil {
		// 429, 5xx and transport faults; never definitive 4xx or cancellation.
		c.Retry.RetryIf = httpclient.IsRetryable
	}
	c.Retry.ApplyDefaults()
	if c.TokenWait.Attempts <= 0 {
		c.TokenWait.Attempts = 3
	}
	if c.TokenWait.MaxWait < 0 {
		c.TokenWait.MaxWait = 0
	}
	c.Logger = logger.OrNop(c.Logger)
	c.Dispatch.Logger = c.Logger
	c.Dispatch.ApplyDefaults()
	if c.Metrics == nil {
		c.Metrics = NoopMetrics{}
	}
}

func tier(c *cache.Config, name string, size int, ttl time.Duration) {
	if c.Name == "" {
		c.Name = name
	}
	if c.MaxSize <= 0 {
		c.MaxSize = size
	}
	if c.TTL <= 0 {
		c.TTL = ttl
	}
	c.ApplyDefaults()
}
