package cache

import "time"

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictTTL means the entry was found expired on lookup.
	EvictTTL EvictReason = iota
	// EvictCapacity means the entry was the oldest when a new key arrived at capacity.
	EvictCapacity
)

// String returns a stable label value.
func (r EvictReason) String() string {
	if r == EvictTTL {
		return "ttl"
	}
	return "capacity"
}

// Metrics exposes cache-level observability hooks. Calls happen under the
// cache lock; implementations must be cheap and must not call back into the
// cache.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// NoopMetrics is the default Metrics implementation.
type NoopMetrics struct{}

func (NoopMetrics) Hit()              {}
func (NoopMetrics) Miss()             {}
func (NoopMetrics) Evict(EvictReason) {}
func (NoopMetrics) Size(int)          {}

var _ Metrics = NoopMetrics{}

// Config configures a cache.
type Config struct {
	// Name labels the cache in stats and logs.
	Name string `mapstructure:"name"`
	// MaxSize is the maximum number of entries.
	MaxSize int `mapstructure:"max_size" validate:"gte=1"`
	// TTL is the lifetime of every entry from its last Set.
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`

	// Metrics receives hit/miss/evict/size events. Nil => NoopMetrics.
	Metrics Metrics `mapstructure:"-"`
	// Now overrides the clock (tests). Nil => time.Now.
	Now func() time.Time `mapstructure:"-"`
}

// ApplyDefaults fills zero values: 100 entries for 5 minutes.
func (c *Config) ApplyDefaults() {
	if c.MaxSize <= 0 {
		c.MaxSize = 100
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.Metrics == nil {
		c.Metrics = NoopMetrics{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}
