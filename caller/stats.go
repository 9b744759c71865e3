package caller

import (
	"math"
	"sync"

	"github.com/kbukum/steamlens/cache"
	"github.com/kbukum/steamlens/dispatch"
	"github.com/kbukum/steamlens/resilience"
)

// estimatedEntryMB is the rough memory footprint assumed per cached entry.
const estimatedEntryMB = 0.5

type counters struct {
	mu       sync.Mutex
	outcomes map[string]uint64
}

func (c *counters) record(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = make(map[string]uint64)
	}
	c.outcomes[outcome]++
}

func (c *counters) snapshot() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.outcomes))
	for k, v := range c.outcomes {
		out[k] = v
	}
	return out
}

// CacheSnapshot is a cache's stats plus its estimated memory use.
type CacheSnapshot struct {
	cache.Stats
	EstimatedMemoryMB float64 `json:"estimated_memory_mb"`
}

// Snapshot aggregates the stats of every component behind a Caller.
type Snapshot struct {
	Upstream               string                         `json:"upstream"`
	Caches                 map[string]CacheSnapshot       `json:"caches"`
	TotalEstimatedMemoryMB float64                        `json:"total_estimated_memory_mb"`
	RateLimiter            resilience.TokenBucketStats    `json:"rate_limiter"`
	CircuitBreaker         resilience.CircuitBreakerStats `json:"circuit_breaker"`
	Dispatcher             dispatch.Stats                 `json:"dispatcher"`
	// Invocations counts Invoke calls by outcome.
	Invocations map[string]uint64 `json:"invocations"`
}

// Stats returns a point-in-time snapshot. Each component is read under its
// own lock, so the snapshot is not atomic across components.
func (c *Caller) Stats() Snapshot {
	s := Snapshot{
		Upstream:       c.cfg.Upstream,
		Caches:         make(map[string]CacheSnapshot, 3),
		RateLimiter:    c.bucket.Stats(),
		CircuitBreaker: c.breaker.Stats(),
		Dispatcher:     c.dispatcher.Stats(),
		Invocations:    c.calls.snapshot(),
	}
	var total float64
	for _, st := range []cache.Stats{c.api.Stats(), c.tool.Stats(), c.guide.Stats()} {
		mb := estimateMB(st.Size)
		s.Caches[st.Name] = CacheSnapshot{Stats: st, EstimatedMemoryMB: mb}
		total += mb
	}
	s.TotalEstimatedMemoryMB = math.Round(total*10) / 10
	return s
}

func estimateMB(entries int) float64 {
	return math.Round(float64(entries)*estimatedEntryMB*10) / 10
}
