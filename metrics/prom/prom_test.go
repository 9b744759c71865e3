package prom

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kbukum/steamlens/cache"
	"github.com/kbukum/steamlens/caller"
	"github.com/kbukum/steamlens/resilience"
)

func TestCacheAdapter(t *testing.T) {
	reg := prometheus.NewRegistry()
	api := NewCacheAdapter(reg, "steamlens", "api")
	tool := NewCacheAdapter(reg, "steamlens", "tool")

	api.Hit()
	api.Hit()
	api.Miss()
	api.Evict(cache.EvictTTL)
	api.Evict(cache.EvictCapacity)
	api.Size(7)
	tool.Miss()

	if got := testutil.ToFloat64(api.hits); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(api.misses); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(api.evicts.WithLabelValues("ttl")); got != 1 {
		t.Errorf("ttl evictions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(api.entries); got != 7 {
		t.Errorf("size = %v, want 7", got)
	}
	if got := testutil.ToFloat64(tool.misses); got != 1 {
		t.Errorf("tool misses = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(reg, "steamlens_cache_hits_total"); n != 2 {
		t.Errorf("expected one hits series per tier, got %d", n)
	}
}

func TestCacheAdapterWiredIntoCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCacheAdapter(reg, "steamlens", "api")
	c := cache.New[int](cache.Config{Name: "api", MaxSize: 1, TTL: time.Minute, Metrics: m})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("b")
	c.Get("a")

	if got := testutil.ToFloat64(m.evicts.WithLabelValues("capacity")); got != 1 {
		t.Errorf("capacity evictions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.hits); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.entries); got != 1 {
		t.Errorf("size = %v, want 1", got)
	}
}

func TestDispatchAdapter(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewDispatchAdapter(reg, "steamlens")

	a.ObserveBatch(3, 20*time.Millisecond)
	a.TaskFailed(false)
	a.TaskFailed(true)

	if got := testutil.ToFloat64(a.batches); got != 1 {
		t.Errorf("batches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(a.tasks); got != 3 {
		t.Errorf("tasks = %v, want 3", got)
	}
	if got := testutil.ToFloat64(a.failures.WithLabelValues("true")); got != 1 {
		t.Errorf("panics = %v, want 1", got)
	}
}

func TestCallerAdapter(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewCallerAdapter(reg, "steamlens", "steam_api")

	a.ObserveInvoke(caller.OutcomeSuccess, 10*time.Millisecond)
	a.ObserveInvoke(caller.OutcomeCacheHit, time.Microsecond)
	a.ObserveAttempt(503, true)
	a.BreakerTransition(resilience.StateClosed, resilience.StateOpen)

	if got := testutil.ToFloat64(a.invocations.WithLabelValues(caller.OutcomeSuccess)); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(a.attempts.WithLabelValues("503", "true")); got != 1 {
		t.Errorf("attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(a.transitions.WithLabelValues("CLOSED", "OPEN")); got != 1 {
		t.Errorf("transitions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(a.state); got != float64(resilience.StateOpen) {
		t.Errorf("state = %v, want open", got)
	}
}

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	var cfg caller.Config
	Instrument(reg, "steamlens", &cfg)

	if cfg.Caches.API.Metrics == nil || cfg.Caches.Tool.Metrics == nil || cfg.Caches.Guide.Metrics == nil {
		t.Fatal("expected every cache tier to be instrumented")
	}
	if cfg.Dispatch.Metrics == nil || cfg.Metrics == nil {
		t.Fatal("expected dispatcher and caller to be instrumented")
	}

	c := caller.New(nil, cfg)
	c.APICache().Set("k", caller.Payload{"x": 1})
	if n := testutil.CollectAndCount(reg, "steamlens_cache_size_entries"); n != 3 {
		t.Errorf("expected a size series per tier, got %d", n)
	}
}
