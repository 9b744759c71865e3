// Package prom exports cache, dispatcher and caller metrics to Prometheus.
package prom

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kbukum/steamlens/cache"
	"github.com/kbukum/steamlens/caller"
	"github.com/kbukum/steamlens/dispatch"
	"github.com/kbukum/steamlens/resilience"
)

// CacheAdapter implements cache.Metrics for one cache tier.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type CacheAdapter struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	evicts  *prometheus.CounterVec
	entries prometheus.Gauge
}

// NewCacheAdapter registers the metrics of the cache tier named tier.
// Tiers share metric names and differ by the constant "tier" label.
//   - reg: registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns:  Prometheus namespace
func NewCacheAdapter(reg prometheus.Registerer, ns, tier string) *CacheAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := prometheus.Labels{"tier": tier}
	a := &CacheAdapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "cache",
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: labels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "cache",
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: labels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "cache",
				Name:        "evictions_total",
				Help:        "Cache evictions by reason",
				ConstLabels: labels,
			},
			[]string{"reason"},
		),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   "cache",
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.entries)
	return a
}

// Hit increments the hit counter.
func (a *CacheAdapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *CacheAdapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *CacheAdapter) Evict(r cache.EvictReason) { a.evicts.WithLabelValues(r.String()).Inc() }

// Size sets the resident entry gauge.
func (a *CacheAdapter) Size(entries int) { a.entries.Set(float64(entries)) }

// DispatchAdapter implements dispatch.Metrics.
type DispatchAdapter struct {
	batches  prometheus.Counter
	tasks    prometheus.Counter
	failures *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewDispatchAdapter registers the dispatcher metrics.
func NewDispatchAdapter(reg prometheus.Registerer, ns string) *DispatchAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &DispatchAdapter{
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "dispatch",
			Name:      "batches_total",
			Help:      "Batches executed",
		}),
		tasks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "dispatch",
			Name:      "tasks_total",
			Help:      "Tasks executed",
		}),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "dispatch",
				Name:      "task_failures_total",
				Help:      "Failed tasks, split by whether the task panicked",
			},
			[]string{"panic"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "dispatch",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of a batch",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	reg.MustRegister(a.batches, a.tasks, a.failures, a.duration)
	return a
}

// ObserveBatch records one finished batch.
func (a *DispatchAdapter) ObserveBatch(tasks int, elapsed time.Duration) {
	a.batches.Inc()
	a.tasks.Add(float64(tasks))
	a.duration.Observe(elapsed.Seconds())
}

// TaskFailed counts a task that returned an error or panicked.
func (a *DispatchAdapter) TaskFailed(panicked bool) {
	a.failures.WithLabelValues(strconv.FormatBool(panicked)).Inc()
}

// CallerAdapter implements caller.Metrics for one upstream.
type CallerAdapter struct {
	invocations *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	attempts    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	state       prometheus.Gauge
}

// NewCallerAdapter registers the caller metrics, labelled with upstream.
func NewCallerAdapter(reg prometheus.Registerer, ns, upstream string) *CallerAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := prometheus.Labels{"upstream": upstream}
	a := &CallerAdapter{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "caller",
				Name:        "invocations_total",
				Help:        "Invoke calls by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "caller",
				Name:        "invoke_duration_seconds",
				Help:        "Invoke latency by outcome",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "caller",
				Name:        "attempts_total",
				Help:        "Upstream requests by HTTP status (0 for transport errors)",
				ConstLabels: labels,
			},
			[]string{"status", "retryable"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "circuit_breaker",
				Name:        "transitions_total",
				Help:        "Circuit breaker state transitions",
				ConstLabels: labels,
			},
			[]string{"from", "to"},
		),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   "circuit_breaker",
			Name:        "state",
			Help:        "Circuit breaker state (0 closed, 1 open, 2 half-open)",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(a.invocations, a.latency, a.attempts, a.transitions, a.state)
	return a
}

// ObserveInvoke records one Invoke call.
func (a *CallerAdapter) ObserveInvoke(outcome string, elapsed time.Duration) {
	a.invocations.WithLabelValues(outcome).Inc()
	a.latency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveAttempt records one upstream request.
func (a *CallerAdapter) ObserveAttempt(status int, retryable bool) {
	a.attempts.WithLabelValues(strconv.Itoa(status), strconv.FormatBool(retryable)).Inc()
}

// BreakerTransition records a state change and updates the state gauge.
func (a *CallerAdapter) BreakerTransition(from, to resilience.State) {
	a.transitions.WithLabelValues(from.String(), to.String()).Inc()
	a.state.Set(float64(to))
}

// Instrument registers adapters for every component configured by cfg and
// installs them in cfg. Call it before caller.New.
func Instrument(reg prometheus.Registerer, ns string, cfg *caller.Config) {
	upstream := cfg.Upstream
	if upstream == "" {
		upstream = "steam_api"
	}
	tiers := []struct {
		cfg  *cache.Config
		name string
	}{
		{&cfg.Caches.API, "api"},
		{&cfg.Caches.Tool, "tool"},
		{&cfg.Caches.Guide, "guide"},
	}
	for _, t := range tiers {
		name := t.cfg.Name
		if name == "" {
			name = t.name
		}
		t.cfg.Metrics = NewCacheAdapter(reg, ns, name)
	}
	cfg.Dispatch.Metrics = NewDispatchAdapter(reg, ns)
	cfg.Metrics = NewCallerAdapter(reg, ns, upstream)
}

// Compile-time checks.
var (
	_ cache.Metrics    = (*CacheAdapter)(nil)
	_ dispatch.Metrics = (*DispatchAdapter)(nil)
	_ caller.Metrics   = (*CallerAdapter)(nil)
)
