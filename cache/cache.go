package cache

import (
	"container/list"
	"math"
	"sync"
	"time"
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Stats is a point-in-time view of a cache.
type Stats struct {
	Name    string `json:"name"`
	Size    int    `json:"size"`
	MaxSize int    `json:"max_size"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	// HitRate is a percentage rounded to one decimal; 0 with no lookups.
	HitRate    float64 `json:"hit_rate"`
	TTLSeconds float64 `json:"ttl_seconds"`
}

// Cache is a FIFO cache with a fixed TTL. It is safe for concurrent use.
type Cache[V any] struct {
	cfg Config

	mu     sync.Mutex
	items  map[string]*list.Element
	order  *list.List // front = oldest insertion
	hits   uint64
	misses uint64
}

// New creates a cache.
func New[V any](cfg Config) *Cache[V] {
	cfg.ApplyDefaults()
	return &Cache[V]{
		cfg:   cfg,
		items: make(map[string]*list.Element, cfg.MaxSize),
		order: list.New(),
	}
}

// Name returns the configured name.
func (c *Cache[V]) Name() string { return c.cfg.Name }

// Get returns the value for key if it is present and not expired. An expired
// entry is removed and counts as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	now := c.cfg.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.miss()
		return zero, false
	}
	e := el.Value.(*entry[V])
	if !now.Before(e.expiresAt) {
		c.remove(el)
		c.cfg.Metrics.Evict(EvictTTL)
		c.cfg.Metrics.Size(len(c.items))
		c.miss()
		return zero, false
	}
	c.hits++
	c.cfg.Metrics.Hit()
	return e.value, true
}

// Set stores value under key with a fresh TTL.
func (c *Cache[V]) Set(key string, value V) {
	expiresAt := c.cfg.Now().Add(c.cfg.TTL)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		return
	}

	if len(c.items) >= c.cfg.MaxSize {
		if oldest := c.order.Front(); oldest != nil {
			c.remove(oldest)
			c.cfg.Metrics.Evict(EvictCapacity)
		}
	}
	c.items[key] = c.order.PushBack(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	c.cfg.Metrics.Size(len(c.items))
}

// Len returns the number of resident entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all entries and resets hit/miss counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.cfg.MaxSize)
	c.order.Init()
	c.hits, c.misses = 0, 0
	c.cfg.Metrics.Size(0)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Name:       c.cfg.Name,
		Size:       len(c.items),
		MaxSize:    c.cfg.MaxSize,
		Hits:       c.hits,
		Misses:     c.misses,
		HitRate:    hitRate(c.hits, c.misses),
		TTLSeconds: c.cfg.TTL.Seconds(),
	}
}

func (c *Cache[V]) miss() {
	c.misses++
	c.cfg.Metrics.Miss()
}

func (c *Cache[V]) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}

func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(total)*1000) / 10
}
