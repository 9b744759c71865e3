// Package cache provides a bounded in-memory cache with a fixed time-to-live
// per entry and first-in-first-out eviction.
//
// Expired entries are removed lazily on lookup. When a new key is inserted at
// capacity, the entry inserted earliest is evicted whether or not it has
// expired. Overwriting a key refreshes its value and expiry but keeps its
// place in the eviction order.
//
//	c := cache.New[string](cache.Config{Name: "api", MaxSize: 200, TTL: 15 * time.Minute})
//	c.Set("k", "v")
//	v, ok := c.Get("k")
package cache
