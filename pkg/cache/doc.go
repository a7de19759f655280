// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry.
//
// It backs two things in this module: the in-process tenant cache (bounded
// size, TTL) and the registry of dedicated connection pools (bounded size,
// eviction callback that closes the evicted pool).
//
// # Usage
//
//	c := cache.New[string, *tenant.Tenant](1000, cache.WithTTL[string, *tenant.Tenant](5*time.Minute))
//	c.Put("slug:acme", t)
//	if v, ok := c.Get("slug:acme"); ok {
//		...
//	}
//
// # Resource Cleanup
//
// The eviction callback runs for entries dropped by capacity, expiry, Remove
// and Clear. It is called with the cache lock held, so it must not call back
// into the cache; hand slow work such as closing a pool to a goroutine.
//
//	pools := cache.New[uuid.UUID, *pgxpool.Pool](64,
//		cache.WithEvictCallback(func(_ uuid.UUID, p *pgxpool.Pool) {
//			go p.Close()
//		}),
//	)
//
// Put on an existing key returns the previous value without invoking the
// callback; the caller decides what to do with it.
//
// # Performance Characteristics
//
// Get, Put and Remove are O(1). Expired entries are dropped lazily on access.
package cache
