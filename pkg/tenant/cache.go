package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantkit/pkg/cache"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// Cache stores immutable tenant snapshots under directory keys.
// Implementations must be safe for concurrent use. Failures degrade to a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*Tenant, bool)
	Set(ctx context.Context, key string, t *Tenant, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	Close() error
}

// DefaultCacheSize bounds the in-process caches.
const DefaultCacheSize = 1000

// InMemoryCache is a bounded TTL cache local to the process.
type InMemoryCache struct {
	lru *cache.LRUCache[string, *Tenant]
}

// NewInMemoryCache creates an in-process cache holding up to size entries.
func NewInMemoryCache(size ...int) *InMemoryCache {
	n := DefaultCacheSize
	if len(size) > 0 && size[0] > 0 {
		n = size[0]
	}
	return &InMemoryCache{lru: cache.New[string, *Tenant](n)}
}

func (c *InMemoryCache) Get(_ context.Context, key string) (*Tenant, bool) {
	return c.lru.Get(key)
}

func (c *InMemoryCache) Set(_ context.Context, key string, t *Tenant, ttl time.Duration) {
	c.lru.PutWithTTL(key, t, ttl)
}

func (c *InMemoryCache) Delete(_ context.Context, keys ...string) {
	for _, k := range keys {
		c.lru.Remove(k)
	}
}

func (c *InMemoryCache) Close() error {
	c.lru.Clear()
	return nil
}

// RistrettoCache is an admission-controlled in-process cache.
type RistrettoCache struct {
	c *ristretto.Cache[string, *Tenant]
}

// NewRistrettoCache creates a ristretto-backed cache bounded to maxEntries.
func NewRistrettoCache(maxEntries int64) (*RistrettoCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, *Tenant]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoCache{c: c}, nil
}

func (c *RistrettoCache) Get(_ context.Context, key string) (*Tenant, bool) {
	return c.c.Get(key)
}

// Set waits for the write to be applied so a following Get observes it.
func (c *RistrettoCache) Set(_ context.Context, key string, t *Tenant, ttl time.Duration) {
	c.c.SetWithTTL(key, t, 1, ttl)
	c.c.Wait()
}

func (c *RistrettoCache) Delete(_ context.Context, keys ...string) {
	for _, k := range keys {
		c.c.Del(k)
	}
}

func (c *RistrettoCache) Close() error {
	c.c.Close()
	return nil
}

// DefaultRedisCachePrefix namespaces tenant entries in Redis.
const DefaultRedisCachePrefix = "tenantkit:tenant:"

// RedisCache shares tenant snapshots between processes.
// Entries include the partition descriptor, so the Redis instance must be
// trusted with connection strings.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

// WithRedisCachePrefix overrides DefaultRedisCachePrefix.
func WithRedisCachePrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// WithRedisCacheLogger sets the logger for swallowed Redis failures.
func WithRedisCacheLogger(l *slog.Logger) RedisCacheOption {
	return func(c *RedisCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewRedisCache creates a cache over an existing client. The client is owned by the caller.
func NewRedisCache(client redis.UniversalClient, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client: client,
		prefix: DefaultRedisCachePrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "tenant cache read failed", logger.Component("tenant.redis_cache"), logger.Error(err))
		}
		return nil, false
	}
	var t Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		c.logger.WarnContext(ctx, "tenant cache entry is corrupt", logger.Component("tenant.redis_cache"), logger.Error(err))
		return nil, false
	}
	return &t, true
}

func (c *RedisCache) Set(ctx context.Context, key string, t *Tenant, ttl time.Duration) {
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "tenant cache write failed", logger.Component("tenant.redis_cache"), logger.Error(err))
	}
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		c.logger.WarnContext(ctx, "tenant cache delete failed", logger.Component("tenant.redis_cache"), logger.Error(err))
	}
}

func (c *RedisCache) Close() error { return nil }

// DefaultL1TTL caps how long the process-local tier keeps an entry it
// back-filled from the shared tier.
const DefaultL1TTL = 30 * time.Second

// TieredCache reads through a fast local tier into a shared tier.
type TieredCache struct {
	l1    Cache
	l2    Cache
	l1TTL time.Duration
}

// NewTieredCache combines l1 (process-local) with l2 (shared).
func NewTieredCache(l1, l2 Cache, l1TTL time.Duration) *TieredCache {
	if l1TTL <= 0 {
		l1TTL = DefaultL1TTL
	}
	return &TieredCache{l1: l1, l2: l2, l1TTL: l1TTL}
}

func (c *TieredCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	if t, ok := c.l1.Get(ctx, key); ok {
		return t, true
	}
	t, ok := c.l2.Get(ctx, key)
	if !ok {
		return nil, false
	}
	c.l1.Set(ctx, key, t, c.l1TTL)
	return t, true
}

func (c *TieredCache) Set(ctx context.Context, key string, t *Tenant, ttl time.Duration) {
	l1TTL := c.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	c.l2.Set(ctx, key, t, ttl)
	c.l1.Set(ctx, key, t, l1TTL)
}

func (c *TieredCache) Delete(ctx context.Context, keys ...string) {
	c.l2.Delete(ctx, keys...)
	c.l1.Delete(ctx, keys...)
}

func (c *TieredCache) Close() error {
	return errors.Join(c.l1.Close(), c.l2.Close())
}
