package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/tenantkit/pkg/cache"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	mongoconn "github.com/dmitrymomot/tenantkit/pkg/mongo"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/retry"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Option configures Connections.
type Option func(*Connections)

// WithDriver registers d for a URL scheme, replacing any existing driver.
func WithDriver(scheme string, d Driver) Option {
	return func(c *Connections) {
		c.drivers[scheme] = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connections) {
		if l != nil {
			c.logger = l
		}
	}
}

type dedicatedPool struct {
	dsn  string
	pool Pool
}

// Connections owns the shared pool and the per-tenant dedicated pools.
type Connections struct {
	cfg     Config
	drivers map[string]Driver
	logger  *slog.Logger

	shared Pool
	pools  *cache.LRUCache[uuid.UUID, *dedicatedPool]
	group  singleflight.Group

	mu      sync.RWMutex
	closed  bool
	closing sync.WaitGroup
}

// Connect opens the shared pool and prepares the dedicated pool registry.
// postgres, postgresql, mongodb and mongodb+srv descriptors are supported
// out of the box.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Connections, error) {
	c := &Connections{
		cfg:     cfg.withDefaults(),
		drivers: make(map[string]Driver),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.registerDefaultDrivers()

	c.pools = cache.New[uuid.UUID, *dedicatedPool](c.cfg.MaxDedicatedPools,
		cache.WithEvictCallback(func(id uuid.UUID, p *dedicatedPool) {
			c.closeAsync(id, p.pool)
		}),
	)

	shared, err := retry.Do(ctx, c.cfg.Retry, func(ctx context.Context) (Pool, error) {
		octx, cancel := context.WithTimeout(ctx, c.cfg.OpenTimeout)
		defer cancel()
		return c.open(octx, c.cfg.SharedDSN)
	}, retry.WithNotify(c.notify(ctx, "open shared pool", uuid.Nil)))
	if err != nil {
		return nil, unavailable(err)
	}
	c.shared = shared

	return c, nil
}

func (c *Connections) registerDefaultDrivers() {
	defaults := map[string]func() Driver{
		"postgres":    func() Driver { return NewPostgresDriver(pg.Config{}, c.logger) },
		"postgresql":  func() Driver { return NewPostgresDriver(pg.Config{}, c.logger) },
		"mongodb":     func() Driver { return NewMongoDriver(mongoconn.Config{}) },
		"mongodb+srv": func() Driver { return NewMongoDriver(mongoconn.Config{}) },
	}
	for s, mk := range defaults {
		if _, ok := c.drivers[s]; !ok {
			c.drivers[s] = mk()
		}
	}
}

// Shared returns the shared pool.
func (c *Connections) Shared() Pool {
	return c.shared
}

// SharedPgx returns the shared pgx pool when the shared store is PostgreSQL.
func (c *Connections) SharedPgx() (*pgxpool.Pool, bool) {
	return PgxPool(c.shared)
}

// RouteForDirectory returns a handle on the shared store for the tenant
// directory. It is never tenant-scoped.
func (c *Connections) RouteForDirectory(ctx context.Context) (*Handle, error) {
	return c.lease(ctx, uuid.Nil, tenant.StrategyShared, func(context.Context) (Pool, string, error) {
		return c.shared, DirectorySchema, nil
	})
}

// Partition returns a handle bound to t's partition.
func (c *Connections) Partition(ctx context.Context, t *tenant.Tenant) (*Handle, error) {
	if err := t.Partition.Validate(); err != nil {
		return nil, err
	}

	switch t.Partition.Strategy {
	case tenant.StrategyShared:
		return c.lease(ctx, t.ID, tenant.StrategyShared, func(context.Context) (Pool, string, error) {
			return c.shared, t.Partition.Key, nil
		})
	case tenant.StrategyDedicated:
		return c.lease(ctx, t.ID, tenant.StrategyDedicated, func(ctx context.Context) (Pool, string, error) {
			p, err := c.dedicated(ctx, t.ID, t.Partition.DSN)
			if err != nil {
				return nil, "", err
			}
			return p, p.DefaultNamespace(), nil
		})
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", tenant.ErrInvalidPartition, t.Partition.Strategy)
	}
}

// lease resolves a pool and acquires a session from it, retrying both steps.
func (c *Connections) lease(ctx context.Context, id uuid.UUID, strategy tenant.Strategy, poolFor func(context.Context) (Pool, string, error)) (*Handle, error) {
	h, err := retry.Do(ctx, c.cfg.Retry, func(ctx context.Context) (*Handle, error) {
		if c.isClosed() {
			return nil, retry.Permanent(ErrRouterClosed)
		}
		pool, ns, err := poolFor(ctx)
		if err != nil {
			return nil, err
		}

		actx, cancel := context.WithTimeout(ctx, c.cfg.AcquireTimeout)
		defer cancel()
		sess, err := pool.Acquire(actx)
		if err != nil {
			return nil, err
		}
		return newHandle(id, strategy, ns, sess), nil
	}, retry.WithNotify(c.notify(ctx, "acquire session", id)))
	if err != nil {
		return nil, unavailable(err)
	}
	return h, nil
}

// dedicated returns the open pool for the tenant, opening it once for all
// concurrent callers. A different dsn replaces the cached pool.
func (c *Connections) dedicated(ctx context.Context, id uuid.UUID, dsn string) (Pool, error) {
	if p, ok := c.pools.Get(id); ok && p.dsn == dsn {
		return p.pool, nil
	}

	ch := c.group.DoChan(id.String()+"|"+dsn, func() (any, error) {
		if p, ok := c.pools.Get(id); ok && p.dsn == dsn {
			return p.pool, nil
		}

		octx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.OpenTimeout)
		defer cancel()
		pool, err := c.open(octx, dsn)
		if err != nil {
			return nil, err
		}

		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.closed {
			pool.Close()
			return nil, retry.Permanent(ErrRouterClosed)
		}
		if old, replaced := c.pools.Put(id, &dedicatedPool{dsn: dsn, pool: pool}); replaced {
			c.closeAsync(id, old.pool)
		}
		c.logger.InfoContext(ctx, "dedicated pool opened", logger.TenantID(id))
		return pool, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Pool), nil
	}
}

func (c *Connections) open(ctx context.Context, dsn string) (Pool, error) {
	s, err := scheme(dsn)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	drv, ok := c.drivers[s]
	if !ok {
		return nil, retry.Permanent(fmt.Errorf("%w: no driver for scheme %q", ErrUnsupportedDescriptor, s))
	}
	return drv.Open(ctx, dsn)
}

// Forget closes the tenant's dedicated pool, if open. The next request
// reopens it from the current descriptor.
func (c *Connections) Forget(id uuid.UUID) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	c.pools.Remove(id)
}

// DedicatedPools returns the ids of tenants with an open dedicated pool.
func (c *Connections) DedicatedPools() []uuid.UUID {
	return c.pools.Keys()
}

// PingDedicated pings every open dedicated pool that implements Pinger.
// The error names each tenant whose store did not answer.
func (c *Connections) PingDedicated(ctx context.Context) error {
	var errs []error
	for _, id := range c.pools.Keys() {
		p, ok := c.pools.Peek(id)
		if !ok {
			continue
		}
		pinger, ok := p.pool.(Pinger)
		if !ok {
			continue
		}
		if err := pinger.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every pool and waits for them to drain.
func (c *Connections) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.pools.Clear()
	c.mu.Unlock()

	if c.shared != nil {
		c.shared.Close()
	}
	c.closing.Wait()
}

func (c *Connections) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// closeAsync closes a pool without blocking the caller, which may hold the
// registry lock while the pool waits for checked-out sessions.
func (c *Connections) closeAsync(id uuid.UUID, p Pool) {
	c.closing.Add(1)
	go func() {
		defer c.closing.Done()
		p.Close()
		c.logger.Info("dedicated pool closed", logger.TenantID(id))
	}()
}

func (c *Connections) notify(ctx context.Context, op string, id uuid.UUID) retry.Notify {
	return func(err error, attempt uint, next time.Duration) {
		attrs := []any{
			slog.String("op", op),
			logger.Attempt(attempt),
			logger.Delay(next),
			logger.Error(err),
		}
		if id != uuid.Nil {
			attrs = append(attrs, logger.TenantID(id))
		}
		c.logger.WarnContext(ctx, "storage operation failed, retrying", attrs...)
	}
}

// unavailable classifies a failure that survived the retry policy.
func unavailable(err error) error {
	exhausted := errors.Is(err, retry.ErrExhausted)
	switch {
	case !exhausted && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return err
	case errors.Is(err, ErrUnsupportedDescriptor), errors.Is(err, ErrRouterClosed), errors.Is(err, tenant.ErrInvalidPartition):
		return err
	default:
		return errors.Join(ErrStorageUnavailable, err)
	}
}
