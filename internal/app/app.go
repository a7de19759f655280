// Package app wires the tenant directory, storage router and caches shared
// by the tenantkit binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/redis"
	"github.com/dmitrymomot/tenantkit/pkg/requestid"
	"github.com/dmitrymomot/tenantkit/pkg/storage"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

// ErrSharedStoreNotPostgres is returned when STORAGE_SHARED_DSN is not a postgres URL.
var ErrSharedStoreNotPostgres = errors.New("shared store must be postgres")

// App holds the long-lived components.
type App struct {
	Connections *storage.Connections
	Router      *storage.Router
	Directory   *tenant.Directory
	Resolver    *tenant.Resolver
	Logger      *slog.Logger

	redis  *goredis.Client
	checks map[string]httpserver.Check
}

// NewLogger builds the process logger with request and tenant attributes.
func NewLogger(cfg logger.Config) *slog.Logger {
	return logger.NewFromConfig(cfg,
		logger.WithContextExtractors(requestid.LoggerExtractor(), tenant.LoggerExtractor()),
	)
}

// New connects to the shared store, migrates the directory and wires the
// caches. Redis is optional: without REDIS_URL the directory cache is
// process-local and invalidations stay in this process.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*App, error) {
	pgDriver := storage.NewPostgresDriver(cfg.PG, log)
	mongoDriver := storage.NewMongoDriver(cfg.Mongo)
	conns, err := storage.Connect(ctx, cfg.Storage,
		storage.WithLogger(log),
		storage.WithDriver("postgres", pgDriver),
		storage.WithDriver("postgresql", pgDriver),
		storage.WithDriver("mongodb", mongoDriver),
		storage.WithDriver("mongodb+srv", mongoDriver),
	)
	if err != nil {
		return nil, fmt.Errorf("connect shared store: %w", err)
	}

	a := &App{Connections: conns, Logger: log, checks: make(map[string]httpserver.Check)}

	pool, ok := conns.SharedPgx()
	if !ok {
		conns.Close()
		return nil, ErrSharedStoreNotPostgres
	}
	if err := tenantdb.Migrate(ctx, pool, cfg.PG, log); err != nil {
		conns.Close()
		return nil, err
	}
	a.checks["postgres"] = pg.Healthcheck(pool)
	a.checks["dedicated"] = conns.PingDedicated

	var cache tenant.Cache
	l1, err := tenant.NewRistrettoCache(int64(cfg.Tenant.CacheSize))
	if err != nil {
		log.WarnContext(ctx, "ristretto cache unavailable, using lru", logger.Error(err))
		cache = tenant.NewInMemoryCache(cfg.Tenant.CacheSize)
	} else {
		cache = l1
	}

	dirOpts := append(cfg.Tenant.DirectoryOptions(), tenant.WithDirectoryLogger(log))
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			conns.Close()
			return nil, err
		}
		a.redis = client
		a.checks["redis"] = redis.Healthcheck(client)

		cache = tenant.NewTieredCache(cache,
			tenant.NewRedisCache(client, tenant.WithRedisCacheLogger(log)),
			cfg.Tenant.L1TTL,
		)
		dirOpts = append(dirOpts, tenant.WithBus(tenant.NewRedisBus(client, cfg.Tenant.Channel, log)))
	}
	dirOpts = append(dirOpts, tenant.WithCache(cache))

	a.Directory = tenant.NewDirectory(tenantdb.New(conns), dirOpts...)
	a.Router = storage.NewRouter(a.Directory, conns)
	a.Directory.OnInvalidate(func(inv tenant.Invalidation) { a.Router.Forget(inv.ID) })
	a.Resolver = tenant.NewResolver(a.Directory,
		append(cfg.Tenant.ResolverOptions(), tenant.WithResolverLogger(log))...,
	)
	return a, nil
}

// HealthChecks returns the dependency checks for /health.
func (a *App) HealthChecks() map[string]httpserver.Check {
	return a.checks
}

// Listen applies invalidations published by other processes until ctx ends.
func (a *App) Listen(ctx context.Context) {
	if err := a.Directory.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.ErrorContext(ctx, "invalidation listener stopped", logger.Error(err))
	}
}

// Close releases every pool and client.
func (a *App) Close() {
	if err := a.Directory.Close(); err != nil {
		a.Logger.Warn("close directory cache", logger.Error(err))
	}
	a.Router.Close()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("close redis client", logger.Error(err))
		}
	}
}
