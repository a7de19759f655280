package pg

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/retry"
)

// Connect establishes a PostgreSQL connection pool and verifies it with a ping.
// Transient failures are retried according to cfg.Retry.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	return ConnectWithLogger(ctx, cfg, nil)
}

// ConnectWithLogger is Connect with retry attempts reported to log.
func ConnectWithLogger(ctx context.Context, cfg Config, log *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.ConnectionString == "" {
		return nil, ErrEmptyConnectionString
	}

	connConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	if cfg.MaxOpenConns > 0 {
		connConfig.MaxConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		connConfig.MinConns = min(cfg.MaxIdleConns, connConfig.MaxConns)
	}
	if cfg.HealthCheckPeriod > 0 {
		connConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	if cfg.MaxConnIdleTime > 0 {
		connConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.MaxConnLifetime > 0 {
		connConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	var opts []retry.Option
	if log != nil {
		opts = append(opts, retry.WithNotify(func(err error, attempt uint, next time.Duration) {
			log.WarnContext(ctx, "postgres connection attempt failed",
				logger.Attempt(attempt), logger.Delay(next), logger.Error(err))
		}))
	}

	pool, err := retry.Do(ctx, cfg.Retry, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err != nil {
			return nil, classify(err)
		}
		// A ping surfaces authentication and permission problems that
		// pool creation alone does not.
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, classify(err)
		}
		return pool, nil
	}, opts...)
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDBConnection, err)
	}
	return pool, nil
}

func classify(err error) error {
	if IsPermanentConnectError(err) {
		return retry.Permanent(err)
	}
	return err
}
