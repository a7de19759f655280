package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/retry"
)

// PostgresNamespace is the schema of a dedicated PostgreSQL partition.
const PostgresNamespace = "public"

// PostgresDriver opens pgx pools with the limits of a base pg.Config.
type PostgresDriver struct {
	cfg    pg.Config
	logger *slog.Logger
}

// NewPostgresDriver creates a driver. Only cfg's pool limits are used; the
// connection string comes from each descriptor.
func NewPostgresDriver(cfg pg.Config, log *slog.Logger) *PostgresDriver {
	// Connections owns the retry loop.
	cfg.Retry = retry.Policy{Attempts: 1}
	return &PostgresDriver{cfg: cfg, logger: log}
}

func (d *PostgresDriver) Open(ctx context.Context, dsn string) (Pool, error) {
	pool, err := pg.ConnectWithLogger(ctx, d.cfg.WithConnectionString(dsn), d.logger)
	if err != nil {
		if pg.IsPermanentConnectError(err) || errors.Is(err, pg.ErrFailedToParseDBConfig) {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	return &postgresPool{pool: pool}, nil
}

type postgresPool struct {
	pool *pgxpool.Pool
}

func (p *postgresPool) Acquire(ctx context.Context) (Session, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &postgresSession{conn: conn}, nil
}

func (p *postgresPool) DefaultNamespace() string { return PostgresNamespace }

func (p *postgresPool) Close() { p.pool.Close() }

func (p *postgresPool) Ping(ctx context.Context) error { return pg.Healthcheck(p.pool)(ctx) }

type postgresSession struct {
	conn *pgxpool.Conn
}

func (s *postgresSession) Querier() Querier { return s.conn }

func (s *postgresSession) Begin(ctx context.Context) (pgx.Tx, error) { return s.conn.Begin(ctx) }

func (s *postgresSession) Release() { s.conn.Release() }

// PgxPool returns the underlying pgx pool of a pool opened by PostgresDriver.
func PgxPool(p Pool) (*pgxpool.Pool, bool) {
	pp, ok := p.(*postgresPool)
	if !ok {
		return nil, false
	}
	return pp.pool, true
}
