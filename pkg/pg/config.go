package pg

import (
	"time"

	"github.com/dmitrymomot/tenantkit/pkg/retry"
)

type Config struct {
	ConnectionString  string        `env:"PG_CONN_URL"`                            // ConnectionString is the connection string to the database.
	MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`      // MaxOpenConns is the maximum number of open connections to the database.
	MaxIdleConns      int32         `env:"PG_MAX_IDLE_CONNS" envDefault:"0"`       // MaxIdleConns is the number of connections kept open when idle.
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`  // HealthCheckPeriod is the period between health checks.
	MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"` // MaxConnIdleTime is the maximum amount of time a connection may be idle to be reused.
	MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`  // MaxConnLifetime is the maximum amount of time a connection may be reused.

	Retry retry.Policy `envPrefix:"PG_"` // Retry bounds connection attempts (PG_RETRY_ATTEMPTS, PG_RETRY_INITIAL_INTERVAL, PG_RETRY_MAX_INTERVAL).

	MigrationsTable string `env:"PG_MIGRATIONS_TABLE" envDefault:"schema_migrations"` // MigrationsTable is the name of the table used to store the migration version.
}

// WithConnectionString returns a copy of cfg pointing at another database.
// Dedicated partitions reuse the shared pool limits this way.
func (c Config) WithConnectionString(dsn string) Config {
	c.ConnectionString = dsn
	return c
}
