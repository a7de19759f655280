package tenantdb

import (
	"context"
	"embed"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate creates or upgrades the tenants table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MigrationsTable == "" {
		cfg.MigrationsTable = "tenant_directory_migrations"
	}
	return pg.Migrate(ctx, pool, migrations, "migrations", cfg, log)
}
