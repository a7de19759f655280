// Package pg provides PostgreSQL connectivity on top of pgx/v5.
//
// It covers the pieces every postgres-backed partition needs: a pool built
// from Config with bounded, capped exponential retry (Connect), embedded goose
// migrations (Migrate), a health check closure and error classifiers for
// pgconn errors.
//
// # Usage
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations, "migrations", cfg, log); err != nil {
//		return err
//	}
//
// Connect retries only failures that can go away on their own. Rejected
// credentials, unknown databases and malformed connection strings fail on the
// first attempt.
//
// # Error Handling
//
// IsDuplicateKeyError and IsNotFoundError unwrap pgx errors so stores can map
// them to their own sentinel errors.
package pg
