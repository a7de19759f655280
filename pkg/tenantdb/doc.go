// Package tenantdb persists the tenant directory in the shared postgres
// store.
//
// The tenants table lives in the shared store's public schema and is never
// tenant-scoped. Migrate applies the embedded goose migrations; Store
// implements tenant.Store and is what tenant.NewDirectory reads through.
//
//	conns, _ := storage.Connect(ctx, cfg)
//	pool, _ := conns.SharedPgx()
//	_ = tenantdb.Migrate(ctx, pool, pgCfg, log)
//	dir := tenant.NewDirectory(tenantdb.New(conns))
package tenantdb
