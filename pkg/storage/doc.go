// Package storage routes a resolved tenant to its data partition.
//
// Connections owns the physical side: one pool for the shared store and a
// bounded set of per-tenant pools for dedicated partitions. Router adds the
// tenant side: it takes an explicit tenant.Context, looks the tenant up in
// the directory and asks Connections for a Handle bound to the tenant's
// partition.
//
// # Partitions
//
// A shared tenant gets a session from the shared pool and a Handle whose
// Namespace is the tenant's partition key. SQL callers qualify table names
// with it; the session's search_path is never changed, so a pooled
// connection carries no tenant state between requests.
//
// A dedicated tenant gets a session from its own pool. Pools are opened on
// first use, shared by concurrent requests, replaced when the connection
// descriptor changes and closed when evicted. Closing waits for sessions
// still checked out, so an eviction never cuts an in-flight request short.
//
// # Drivers
//
// The descriptor's URL scheme selects the driver: postgres and postgresql
// use pgx, mongodb and mongodb+srv use the MongoDB driver. WithDriver
// registers another scheme.
//
// # Failure Policy
//
// Opening a pool and acquiring a session are retried with capped
// exponential backoff according to Config.Retry. When attempts run out the
// error wraps ErrStorageUnavailable. Cancellation returns the context error
// at once.
//
// # Usage
//
//	conns, err := storage.Connect(ctx, cfg)
//	...
//	router := storage.NewRouter(directory, conns)
//	directory.OnInvalidate(func(inv tenant.Invalidation) { router.Forget(inv.ID) })
//
//	err = router.Do(ctx, tc, func(h *storage.Handle) error {
//		q, _ := h.SQL()
//		...
//	})
package storage
