// Package tenant identifies which tenant a request belongs to and keeps the
// authoritative registry of tenants.
//
// # Architecture
//
// The package is built around four pieces:
//
//  1. Tenant - the unit of isolation: stable id, unique slug, active flag and
//     a Partition describing where its data lives (a schema inside the shared
//     store, or a dedicated store reached through its own connection descriptor).
//  2. Directory - slug and id lookups over a Store, fronted by a Cache.
//     Administrative mutations invalidate cached entries locally and, when a
//     Bus is configured, in every other process.
//  3. Resolver - maps an inbound request to a Context: the X-Tenant-Slug header
//     when present, otherwise the first label of a host with at least three
//     labels. At most one directory lookup per request.
//  4. Context - an immutable value holding the resolved tenant id and slug, or
//     nothing. It is passed as an explicit argument to every storage call.
//
// # Usage
//
//	dir := tenant.NewDirectory(store,
//		tenant.WithCache(tenant.NewInMemoryCache()),
//		tenant.WithCacheTTL(5*time.Minute),
//	)
//	resolver := tenant.NewResolver(dir)
//
//	router.Use(tenant.Middleware(resolver))
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		tc := tenant.FromContext(r.Context())
//		h, err := storageRouter.Route(r.Context(), tc)
//		...
//	}
//
// FromContext and WithContext exist for the HTTP edge only. Code below the
// handler receives the Context as a parameter and never reads it back out of
// a context.Context.
//
// # Caching
//
// Lookups are served from the Cache and fall back to the Store on a miss.
// Concurrent misses for the same key share one Store read. Cached tenants
// are immutable snapshots; callers always receive their own copy. Missing
// tenants are never cached.
//
// Available caches: NewInMemoryCache (TTL + LRU), NewRistrettoCache,
// NewRedisCache and NewTieredCache to combine an in-process cache with Redis.
//
// # Error Handling
//
//   - ErrTenantNotFound: no tenant with that slug or id
//   - ErrInactiveTenant: the tenant exists but is deactivated
//   - ErrUnresolvedTenant: an operation needs a resolved Context and got none
//   - ErrInvalidTenant, ErrInvalidSlug, ErrInvalidPartition, ErrSlugTaken,
//     ErrPartitionTaken, ErrStrategyChange: rejected administrative input
package tenant
