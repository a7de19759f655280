// Package catalog is the tenant-scoped product gateway.
//
// Every read and write goes through a Store obtained from Backend.Scoped,
// which binds the tenant id into the lowest query layer: the SQL store ANDs
// tenant_id into every WHERE clause, the document store puts tenant_id in
// every filter and the in-memory store partitions its maps by tenant.
// Caller-supplied filters only narrow that scope.
//
// Gateway is the entry point. It takes an explicit tenant.Context and fails
// every operation with ErrUnresolvedTenant when the context is unresolved.
// Products written through it always carry the resolved tenant id, whatever
// the caller put there. A product owned by another tenant is reported as
// ErrNotFound, exactly like a missing one. SKUs are unique per tenant.
//
// # Usage
//
//	err := catalog.With(ctx, router, tc, func(g *catalog.Gateway) error {
//		p, err := g.Add(ctx, &catalog.Product{SKU: "SKU-1", Name: "Mug", Price: 1299})
//		...
//	})
//
// With routes the tenant through the storage router, picks the backend that
// matches the partition and releases the storage handle on return.
package catalog
