package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// TenantLookup finds a tenant by id. *tenant.Directory implements it.
type TenantLookup interface {
	LookupID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
}

// Router routes resolved tenant contexts to storage handles.
type Router struct {
	dir   TenantLookup
	conns *Connections
}

// NewRouter creates a router over conns using dir for partition descriptors.
func NewRouter(dir TenantLookup, conns *Connections) *Router {
	return &Router{dir: dir, conns: conns}
}

// Route returns a handle bound to tc's partition. The caller must Release it.
//
// It fails with ErrUnresolvedTenant for an unresolved context, with
// tenant.ErrTenantNotFound or tenant.ErrInactiveTenant when the tenant is
// gone or was deactivated after resolution, and with ErrStorageUnavailable
// when the partition cannot be reached.
func (r *Router) Route(ctx context.Context, tc tenant.Context) (*Handle, error) {
	id, ok := tc.ID()
	if !ok {
		return nil, ErrUnresolvedTenant
	}

	t, err := r.dir.LookupID(ctx, id)
	switch {
	case errors.Is(err, tenant.ErrTenantNotFound):
		return nil, tenant.ErrTenantNotFound
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Join(ErrStorageUnavailable, err)
	case t.ID != id:
		return nil, fmt.Errorf("%w: directory returned tenant %s for %s", ErrUnresolvedTenant, t.ID, id)
	case !t.Active:
		return nil, tenant.ErrInactiveTenant
	}

	return r.conns.Partition(ctx, t)
}

// RouteForDirectory returns a handle on the shared store for directory access.
func (r *Router) RouteForDirectory(ctx context.Context) (*Handle, error) {
	return r.conns.RouteForDirectory(ctx)
}

// Do routes tc, runs fn with the handle and releases it on every path.
func (r *Router) Do(ctx context.Context, tc tenant.Context, fn func(*Handle) error) error {
	h, err := r.Route(ctx, tc)
	if err != nil {
		return err
	}
	defer h.Release()
	return fn(h)
}

// Forget drops the tenant's dedicated pool. Register it as a directory
// invalidation hook so descriptor changes close stale pools promptly.
func (r *Router) Forget(id uuid.UUID) {
	r.conns.Forget(id)
}

// Close closes all pools.
func (r *Router) Close() {
	r.conns.Close()
}
