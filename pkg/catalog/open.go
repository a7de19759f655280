package catalog

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/tenantkit/pkg/storage"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Provisioner prepares a partition for catalog data.
type Provisioner interface {
	Provision(ctx context.Context, namespace string) error
}

// Router is the part of *storage.Router the catalog needs.
type Router interface {
	Do(ctx context.Context, tc tenant.Context, fn func(*storage.Handle) error) error
}

// Open returns the backend for the store behind h.
func Open(h *storage.Handle) (Backend, error) {
	if b, ok := h.Session().(Backend); ok {
		return b, nil
	}
	if q, ok := h.SQL(); ok {
		return NewPostgresBackend(q, h.Namespace()), nil
	}
	if db, ok := h.Documents(); ok {
		return NewMongoBackend(db), nil
	}
	return nil, ErrUnsupportedStore
}

// FromHandle returns a gateway for tc over h. The handle must be bound to tc's tenant.
func FromHandle(tc tenant.Context, h *storage.Handle, opts ...GatewayOption) (*Gateway, error) {
	id, ok := tc.ID()
	if !ok {
		return nil, ErrUnresolvedTenant
	}
	if h.TenantID() != id {
		return nil, fmt.Errorf("%w: storage handle belongs to another tenant", ErrUnresolvedTenant)
	}
	b, err := Open(h)
	if err != nil {
		return nil, err
	}
	return NewGateway(tc, b, opts...), nil
}

// With routes tc, runs fn with a gateway and releases the storage handle.
func With(ctx context.Context, r Router, tc tenant.Context, fn func(*Gateway) error, opts ...GatewayOption) error {
	if !tc.IsResolved() {
		return ErrUnresolvedTenant
	}
	return r.Do(ctx, tc, func(h *storage.Handle) error {
		g, err := FromHandle(tc, h, opts...)
		if err != nil {
			return err
		}
		return fn(g)
	})
}

// Provision creates the catalog tables or indexes in h's partition. It is
// idempotent.
func Provision(ctx context.Context, h *storage.Handle) error {
	if p, ok := h.Session().(Provisioner); ok {
		return p.Provision(ctx, h.Namespace())
	}
	if q, ok := h.SQL(); ok {
		return ProvisionPostgres(ctx, q, h.Namespace())
	}
	if db, ok := h.Documents(); ok {
		return ProvisionMongo(ctx, db)
	}
	return ErrUnsupportedStore
}
