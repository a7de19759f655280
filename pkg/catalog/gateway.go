package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Gateway exposes product operations for one tenant context.
type Gateway struct {
	tc      tenant.Context
	backend Backend
	now     func() time.Time
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGateway binds backend to tc. An unresolved tc yields a gateway whose
// every operation fails with ErrUnresolvedTenant.
func NewGateway(tc tenant.Context, backend Backend, opts ...GatewayOption) *Gateway {
	g := &Gateway{tc: tc, backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Tenant returns the context the gateway is bound to.
func (g *Gateway) Tenant() tenant.Context {
	return g.tc
}

func (g *Gateway) store() (Store, uuid.UUID, error) {
	id, ok := g.tc.ID()
	if !ok {
		return nil, uuid.Nil, ErrUnresolvedTenant
	}
	return g.backend.Scoped(id), id, nil
}

// Get returns the tenant's product with id.
func (g *Gateway) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	s, _, err := g.store()
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// GetBySKU returns the tenant's product with sku.
func (g *Gateway) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	s, _, err := g.store()
	if err != nil {
		return nil, err
	}
	return s.GetBySKU(ctx, sku)
}

// List returns a page of the tenant's products matching f.
func (g *Gateway) List(ctx context.Context, f Filter, p Page) ([]*Product, error) {
	s, _, err := g.store()
	if err != nil {
		return nil, err
	}
	return s.List(ctx, f, p.normalize())
}

// Count returns how many of the tenant's products match f.
func (g *Gateway) Count(ctx context.Context, f Filter) (int64, error) {
	s, _, err := g.store()
	if err != nil {
		return 0, err
	}
	return s.Count(ctx, f)
}

// Exists reports whether the tenant owns a product with id.
func (g *Gateway) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	s, _, err := g.store()
	if err != nil {
		return false, err
	}
	return s.Exists(ctx, id)
}

// Add stores a new product owned by the resolved tenant. The product gets a
// fresh ID and any TenantID on p is overwritten. p itself is not modified.
func (g *Gateway) Add(ctx context.Context, p *Product) (*Product, error) {
	s, tenantID, err := g.store()
	if err != nil {
		return nil, err
	}

	np := p.clone()
	np.ID = uuid.New()
	np.TenantID = tenantID
	now := g.now().UTC()
	np.CreatedAt, np.UpdatedAt = now, now

	if err := np.Validate(); err != nil {
		return nil, err
	}
	if err := s.Insert(ctx, np); err != nil {
		return nil, err
	}
	return np, nil
}

// Update overwrites a product the tenant owns. Products of other tenants
// report ErrNotFound.
func (g *Gateway) Update(ctx context.Context, p *Product) (*Product, error) {
	s, tenantID, err := g.store()
	if err != nil {
		return nil, err
	}

	np := p.clone()
	np.TenantID = tenantID
	np.UpdatedAt = g.now().UTC()
	if np.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	if err := np.Validate(); err != nil {
		return nil, err
	}
	if err := s.Update(ctx, np); err != nil {
		return nil, err
	}
	return np, nil
}

// Delete removes a product the tenant owns.
func (g *Gateway) Delete(ctx context.Context, id uuid.UUID) error {
	s, _, err := g.store()
	if err != nil {
		return err
	}
	return s.Delete(ctx, id)
}
