package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// Directory is the authoritative registry of tenants with a lookup cache.
type Directory struct {
	store         Store
	cache         Cache
	ttl           time.Duration
	bus           Bus
	logger        *slog.Logger
	lookupTimeout time.Duration
	now           func() time.Time

	group singleflight.Group

	// gen advances on every invalidation; a fill that started under an older
	// generation is discarded instead of cached.
	fillMu sync.Mutex
	gen    atomic.Uint64

	hooksMu sync.RWMutex
	hooks   []func(Invalidation)
}

// NewDirectory creates a directory over store.
func NewDirectory(store Store, opts ...DirectoryOption) *Directory {
	d := &Directory{
		store:         store,
		ttl:           DefaultCacheTTL,
		logger:        slog.Default(),
		lookupTimeout: DefaultLookupTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func slugKey(slug string) string { return "slug:" + slug }
func idKey(id uuid.UUID) string  { return "id:" + id.String() }

// Lookup returns the tenant with slug, active or not.
func (d *Directory) Lookup(ctx context.Context, slug string) (*Tenant, error) {
	if !IsValidSlug(slug) {
		return nil, ErrTenantNotFound
	}
	return d.lookup(ctx, slugKey(slug), func(ctx context.Context) (*Tenant, error) {
		return d.store.GetBySlug(ctx, slug)
	})
}

// LookupID returns the tenant with id, active or not.
func (d *Directory) LookupID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	if id == uuid.Nil {
		return nil, ErrTenantNotFound
	}
	return d.lookup(ctx, idKey(id), func(ctx context.Context) (*Tenant, error) {
		return d.store.GetByID(ctx, id)
	})
}

func (d *Directory) lookup(ctx context.Context, key string, fetch func(context.Context) (*Tenant, error)) (*Tenant, error) {
	if d.cache != nil {
		if t, ok := d.cache.Get(ctx, key); ok {
			return t.Clone(), nil
		}
	}

	gen := d.gen.Load()
	ch := d.group.DoChan(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		// The read is shared, so one caller giving up must not fail the rest.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.lookupTimeout)
		defer cancel()

		t, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		d.fill(fctx, gen, t)
		return t, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, ErrTenantNotFound) {
				return nil, ErrTenantNotFound
			}
			return nil, fmt.Errorf("lookup tenant: %w", res.Err)
		}
		return res.Val.(*Tenant).Clone(), nil
	}
}

// fill caches t under both keys unless an invalidation happened since gen.
func (d *Directory) fill(ctx context.Context, gen uint64, t *Tenant) {
	if d.cache == nil {
		return
	}
	d.fillMu.Lock()
	defer d.fillMu.Unlock()
	if d.gen.Load() != gen {
		return
	}
	snapshot := t.Clone()
	d.cache.Set(ctx, slugKey(snapshot.Slug), snapshot, d.ttl)
	d.cache.Set(ctx, idKey(snapshot.ID), snapshot, d.ttl)
}

// OnInvalidate registers fn to run after every invalidation, local or remote.
func (d *Directory) OnInvalidate(fn func(Invalidation)) {
	d.hooksMu.Lock()
	defer d.hooksMu.Unlock()
	d.hooks = append(d.hooks, fn)
}

// Invalidate drops cached state for the tenant in this process only.
func (d *Directory) Invalidate(ctx context.Context, inv Invalidation) {
	d.fillMu.Lock()
	d.gen.Add(1)
	if d.cache != nil {
		keys := make([]string, 0, len(inv.Slugs)+1)
		if inv.ID != uuid.Nil {
			keys = append(keys, idKey(inv.ID))
		}
		for _, s := range inv.Slugs {
			keys = append(keys, slugKey(s))
		}
		d.cache.Delete(ctx, keys...)
	}
	d.fillMu.Unlock()

	d.hooksMu.RLock()
	hooks := d.hooks
	d.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(inv)
	}
}

// Listen applies invalidations published by other processes until ctx is
// done. It returns immediately when no Bus is configured.
func (d *Directory) Listen(ctx context.Context) error {
	if d.bus == nil {
		return nil
	}
	return d.bus.Subscribe(ctx, func(inv Invalidation) {
		d.Invalidate(ctx, inv)
	})
}

// Close releases the cache.
func (d *Directory) Close() error {
	if d.cache == nil {
		return nil
	}
	return d.cache.Close()
}

// CreateParams describes a new tenant.
type CreateParams struct {
	Slug      string
	Name      string
	Partition Partition
	// Inactive registers the tenant without admitting traffic.
	Inactive bool
}

// CreateTenant registers a new tenant.
func (d *Directory) CreateTenant(ctx context.Context, p CreateParams) (*Tenant, error) {
	now := d.now().UTC()
	t := &Tenant{
		ID:        uuid.New(),
		Slug:      p.Slug,
		Name:      p.Name,
		Partition: p.Partition,
		Active:    !p.Inactive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := d.store.Create(ctx, t); err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "tenant created",
		logger.TenantID(t.ID),
		logger.TenantSlug(t.Slug),
		logger.Strategy(string(t.Partition.Strategy)),
	)
	return t.Clone(), nil
}

// DeactivateTenant stops admitting the tenant's traffic.
func (d *Directory) DeactivateTenant(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	return d.mutate(ctx, id, "tenant deactivated", func(t *Tenant) error {
		t.Active = false
		return nil
	})
}

// ActivateTenant admits the tenant's traffic again.
func (d *Directory) ActivateTenant(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	return d.mutate(ctx, id, "tenant activated", func(t *Tenant) error {
		t.Active = true
		return nil
	})
}

// UpdateConnectionInfo replaces the partition descriptor. The isolation
// strategy is fixed at creation.
func (d *Directory) UpdateConnectionInfo(ctx context.Context, id uuid.UUID, p Partition) (*Tenant, error) {
	return d.mutate(ctx, id, "tenant connection info updated", func(t *Tenant) error {
		if p.Strategy != t.Partition.Strategy {
			return fmt.Errorf("%w: %s to %s", ErrStrategyChange, t.Partition.Strategy, p.Strategy)
		}
		t.Partition = p
		return nil
	})
}

// RenameTenant changes the slug. The old slug stops resolving immediately in
// this process and within one bus delivery elsewhere.
func (d *Directory) RenameTenant(ctx context.Context, id uuid.UUID, slug string) (*Tenant, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	return d.mutate(ctx, id, "tenant renamed", func(t *Tenant) error {
		t.Slug = slug
		return nil
	})
}

// ListTenants returns all tenants straight from the store.
func (d *Directory) ListTenants(ctx context.Context) ([]*Tenant, error) {
	return d.store.List(ctx)
}

func (d *Directory) mutate(ctx context.Context, id uuid.UUID, msg string, apply func(*Tenant) error) (*Tenant, error) {
	cur, err := d.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := cur.Clone()
	if err := apply(next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = d.now().UTC()
	if err := d.store.Update(ctx, next); err != nil {
		return nil, err
	}

	inv := Invalidation{ID: id, Slugs: []string{cur.Slug}}
	if next.Slug != cur.Slug {
		inv.Slugs = append(inv.Slugs, next.Slug)
	}
	d.Invalidate(ctx, inv)
	d.publish(ctx, inv)

	d.logger.InfoContext(ctx, msg,
		logger.TenantID(id),
		logger.TenantSlug(next.Slug),
		slog.Bool("active", next.Active),
	)
	return next.Clone(), nil
}

// publish is best effort: the store already holds the change and remote
// caches expire on their own.
func (d *Directory) publish(ctx context.Context, inv Invalidation) {
	if d.bus == nil {
		return
	}
	if err := d.bus.Publish(ctx, inv); err != nil {
		d.logger.WarnContext(ctx, "failed to publish tenant invalidation",
			logger.TenantID(inv.ID),
			logger.Error(err),
		)
	}
}
