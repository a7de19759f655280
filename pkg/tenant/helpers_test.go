package tenant_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

var errStoreDown = errors.New("store down")

func newTenant(slug string, active bool) *tenant.Tenant {
	now := time.Now().UTC()
	return &tenant.Tenant{
		ID:        uuid.New(),
		Slug:      slug,
		Name:      slug,
		Partition: tenant.SharedPartition("tenant_" + slug),
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// countingLookuper records every lookup it serves.
type countingLookuper struct {
	tenants map[string]*tenant.Tenant
	err     error
	calls   atomic.Int32
	mu      sync.Mutex
	slugs   []string
}

func newCountingLookuper(ts ...*tenant.Tenant) *countingLookuper {
	l := &countingLookuper{tenants: make(map[string]*tenant.Tenant)}
	for _, t := range ts {
		l.tenants[t.Slug] = t
	}
	return l
}

func (l *countingLookuper) Lookup(_ context.Context, slug string) (*tenant.Tenant, error) {
	l.calls.Add(1)
	l.mu.Lock()
	l.slugs = append(l.slugs, slug)
	l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	t, ok := l.tenants[slug]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t.Clone(), nil
}

func (l *countingLookuper) looked() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.slugs...)
}

// gatedStore blocks slug reads until release is closed.
type gatedStore struct {
	*tenant.MemoryStore
	release chan struct{}
	failing atomic.Bool
}

func (s *gatedStore) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	<-s.release
	if s.failing.Load() {
		return nil, errStoreDown
	}
	return s.MemoryStore.GetBySlug(ctx, slug)
}

// recordingBus keeps published invalidations and lets tests push remote ones.
type recordingBus struct {
	mu        sync.Mutex
	published []tenant.Invalidation
	remote    chan tenant.Invalidation
	failWith  error
}

func newRecordingBus() *recordingBus {
	return &recordingBus{remote: make(chan tenant.Invalidation, 8)}
}

func (b *recordingBus) Publish(_ context.Context, inv tenant.Invalidation) error {
	if b.failWith != nil {
		return b.failWith
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, inv)
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, fn func(tenant.Invalidation)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case inv := <-b.remote:
			fn(inv)
		}
	}
}

func (b *recordingBus) Published() []tenant.Invalidation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tenant.Invalidation(nil), b.published...)
}
