package storage_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/retry"
	"github.com/dmitrymomot/tenantkit/pkg/storage"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

var errConnRefused = errors.New("connection refused")

type fakeDriver struct {
	mu        sync.Mutex
	opens     map[string]int
	failOpens map[string]int
	openErr   error
	pools     map[string][]*fakePool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		opens:     make(map[string]int),
		failOpens: make(map[string]int),
		pools:     make(map[string][]*fakePool),
	}
}

func (d *fakeDriver) Open(ctx context.Context, dsn string) (storage.Pool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens[dsn]++
	if d.openErr != nil {
		return nil, d.openErr
	}
	if d.failOpens[dsn] > 0 {
		d.failOpens[dsn]--
		return nil, errConnRefused
	}
	p := &fakePool{dsn: dsn}
	d.pools[dsn] = append(d.pools[dsn], p)
	return p, nil
}

func (d *fakeDriver) Opens(dsn string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens[dsn]
}

func (d *fakeDriver) Pool(dsn string, i int) *fakePool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pools[dsn][i]
}

type fakePool struct {
	dsn         string
	closed      atomic.Bool
	acquired    atomic.Int32
	released    atomic.Int32
	failAcquire atomic.Int32
	block       chan struct{}
	pingErr     error
}

func (p *fakePool) Acquire(ctx context.Context) (storage.Session, error) {
	if p.closed.Load() {
		return nil, errors.New("pool closed")
	}
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.failAcquire.Load() > 0 {
		p.failAcquire.Add(-1)
		return nil, errConnRefused
	}
	p.acquired.Add(1)
	return &fakeSession{pool: p}, nil
}

func (p *fakePool) DefaultNamespace() string { return "main" }

func (p *fakePool) Close() { p.closed.Store(true) }

func (p *fakePool) Ping(context.Context) error { return p.pingErr }

type fakeSession struct {
	pool *fakePool
}

func (s *fakeSession) Release() { s.pool.released.Add(1) }

func fastRetry() retry.Policy {
	return retry.Policy{Attempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

type fixture struct {
	driver *fakeDriver
	store  *tenant.MemoryStore
	dir    *tenant.Directory
	conns  *storage.Connections
	router *storage.Router
}

func newFixture(t *testing.T, cfg storage.Config, tenants ...*tenant.Tenant) *fixture {
	t.Helper()
	if cfg.SharedDSN == "" {
		cfg.SharedDSN = "fake://shared"
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = fastRetry()
	}

	f := &fixture{driver: newFakeDriver(), store: tenant.NewMemoryStore(tenants...)}
	f.dir = tenant.NewDirectory(f.store)

	conns, err := storage.Connect(context.Background(), cfg, storage.WithDriver("fake", f.driver))
	require.NoError(t, err)
	f.conns = conns
	f.router = storage.NewRouter(f.dir, conns)
	f.dir.OnInvalidate(func(inv tenant.Invalidation) { f.router.Forget(inv.ID) })
	t.Cleanup(f.router.Close)
	return f
}

func sharedTenant(slug string) *tenant.Tenant {
	return &tenant.Tenant{
		ID:        uuid.New(),
		Slug:      slug,
		Partition: tenant.SharedPartition("tenant_" + slug),
		Active:    true,
		CreatedAt: time.Now(),
	}
}

func dedicatedTenant(slug string) *tenant.Tenant {
	return &tenant.Tenant{
		ID:        uuid.New(),
		Slug:      slug,
		Partition: tenant.DedicatedPartition("fake://" + slug),
		Active:    true,
		CreatedAt: time.Now(),
	}
}
