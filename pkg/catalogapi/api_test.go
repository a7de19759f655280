package catalogapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/catalog"
	"github.com/dmitrymomot/tenantkit/pkg/catalogapi"
	"github.com/dmitrymomot/tenantkit/pkg/requestid"
	"github.com/dmitrymomot/tenantkit/pkg/retry"
	"github.com/dmitrymomot/tenantkit/pkg/storage"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

type memDriver struct {
	mu     sync.Mutex
	stores map[string]*catalog.MemoryBackend
}

func (d *memDriver) Open(_ context.Context, dsn string) (storage.Pool, error) {
	if strings.Contains(dsn, "unreachable") {
		return nil, errors.New("connection refused")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stores == nil {
		d.stores = make(map[string]*catalog.MemoryBackend)
	}
	if _, ok := d.stores[dsn]; !ok {
		d.stores[dsn] = catalog.NewMemoryBackend()
	}
	return memPool{b: d.stores[dsn]}, nil
}

type memPool struct{ b *catalog.MemoryBackend }

func (p memPool) Acquire(context.Context) (storage.Session, error) {
	return memSession{MemoryBackend: p.b}, nil
}
func (memPool) DefaultNamespace() string { return "main" }
func (memPool) Close()                   {}

type memSession struct{ *catalog.MemoryBackend }

func (memSession) Release() {}

type env struct {
	srv    *httptest.Server
	dir    *tenant.Directory
	driver *memDriver
}

func newEnv(t *testing.T, checks ...catalogapi.Option) *env {
	t.Helper()

	ctx := context.Background()
	drv := &memDriver{}
	dir := tenant.NewDirectory(tenant.NewMemoryStore(), tenant.WithCache(tenant.NewInMemoryCache()))
	conns, err := storage.Connect(ctx, storage.Config{
		SharedDSN: "mem://shared",
		Retry:     retry.Policy{Attempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	}, storage.WithDriver("mem", drv))
	require.NoError(t, err)
	router := storage.NewRouter(dir, conns)
	dir.OnInvalidate(func(inv tenant.Invalidation) { router.Forget(inv.ID) })
	t.Cleanup(router.Close)

	for slug, p := range map[string]tenant.Partition{
		"company-a": tenant.SharedPartition("company_a"),
		"company-b": tenant.DedicatedPartition("mem://company-b"),
	} {
		_, err := dir.CreateTenant(ctx, tenant.CreateParams{Slug: slug, Name: slug, Partition: p})
		require.NoError(t, err)
	}

	api := catalogapi.New(tenant.NewResolver(dir), router, checks...)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &env{srv: srv, dir: dir, driver: drv}
}

type result struct {
	status int
	header http.Header
	body   map[string]any
}

func (e *env) do(t *testing.T, method, path, slug string, body any) result {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	if slug != "" {
		req.Header.Set(tenant.DefaultHeader, slug)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := result{status: resp.StatusCode, header: resp.Header}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out.body))
	}
	return out
}

func (r result) data(t *testing.T) map[string]any {
	t.Helper()
	d, ok := r.body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", r.body)
	return d
}

func (r result) errorCode() string {
	e, _ := r.body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func widget(sku string) map[string]any {
	return map[string]any{"sku": sku, "name": "Widget", "price": 1299, "stock_quantity": 3, "category": "tools"}
}

func TestProducts_SameSKUInTwoTenants(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	for _, slug := range []string{"company-a", "company-b"} {
		res := e.do(t, http.MethodPost, "/api/products", slug, widget("X"))
		require.Equal(t, http.StatusCreated, res.status, res.body)
		assert.NotEmpty(t, res.header.Get("Location"))
		assert.NotEmpty(t, res.header.Get(requestid.Header))
	}

	for _, slug := range []string{"company-a", "company-b"} {
		res := e.do(t, http.MethodGet, "/api/products", slug, nil)
		require.Equal(t, http.StatusOK, res.status)
		items, ok := res.body["data"].([]any)
		require.True(t, ok)
		assert.Len(t, items, 1)
		assert.EqualValues(t, 1, res.body["meta"].(map[string]any)["total"])
	}
}

func TestProducts_CRUD(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	created := e.do(t, http.MethodPost, "/api/products", "company-a", widget("W-1"))
	require.Equal(t, http.StatusCreated, created.status)
	id := created.data(t)["id"].(string)

	got := e.do(t, http.MethodGet, "/api/products/"+id, "company-a", nil)
	require.Equal(t, http.StatusOK, got.status)
	assert.Equal(t, "W-1", got.data(t)["sku"])
	assert.Equal(t, true, got.data(t)["active"])

	bySKU := e.do(t, http.MethodGet, "/api/products/sku/W-1", "company-a", nil)
	require.Equal(t, http.StatusOK, bySKU.status)
	assert.Equal(t, id, bySKU.data(t)["id"])

	upd := widget("W-1")
	upd["name"] = "Renamed"
	upd["active"] = false
	updated := e.do(t, http.MethodPut, "/api/products/"+id, "company-a", upd)
	require.Equal(t, http.StatusOK, updated.status)
	assert.Equal(t, "Renamed", updated.data(t)["name"])
	assert.Equal(t, false, updated.data(t)["active"])

	inactive := e.do(t, http.MethodGet, "/api/products?active=false", "company-a", nil)
	require.Equal(t, http.StatusOK, inactive.status)
	assert.Len(t, inactive.body["data"], 1)

	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/products/"+id, "company-a", nil).status)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/products/"+id, "company-a", nil).status)
}

func TestProducts_TenantIsolation(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	created := e.do(t, http.MethodPost, "/api/products", "company-a", widget("SECRET"))
	require.Equal(t, http.StatusCreated, created.status)
	id := created.data(t)["id"].(string)

	for _, tc := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/products/" + id, nil},
		{http.MethodGet, "/api/products/sku/SECRET", nil},
		{http.MethodPut, "/api/products/" + id, widget("SECRET")},
		{http.MethodDelete, "/api/products/" + id, nil},
	} {
		res := e.do(t, tc.method, tc.path, "company-b", tc.body)
		assert.Equal(t, http.StatusNotFound, res.status, "%s %s", tc.method, tc.path)
		assert.Equal(t, "not_found", res.errorCode())
	}

	still := e.do(t, http.MethodGet, "/api/products/"+id, "company-a", nil)
	assert.Equal(t, http.StatusOK, still.status)
	assert.Equal(t, "Widget", still.data(t)["name"])
}

func TestProducts_Errors(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	t.Run("no tenant", func(t *testing.T) {
		res := e.do(t, http.MethodGet, "/api/products", "", nil)
		assert.Equal(t, http.StatusBadRequest, res.status)
		assert.Equal(t, "tenant_unresolved", res.errorCode())
	})

	t.Run("unknown tenant", func(t *testing.T) {
		res := e.do(t, http.MethodGet, "/api/products", "nobody", nil)
		assert.Equal(t, http.StatusBadRequest, res.status)
	})

	t.Run("duplicate sku", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/products", "company-a", widget("DUP")).status)
		res := e.do(t, http.MethodPost, "/api/products", "company-a", widget("DUP"))
		assert.Equal(t, http.StatusConflict, res.status)
		assert.Equal(t, "duplicate_key", res.errorCode())
	})

	t.Run("invalid product", func(t *testing.T) {
		res := e.do(t, http.MethodPost, "/api/products", "company-a", map[string]any{"sku": "", "name": "x"})
		assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	})

	t.Run("malformed input", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/products/not-a-uuid", "company-a", nil).status)
		assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/products?limit=-1", "company-a", nil).status)
		assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/products", "company-a", map[string]any{"unknown": 1}).status)
	})

	t.Run("inactive tenant", func(t *testing.T) {
		a, err := e.dir.Lookup(context.Background(), "company-a")
		require.NoError(t, err)
		// A separate tenant keeps the other subtests unaffected.
		_, err = e.dir.CreateTenant(context.Background(), tenant.CreateParams{Slug: "gone", Name: "Gone", Partition: a.Partition, Inactive: true})
		require.NoError(t, err)
		res := e.do(t, http.MethodGet, "/api/products", "gone", nil)
		assert.Equal(t, http.StatusBadRequest, res.status)
	})

	t.Run("unreachable dedicated store", func(t *testing.T) {
		_, err := e.dir.CreateTenant(context.Background(), tenant.CreateParams{
			Slug: "far-away", Name: "Far", Partition: tenant.DedicatedPartition("mem://unreachable"),
		})
		require.NoError(t, err)
		res := e.do(t, http.MethodGet, "/api/products", "far-away", nil)
		assert.Equal(t, http.StatusServiceUnavailable, res.status)
		assert.Equal(t, "storage_unavailable", res.errorCode())
	})
}

func TestHealth(t *testing.T) {
	t.Parallel()

	down := errors.New("down")
	e := newEnv(t,
		catalogapi.WithHealthCheck("shared", func(context.Context) error { return nil }),
		catalogapi.WithHealthCheck("redis", func(context.Context) error { return down }),
	)

	res := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, res.status)
	assert.Equal(t, "degraded", res.body["status"])
}
