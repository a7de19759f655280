package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/catalog"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

func resolved(slug string) tenant.Context {
	return tenant.Resolved(&tenant.Tenant{ID: uuid.New(), Slug: slug})
}

func product(sku string) *catalog.Product {
	return &catalog.Product{
		SKU:           sku,
		Name:          "Product " + sku,
		Category:      "mugs",
		Price:         1299,
		StockQuantity: 10,
		Active:        true,
	}
}

func tenantID(t *testing.T, tc tenant.Context) uuid.UUID {
	t.Helper()
	id, ok := tc.ID()
	require.True(t, ok)
	return id
}

// runGatewaySuite checks the isolation contract against any backend.
func runGatewaySuite(t *testing.T, newBackend func(t *testing.T) catalog.Backend) {
	ctx := context.Background()

	t.Run("reads never cross tenants", func(t *testing.T) {
		b := newBackend(t)
		a, c := resolved("company-a"), resolved("company-b")
		ga, gc := catalog.NewGateway(a, b), catalog.NewGateway(c, b)

		created, err := ga.Add(ctx, product("SKU-1"))
		require.NoError(t, err)

		_, err = gc.Get(ctx, created.ID)
		assert.ErrorIs(t, err, catalog.ErrNotFound)
		_, err = gc.GetBySKU(ctx, "SKU-1")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
		list, err := gc.List(ctx, catalog.Filter{}, catalog.Page{})
		require.NoError(t, err)
		assert.Empty(t, list)
		exists, err := gc.Exists(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, exists)
		n, err := gc.Count(ctx, catalog.Filter{})
		require.NoError(t, err)
		assert.Zero(t, n)

		got, err := ga.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "SKU-1", got.SKU)
		exists, err = ga.Exists(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("add stamps the resolved tenant", func(t *testing.T) {
		b := newBackend(t)
		a := resolved("company-a")
		g := catalog.NewGateway(a, b)

		in := product("SKU-1")
		in.TenantID = uuid.New()
		created, err := g.Add(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, tenantID(t, a), created.TenantID)
		assert.NotEqual(t, created.TenantID, in.TenantID, "input must not be modified")

		stored, err := g.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, tenantID(t, a), stored.TenantID)
	})

	t.Run("add ignores a caller supplied id", func(t *testing.T) {
		b := newBackend(t)
		ga := catalog.NewGateway(resolved("company-a"), b)
		gb := catalog.NewGateway(resolved("company-b"), b)

		owned, err := ga.Add(ctx, product("SKU-1"))
		require.NoError(t, err)

		in := product("SKU-2")
		in.ID = owned.ID
		created, err := gb.Add(ctx, in)
		require.NoError(t, err)
		assert.NotEqual(t, owned.ID, created.ID)

		_, err = gb.Get(ctx, owned.ID)
		assert.ErrorIs(t, err, catalog.ErrNotFound)
		got, err := ga.Get(ctx, owned.ID)
		require.NoError(t, err)
		assert.Equal(t, "SKU-1", got.SKU)
	})

	t.Run("unresolved gateway fails and persists nothing", func(t *testing.T) {
		b := newBackend(t)
		g := catalog.NewGateway(tenant.Unresolved(), b)

		_, err := g.Add(ctx, product("SKU-1"))
		assert.ErrorIs(t, err, catalog.ErrUnresolvedTenant)
		_, err = g.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, catalog.ErrUnresolvedTenant)
		_, err = g.List(ctx, catalog.Filter{}, catalog.Page{})
		assert.ErrorIs(t, err, catalog.ErrUnresolvedTenant)
		_, err = g.Count(ctx, catalog.Filter{})
		assert.ErrorIs(t, err, catalog.ErrUnresolvedTenant)
		assert.ErrorIs(t, g.Delete(ctx, uuid.New()), catalog.ErrUnresolvedTenant)

		// Nothing leaked into any tenant.
		owner := catalog.NewGateway(resolved("company-a"), b)
		_, err = owner.GetBySKU(ctx, "SKU-1")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})

	t.Run("sku is unique per tenant", func(t *testing.T) {
		b := newBackend(t)
		ga := catalog.NewGateway(resolved("company-a"), b)
		gc := catalog.NewGateway(resolved("company-b"), b)

		_, err := ga.Add(ctx, product("SKU-1"))
		require.NoError(t, err)
		_, err = gc.Add(ctx, product("SKU-1"))
		require.NoError(t, err)

		_, err = ga.Add(ctx, product("SKU-1"))
		assert.ErrorIs(t, err, catalog.ErrDuplicateKey)

		n, err := ga.Count(ctx, catalog.Filter{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("update and delete of another tenant's product report not found", func(t *testing.T) {
		b := newBackend(t)
		ga := catalog.NewGateway(resolved("company-a"), b)
		gc := catalog.NewGateway(resolved("company-b"), b)

		created, err := ga.Add(ctx, product("SKU-1"))
		require.NoError(t, err)

		hijack := created
		hijack.Name = "stolen"
		_, err = gc.Update(ctx, hijack)
		assert.ErrorIs(t, err, catalog.ErrNotFound)
		assert.ErrorIs(t, gc.Delete(ctx, created.ID), catalog.ErrNotFound)

		got, err := ga.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Product SKU-1", got.Name)
	})

	t.Run("writes are visible to the next read", func(t *testing.T) {
		b := newBackend(t)
		g := catalog.NewGateway(resolved("company-a"), b)

		created, err := g.Add(ctx, product("SKU-1"))
		require.NoError(t, err)

		created.Name = "Renamed"
		created.Price = 999
		updated, err := g.Update(ctx, created)
		require.NoError(t, err)
		assert.WithinDuration(t, created.CreatedAt, updated.CreatedAt, time.Millisecond)

		got, err := g.GetBySKU(ctx, "SKU-1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.EqualValues(t, 999, got.Price)

		require.NoError(t, g.Delete(ctx, created.ID))
		_, err = g.Get(ctx, created.ID)
		assert.ErrorIs(t, err, catalog.ErrNotFound)
		assert.ErrorIs(t, g.Delete(ctx, created.ID), catalog.ErrNotFound)
	})

	t.Run("update onto an existing sku is a duplicate", func(t *testing.T) {
		b := newBackend(t)
		g := catalog.NewGateway(resolved("company-a"), b)

		_, err := g.Add(ctx, product("SKU-1"))
		require.NoError(t, err)
		second, err := g.Add(ctx, product("SKU-2"))
		require.NoError(t, err)

		second.SKU = "SKU-1"
		_, err = g.Update(ctx, second)
		assert.ErrorIs(t, err, catalog.ErrDuplicateKey)
	})

	t.Run("filters narrow within the tenant", func(t *testing.T) {
		b := newBackend(t)
		g := catalog.NewGateway(resolved("company-a"), b)
		other := catalog.NewGateway(resolved("company-b"), b)

		mug := product("MUG-1")
		mug.Name = "Blue Mug"
		plate := product("PLATE-1")
		plate.Name = "Dinner Plate"
		plate.Category = "plates"
		retired := product("MUG-2")
		retired.Name = "Old Mug"
		retired.Active = false
		for _, p := range []*catalog.Product{mug, plate, retired} {
			_, err := g.Add(ctx, p)
			require.NoError(t, err)
		}
		_, err := other.Add(ctx, product("MUG-9"))
		require.NoError(t, err)

		active := true
		list, err := g.List(ctx, catalog.Filter{Category: "mugs", Active: &active}, catalog.Page{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "MUG-1", list[0].SKU)

		n, err := g.Count(ctx, catalog.Filter{Search: "mug"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		n, err = g.Count(ctx, catalog.Filter{Search: "%"})
		require.NoError(t, err)
		assert.Zero(t, n)

		page, err := g.List(ctx, catalog.Filter{}, catalog.Page{Offset: 1, Limit: 1})
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})

	t.Run("invalid products are rejected", func(t *testing.T) {
		b := newBackend(t)
		g := catalog.NewGateway(resolved("company-a"), b)

		bad := product("")
		_, err := g.Add(ctx, bad)
		assert.ErrorIs(t, err, catalog.ErrInvalidProduct)

		bad = product("SKU-1")
		bad.Price = -1
		_, err = g.Add(ctx, bad)
		assert.ErrorIs(t, err, catalog.ErrInvalidProduct)
	})
}
