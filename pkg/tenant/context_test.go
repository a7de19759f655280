package tenant_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

func TestContext(t *testing.T) {
	t.Parallel()

	t.Run("zero value is unresolved", func(t *testing.T) {
		t.Parallel()
		var tc tenant.Context
		assert.False(t, tc.IsResolved())
		id, ok := tc.ID()
		assert.False(t, ok)
		assert.Equal(t, uuid.Nil, id)
		assert.Equal(t, "tenant(unresolved)", tc.String())
	})

	t.Run("resolved carries id and slug", func(t *testing.T) {
		t.Parallel()
		tn := &tenant.Tenant{ID: uuid.New(), Slug: "acme"}
		tc := tenant.Resolved(tn)

		id, ok := tc.ID()
		assert.True(t, ok)
		assert.Equal(t, tn.ID, id)
		slug, ok := tc.Slug()
		assert.True(t, ok)
		assert.Equal(t, "acme", slug)
	})

	t.Run("later tenant changes do not leak into the context", func(t *testing.T) {
		t.Parallel()
		tn := &tenant.Tenant{ID: uuid.New(), Slug: "acme"}
		tc := tenant.Resolved(tn)
		tn.Slug = "other"

		slug, _ := tc.Slug()
		assert.Equal(t, "acme", slug)
	})

	t.Run("nil or incomplete tenant is unresolved", func(t *testing.T) {
		t.Parallel()
		assert.False(t, tenant.Resolved(nil).IsResolved())
		assert.False(t, tenant.Resolved(&tenant.Tenant{Slug: "acme"}).IsResolved())
		assert.False(t, tenant.Resolved(&tenant.Tenant{ID: uuid.New()}).IsResolved())
	})

	t.Run("log value", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "unresolved", tenant.Unresolved().LogValue().String())

		tc := tenant.Resolved(&tenant.Tenant{ID: uuid.New(), Slug: "acme"})
		v := tc.LogValue()
		assert.Equal(t, slog.KindGroup, v.Kind())
		assert.Len(t, v.Group(), 2)
	})
}

func TestWithContext(t *testing.T) {
	t.Parallel()

	assert.False(t, tenant.FromContext(context.Background()).IsResolved())

	tc := tenant.Resolved(&tenant.Tenant{ID: uuid.New(), Slug: "acme"})
	ctx := tenant.WithContext(context.Background(), tc)
	assert.Equal(t, tc, tenant.FromContext(ctx))

	attr, ok := tenant.LoggerExtractor()(ctx)
	assert.True(t, ok)
	assert.Equal(t, "tenant", attr.Key)

	_, ok = tenant.LoggerExtractor()(context.Background())
	assert.False(t, ok)
}
