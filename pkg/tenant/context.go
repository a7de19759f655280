package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context is the resolved tenant identity of one request. The zero value is
// unresolved. A Context has no setters: it is resolved by construction or not
// at all, and copies cannot affect each other.
type Context struct {
	id   uuid.UUID
	slug string
}

// Unresolved returns the empty Context.
func Unresolved() Context {
	return Context{}
}

// Resolved returns a Context bound to t. A nil tenant yields an unresolved Context.
func Resolved(t *Tenant) Context {
	if t == nil || t.ID == uuid.Nil || t.Slug == "" {
		return Context{}
	}
	return Context{id: t.ID, slug: t.Slug}
}

// IsResolved reports whether the Context carries a tenant.
func (c Context) IsResolved() bool {
	return c.id != uuid.Nil && c.slug != ""
}

// ID returns the tenant id and whether the Context is resolved.
func (c Context) ID() (uuid.UUID, bool) {
	return c.id, c.IsResolved()
}

// Slug returns the tenant slug and whether the Context is resolved.
func (c Context) Slug() (string, bool) {
	return c.slug, c.IsResolved()
}

func (c Context) String() string {
	if !c.IsResolved() {
		return "tenant(unresolved)"
	}
	return "tenant(" + c.slug + ")"
}

// LogValue implements slog.LogValuer.
func (c Context) LogValue() slog.Value {
	if !c.IsResolved() {
		return slog.StringValue("unresolved")
	}
	return slog.GroupValue(
		slog.String("id", c.id.String()),
		slog.String("slug", c.slug),
	)
}

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithContext stores tc in ctx. Used by Middleware at the HTTP edge.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext returns the Context stored by Middleware, or an unresolved one.
// Handlers call it once and pass the result on explicitly.
func FromContext(ctx context.Context) Context {
	tc, _ := ctx.Value(contextKey{}).(Context)
	return tc
}

// LoggerExtractor returns a logger.ContextExtractor adding the tenant slug and id.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		tc := FromContext(ctx)
		if !tc.IsResolved() {
			return slog.Attr{}, false
		}
		return slog.Any("tenant", tc), true
	}
}
