package tenant

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// DefaultHeader carries an explicit tenant slug.
const DefaultHeader = "X-Tenant-Slug"

// Request is the part of an inbound request the resolver reads.
type Request struct {
	// Slug is the raw value of the tenant header, possibly empty.
	Slug string
	// Host is the request host, with or without a port.
	Host string
}

// RequestFromHTTP extracts a Request using the named header.
func RequestFromHTTP(r *http.Request, header string) Request {
	if header == "" {
		header = DefaultHeader
	}
	return Request{Slug: r.Header.Get(header), Host: r.Host}
}

// Lookuper finds a tenant by slug. *Directory implements it.
type Lookuper interface {
	Lookup(ctx context.Context, slug string) (*Tenant, error)
}

// Resolver maps inbound requests to tenant contexts.
type Resolver struct {
	dir    Lookuper
	header string
	logger *slog.Logger
}

// NewResolver creates a resolver backed by dir.
func NewResolver(dir Lookuper, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		dir:    dir,
		header: DefaultHeader,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Header returns the name of the explicit slug header.
func (r *Resolver) Header() string {
	return r.header
}

// ResolveHTTP resolves an *http.Request using the configured header.
func (r *Resolver) ResolveHTTP(req *http.Request) (Context, error) {
	return r.Resolve(req.Context(), RequestFromHTTP(req, r.header))
}

// Resolve returns the tenant context for req.
//
// An unknown or inactive tenant, or a request with no candidate slug, yields
// an unresolved Context and a nil error. The error is reserved for failures
// reaching the directory.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Context, error) {
	slug, source := CandidateSlug(req)
	if slug == "" {
		r.logger.WarnContext(ctx, "no tenant identified",
			slog.String("host", req.Host),
			slog.String("source", source),
		)
		return Unresolved(), nil
	}

	t, err := r.dir.Lookup(ctx, slug)
	switch {
	case errors.Is(err, ErrTenantNotFound):
		r.logger.WarnContext(ctx, "tenant not found",
			logger.TenantSlug(slug),
			slog.String("source", source),
		)
		return Unresolved(), nil
	case err != nil:
		return Unresolved(), err
	case !t.Active:
		r.logger.WarnContext(ctx, "tenant is inactive",
			logger.TenantID(t.ID),
			logger.TenantSlug(slug),
		)
		return Unresolved(), nil
	}
	return Resolved(t), nil
}

// CandidateSlug picks the slug to look up and reports where it came from.
// A non-empty header always wins, even when its value is not a valid slug,
// so the host is never consulted in that case.
func CandidateSlug(req Request) (slug, source string) {
	if h := strings.ToLower(strings.TrimSpace(req.Slug)); h != "" {
		if !IsValidSlug(h) {
			return "", "header"
		}
		return h, "header"
	}
	if s, ok := SubdomainSlug(req.Host); ok {
		return s, "subdomain"
	}
	return "", "subdomain"
}

// SubdomainSlug returns the first label of host when it has at least three
// labels. IP literals never yield a slug.
func SubdomainSlug(host string) (string, bool) {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || net.ParseIP(strings.Trim(host, "[]")) != nil {
		return "", false
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 || !IsValidSlug(labels[0]) {
		return "", false
	}
	return labels[0], true
}
