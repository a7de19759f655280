package tenant

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// ErrorHandler writes the response for a request that cannot proceed.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type middlewareConfig struct {
	skipPaths    []string
	errorHandler ErrorHandler
	logger       *slog.Logger
}

// MiddlewareOption configures Middleware and RequireTenant.
type MiddlewareOption func(*middlewareConfig)

// WithSkipPaths bypasses resolution for paths with any of the prefixes.
func WithSkipPaths(prefixes ...string) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.skipPaths = append(c.skipPaths, prefixes...)
	}
}

// WithErrorHandler replaces the default error response writer.
func WithErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithMiddlewareLogger sets the logger for lookup failures.
func WithMiddlewareLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func newMiddlewareConfig(opts []MiddlewareOption) *middlewareConfig {
	cfg := &middlewareConfig{
		errorHandler: DefaultErrorHandler,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Middleware resolves the tenant of each request and stores the result,
// resolved or not, in the request context. Unresolved requests continue;
// components that need a tenant reject them. Only directory failures stop
// the request here.
func Middleware(resolver *Resolver, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := newMiddlewareConfig(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			tc, err := resolver.ResolveHTTP(r)
			if err != nil {
				cfg.logger.ErrorContext(r.Context(), "tenant resolution failed", logger.Error(err))
				cfg.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
		})
	}
}

// RequireTenant rejects requests whose tenant was not resolved.
func RequireTenant(opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := newMiddlewareConfig(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !FromContext(r.Context()).IsResolved() {
				cfg.errorHandler(w, r, ErrUnresolvedTenant)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DefaultErrorHandler maps package errors to plain-text responses.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnresolvedTenant):
		http.Error(w, "Tenant is not resolved", http.StatusBadRequest)
	case errors.Is(err, ErrTenantNotFound):
		http.Error(w, "Tenant not found", http.StatusNotFound)
	case errors.Is(err, ErrInactiveTenant):
		http.Error(w, "Tenant is inactive", http.StatusForbidden)
	default:
		http.Error(w, "Tenant directory unavailable", http.StatusServiceUnavailable)
	}
}

// FromRequest returns the Context stored by Middleware for r.
func FromRequest(r *http.Request) Context {
	return FromContext(r.Context())
}
