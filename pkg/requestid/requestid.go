package requestid

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// Header is the default header carrying the id in both directions.
const Header = "X-Request-ID"

const maxLength = 128

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type contextKey struct{}

// WithContext returns ctx carrying id.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the id stored in ctx, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// LoggerExtractor adds request_id to records logged with a request context.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := FromContext(ctx); id != "" {
			return logger.RequestID(id), true
		}
		return slog.Attr{}, false
	}
}

// Option configures the middleware.
type Option func(*middleware)

// WithHeader changes the header name.
func WithHeader(name string) Option {
	return func(m *middleware) {
		if name != "" {
			m.header = name
		}
	}
}

// WithGenerator replaces the UUID generator.
func WithGenerator(fn func() string) Option {
	return func(m *middleware) {
		if fn != nil {
			m.generate = fn
		}
	}
}

type middleware struct {
	header   string
	generate func() string
}

// Middleware returns chi-compatible middleware attaching a request id.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	m := &middleware{header: Header, generate: uuid.NewString}
	for _, opt := range opts {
		opt(m)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(m.header)
			if !IsValid(id) {
				id = m.generate()
			}
			w.Header().Set(m.header, id)
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
		})
	}
}

// IsValid reports whether a client supplied id can be reused.
func IsValid(id string) bool {
	return id != "" && len(id) <= maxLength && validID.MatchString(id)
}
