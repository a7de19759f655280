package catalogapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/tenantkit/pkg/catalog"
	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/requestid"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// API serves the catalog for every tenant.
type API struct {
	resolver *tenant.Resolver
	router   catalog.Router
	logger   *slog.Logger
	checks   map[string]httpserver.Check
	timeout  time.Duration
}

// Option configures the API.
type Option func(*API)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithHealthCheck adds a named dependency check to /health.
func WithHealthCheck(name string, check httpserver.Check) Option {
	return func(a *API) {
		a.checks[name] = check
	}
}

// New creates the API on a resolver and a storage router.
func New(resolver *tenant.Resolver, router catalog.Router, opts ...Option) *API {
	a := &API{
		resolver: resolver,
		router:   router,
		logger:   slog.Default(),
		checks:   make(map[string]httpserver.Check),
		timeout:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the complete route tree.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware())

	r.Get("/health", httpserver.Health(a.logger, a.timeout, a.checks))

	r.Route("/api", func(r chi.Router) {
		r.Use(tenant.Middleware(a.resolver,
			tenant.WithErrorHandler(a.writeError),
			tenant.WithMiddlewareLogger(a.logger),
		))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", a.listProducts)
			r.Post("/", a.createProduct)
			r.Get("/sku/{sku}", a.getProductBySKU)
			r.Get("/{id}", a.getProduct)
			r.Put("/{id}", a.updateProduct)
			r.Delete("/{id}", a.deleteProduct)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Error: &errorDetail{Code: "route_not_found", Message: "Route not found"}})
	})
	return r
}
