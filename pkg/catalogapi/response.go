package catalogapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/tenantkit/pkg/catalog"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/storage"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// envelope is the body of every JSON response.
type envelope struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *errorDetail   `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorInfo struct {
	status  int
	code    string
	message string
}

var errBadRequest = errors.New("malformed request")

// classify maps the error taxonomy to HTTP.
func classify(err error) errorInfo {
	switch {
	case errors.Is(err, tenant.ErrUnresolvedTenant):
		return errorInfo{http.StatusBadRequest, "tenant_unresolved", "Tenant could not be identified"}
	case errors.Is(err, errBadRequest):
		return errorInfo{http.StatusBadRequest, "bad_request", err.Error()}
	case errors.Is(err, tenant.ErrInactiveTenant):
		return errorInfo{http.StatusForbidden, "tenant_inactive", "Tenant is inactive"}
	case errors.Is(err, tenant.ErrTenantNotFound):
		return errorInfo{http.StatusNotFound, "tenant_not_found", "Tenant not found"}
	case errors.Is(err, catalog.ErrNotFound):
		return errorInfo{http.StatusNotFound, "not_found", "Product not found"}
	case errors.Is(err, catalog.ErrDuplicateKey):
		return errorInfo{http.StatusConflict, "duplicate_key", "A product with this SKU already exists"}
	case errors.Is(err, catalog.ErrInvalidProduct):
		return errorInfo{http.StatusUnprocessableEntity, "invalid_product", err.Error()}
	case errors.Is(err, storage.ErrStorageUnavailable):
		return errorInfo{http.StatusServiceUnavailable, "storage_unavailable", "Storage is temporarily unavailable"}
	}
	return errorInfo{http.StatusInternalServerError, "internal", "An error occurred processing your request"}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	info := classify(err)

	level := slog.LevelWarn
	if info.status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	a.logger.LogAttrs(r.Context(), level, "request failed",
		logger.Error(err),
		slog.Int("status_code", info.status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		logger.Component("catalogapi"),
	)

	writeJSON(w, info.status, envelope{Error: &errorDetail{Code: info.code, Message: info.message}})
}
