package catalog

import (
	"errors"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

var (
	// ErrUnresolvedTenant is returned by every gateway operation without a resolved tenant.
	ErrUnresolvedTenant = tenant.ErrUnresolvedTenant

	// ErrNotFound is returned when a product is absent or owned by another tenant.
	ErrNotFound = errors.New("product not found")

	// ErrDuplicateKey is returned when the tenant already has a product with the SKU.
	ErrDuplicateKey = errors.New("product sku already exists")

	// ErrInvalidProduct is returned when a product fails validation.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrUnsupportedStore is returned when a storage handle has no catalog backend.
	ErrUnsupportedStore = errors.New("unsupported catalog store")
)
