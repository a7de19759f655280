package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product is the tenant-owned catalog entity.
type Product struct {
	ID            uuid.UUID `json:"id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category,omitempty"`
	Price         int64     `json:"price"` // minor currency units
	StockQuantity int       `json:"stock_quantity"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks the fields a caller controls.
func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.SKU) == "":
		return fmt.Errorf("%w: sku is required", ErrInvalidProduct)
	case len(p.SKU) > 64:
		return fmt.Errorf("%w: sku is longer than 64 characters", ErrInvalidProduct)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case p.StockQuantity < 0:
		return fmt.Errorf("%w: stock quantity must not be negative", ErrInvalidProduct)
	}
	return nil
}

func (p *Product) clone() *Product {
	c := *p
	return &c
}

// Filter narrows a listing within the tenant's products.
type Filter struct {
	Category string
	Active   *bool
	// Search matches a case-insensitive substring of the name or SKU.
	Search string
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Page selects a window of a listing ordered by creation time.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Store is product persistence bound to one tenant. Implementations apply
// the tenant predicate to every statement themselves.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	List(ctx context.Context, f Filter, p Page) ([]*Product, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Insert(ctx context.Context, p *Product) error
	// Update overwrites the mutable fields and fills CreatedAt from the stored row.
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Backend hands out tenant-bound stores.
type Backend interface {
	Scoped(tenantID uuid.UUID) Store
}
