package tenant

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxSlugLength keeps slugs usable as a DNS label.
const MaxSlugLength = 63

var (
	slugPattern      = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	partitionPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// Strategy is how a tenant's data is isolated from other tenants.
type Strategy string

const (
	// StrategyShared keeps the tenant in the shared store under its own schema.
	StrategyShared Strategy = "shared"
	// StrategyDedicated gives the tenant an exclusive store.
	StrategyDedicated Strategy = "dedicated"
)

// Partition describes where a tenant's data lives.
// Shared partitions carry Key (a schema name); dedicated partitions carry DSN.
type Partition struct {
	Strategy Strategy `json:"strategy"`
	Key      string   `json:"key,omitempty"`
	DSN      string   `json:"dsn,omitempty"`
}

// SharedPartition returns a partition inside the shared store.
func SharedPartition(key string) Partition {
	return Partition{Strategy: StrategyShared, Key: key}
}

// DedicatedPartition returns a partition on an exclusive store.
func DedicatedPartition(dsn string) Partition {
	return Partition{Strategy: StrategyDedicated, DSN: dsn}
}

// Validate checks that the descriptor matches the strategy.
func (p Partition) Validate() error {
	switch p.Strategy {
	case StrategyShared:
		if p.DSN != "" {
			return fmt.Errorf("%w: shared partition must not carry a connection descriptor", ErrInvalidPartition)
		}
		if len(p.Key) == 0 || len(p.Key) > MaxSlugLength || !partitionPattern.MatchString(p.Key) {
			return fmt.Errorf("%w: partition key %q is not a valid schema name", ErrInvalidPartition, p.Key)
		}
		if isReservedSchema(p.Key) {
			return fmt.Errorf("%w: partition key %q is a reserved schema", ErrInvalidPartition, p.Key)
		}
		return nil
	case StrategyDedicated:
		if p.Key != "" {
			return fmt.Errorf("%w: dedicated partition must not carry a partition key", ErrInvalidPartition)
		}
		u, err := url.Parse(p.DSN)
		if p.DSN == "" || err != nil || u.Scheme == "" {
			return fmt.Errorf("%w: connection descriptor must be a URL", ErrInvalidPartition)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidPartition, p.Strategy)
	}
}

// isReservedSchema reports schemas owned by postgres or by the directory.
func isReservedSchema(key string) bool {
	switch key {
	case "public", "information_schema":
		return true
	}
	return strings.HasPrefix(key, "pg_")
}

// Redacted returns a copy with any password in the DSN masked.
func (p Partition) Redacted() Partition {
	if p.DSN == "" {
		return p
	}
	u, err := url.Parse(p.DSN)
	if err != nil {
		p.DSN = "redacted"
		return p
	}
	p.DSN = u.Redacted()
	return p
}

// Tenant is the unit of isolation.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Partition Partition `json:"partition"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the record invariants: non-nil id, valid slug and a
// partition consistent with its strategy.
func (t *Tenant) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidTenant)
	}
	if err := ValidateSlug(t.Slug); err != nil {
		return err
	}
	return t.Partition.Validate()
}

// Clone returns a copy that can be modified without affecting the original.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// ValidateSlug reports whether s is a lowercase DNS-label style slug.
func ValidateSlug(s string) error {
	if !IsValidSlug(s) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, s)
	}
	return nil
}

// IsValidSlug reports whether s can be used as a tenant slug.
func IsValidSlug(s string) bool {
	return len(s) > 0 && len(s) <= MaxSlugLength && slugPattern.MatchString(s)
}

// Store is the durable backing of the Directory. It lives in the shared
// store and is never tenant-scoped.
type Store interface {
	// GetBySlug returns ErrTenantNotFound when no tenant has the slug.
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	// GetByID returns ErrTenantNotFound when no tenant has the id.
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	// Create returns ErrSlugTaken when the slug is in use and
	// ErrPartitionTaken when another tenant has the same partition.
	Create(ctx context.Context, t *Tenant) error
	// Update overwrites the record with the same id. It returns
	// ErrTenantNotFound for an unknown id, ErrSlugTaken on a slug clash and
	// ErrPartitionTaken on a partition clash.
	Update(ctx context.Context, t *Tenant) error
	// List returns every tenant ordered by creation time.
	List(ctx context.Context) ([]*Tenant, error)
}
