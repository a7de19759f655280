package catalog

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend keeps products in process memory, partitioned by tenant.
type MemoryBackend struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*memoryPartition
}

type memoryPartition struct {
	byID  map[uuid.UUID]*Product
	bySKU map[string]uuid.UUID
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tenants: make(map[uuid.UUID]*memoryPartition)}
}

func (b *MemoryBackend) Scoped(tenantID uuid.UUID) Store {
	return &memoryStore{b: b, tenantID: tenantID}
}

// Provision is a no-op; partitions are created on first write.
func (b *MemoryBackend) Provision(context.Context, string) error {
	return nil
}

type memoryStore struct {
	b        *MemoryBackend
	tenantID uuid.UUID
}

// partition must be called with the backend lock held.
func (s *memoryStore) partition(create bool) *memoryPartition {
	part, ok := s.b.tenants[s.tenantID]
	if !ok && create {
		part = &memoryPartition{byID: make(map[uuid.UUID]*Product), bySKU: make(map[string]uuid.UUID)}
		s.b.tenants[s.tenantID] = part
	}
	return part
}

func (s *memoryStore) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()

	part := s.partition(false)
	if part == nil {
		return nil, ErrNotFound
	}
	p, ok := part.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.clone(), nil
}

func (s *memoryStore) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()

	part := s.partition(false)
	if part == nil {
		return nil, ErrNotFound
	}
	id, ok := part.bySKU[sku]
	if !ok {
		return nil, ErrNotFound
	}
	return part.byID[id].clone(), nil
}

func (s *memoryStore) matching(f Filter) []*Product {
	part := s.partition(false)
	if part == nil {
		return nil
	}
	search := strings.ToLower(f.Search)
	var out []*Product
	for _, p := range part.byID {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Active != nil && p.Active != *f.Active {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *memoryStore) List(ctx context.Context, f Filter, p Page) ([]*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = p.normalize()
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()

	all := s.matching(f)
	slices.SortFunc(all, func(a, b *Product) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	out := []*Product{}
	for i := p.Offset; i < len(all) && len(out) < p.Limit; i++ {
		out = append(out, all[i].clone())
	}
	return out, nil
}

func (s *memoryStore) Count(ctx context.Context, f Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	return int64(len(s.matching(f))), nil
}

func (s *memoryStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	}
	return false, err
}

func (s *memoryStore) Insert(ctx context.Context, p *Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.TenantID != s.tenantID {
		return ErrInvalidProduct
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	part := s.partition(true)
	if _, taken := part.bySKU[p.SKU]; taken {
		return ErrDuplicateKey
	}
	if _, taken := part.byID[p.ID]; taken {
		return ErrDuplicateKey
	}
	part.byID[p.ID] = p.clone()
	part.bySKU[p.SKU] = p.ID
	return nil
}

func (s *memoryStore) Update(ctx context.Context, p *Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	part := s.partition(false)
	if part == nil {
		return ErrNotFound
	}
	cur, ok := part.byID[p.ID]
	if !ok {
		return ErrNotFound
	}
	if owner, taken := part.bySKU[p.SKU]; taken && owner != p.ID {
		return ErrDuplicateKey
	}

	p.CreatedAt = cur.CreatedAt
	p.TenantID = s.tenantID
	delete(part.bySKU, cur.SKU)
	part.byID[p.ID] = p.clone()
	part.bySKU[p.SKU] = p.ID
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	part := s.partition(false)
	if part == nil {
		return ErrNotFound
	}
	cur, ok := part.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(part.byID, id)
	delete(part.bySKU, cur.SKU)
	return nil
}
