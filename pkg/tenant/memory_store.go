package tenant

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a Store kept in process memory. Suitable for tests and
// single-process tools.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Tenant
	bySlug map[string]uuid.UUID
	reads  int
}

// NewMemoryStore creates a store seeded with tenants.
func NewMemoryStore(seed ...*Tenant) *MemoryStore {
	s := &MemoryStore{
		byID:   make(map[uuid.UUID]*Tenant),
		bySlug: make(map[string]uuid.UUID),
	}
	for _, t := range seed {
		s.byID[t.ID] = t.Clone()
		s.bySlug[t.Slug] = t.ID
	}
	return s
}

// Reads returns how many Get calls the store has served.
func (s *MemoryStore) Reads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads
}

func (s *MemoryStore) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++

	id, ok := s.bySlug[slug]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++

	t, ok := s.byID[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return t.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, t *Tenant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.bySlug[t.Slug]; taken {
		return ErrSlugTaken
	}
	if s.partitionTaken(t) {
		return ErrPartitionTaken
	}
	s.byID[t.ID] = t.Clone()
	s.bySlug[t.Slug] = t.ID
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, t *Tenant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[t.ID]
	if !ok {
		return ErrTenantNotFound
	}
	if owner, taken := s.bySlug[t.Slug]; taken && owner != t.ID {
		return ErrSlugTaken
	}
	if s.partitionTaken(t) {
		return ErrPartitionTaken
	}
	delete(s.bySlug, cur.Slug)
	s.byID[t.ID] = t.Clone()
	s.bySlug[t.Slug] = t.ID
	return nil
}

// partitionTaken reports whether another tenant has t's partition.
// Callers hold s.mu.
func (s *MemoryStore) partitionTaken(t *Tenant) bool {
	for id, other := range s.byID {
		if id != t.ID && other.Partition == t.Partition {
			return true
		}
	}
	return false
}

func (s *MemoryStore) List(ctx context.Context) ([]*Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Tenant, 0, len(s.byID))
	for _, t := range s.byID {
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(a, b *Tenant) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Slug, b.Slug)
	})
	return out, nil
}
