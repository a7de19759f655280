package tenantdb

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/storage"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

var columns = []string{
	"id", "slug", "name", "strategy", "partition_key", "dsn", "active", "created_at", "updated_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Unique indexes guarding partition reuse; see migrations.
const (
	partitionKeyIndex = "tenants_partition_key_key"
	dsnIndex          = "tenants_dsn_key"
)

// conflict maps a unique violation to the directory error it stands for.
// It returns nil for any other error.
func conflict(err error) error {
	name, ok := pg.DuplicateKeyConstraint(err)
	if !ok {
		return nil
	}
	switch name {
	case partitionKeyIndex, dsnIndex:
		return tenant.ErrPartitionTaken
	}
	return tenant.ErrSlugTaken
}

// Sessions hands out directory handles on the shared store.
// *storage.Connections and *storage.Router implement it.
type Sessions interface {
	RouteForDirectory(ctx context.Context) (*storage.Handle, error)
}

// Store is a tenant.Store on the shared postgres store.
type Store struct {
	acquire func(ctx context.Context) (storage.Querier, func(), error)
	table   string
}

var _ tenant.Store = (*Store)(nil)

// New creates a store that leases a directory handle per call.
func New(s Sessions) *Store {
	return &Store{
		table: pgx.Identifier{storage.DirectorySchema, "tenants"}.Sanitize(),
		acquire: func(ctx context.Context) (storage.Querier, func(), error) {
			h, err := s.RouteForDirectory(ctx)
			if err != nil {
				return nil, nil, err
			}
			q, ok := h.SQL()
			if !ok {
				h.Release()
				return nil, nil, ErrUnsupportedStore
			}
			return q, h.Release, nil
		},
	}
}

// NewFromQuerier creates a store on q, usually a *pgxpool.Pool.
func NewFromQuerier(q storage.Querier) *Store {
	return &Store{
		table: pgx.Identifier{storage.DirectorySchema, "tenants"}.Sanitize(),
		acquire: func(context.Context) (storage.Querier, func(), error) {
			return q, func() {}, nil
		},
	}
}

func (s *Store) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return s.getOne(ctx, sq.Eq{"slug": slug})
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return s.getOne(ctx, sq.Eq{"id": id})
}

func (s *Store) getOne(ctx context.Context, pred sq.Eq) (*tenant.Tenant, error) {
	query, args, err := psql.Select(columns...).From(s.table).Where(pred).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tenant query: %w", err)
	}

	q, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	t, err := scanTenant(q.QueryRow(ctx, query, args...))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

func (s *Store) Create(ctx context.Context, t *tenant.Tenant) error {
	query, args, err := psql.Insert(s.table).
		SetMap(map[string]any{
			"id":            t.ID,
			"slug":          t.Slug,
			"name":          t.Name,
			"strategy":      string(t.Partition.Strategy),
			"partition_key": t.Partition.Key,
			"dsn":           t.Partition.DSN,
			"active":        t.Active,
			"created_at":    t.CreatedAt,
			"updated_at":    t.UpdatedAt,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build tenant insert: %w", err)
	}

	q, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, err := q.Exec(ctx, query, args...); err != nil {
		if cerr := conflict(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, t *tenant.Tenant) error {
	query, args, err := psql.Update(s.table).
		SetMap(map[string]any{
			"slug":          t.Slug,
			"name":          t.Name,
			"strategy":      string(t.Partition.Strategy),
			"partition_key": t.Partition.Key,
			"dsn":           t.Partition.DSN,
			"active":        t.Active,
			"updated_at":    t.UpdatedAt,
		}).
		Where(sq.Eq{"id": t.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build tenant update: %w", err)
	}

	q, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		if cerr := conflict(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("update tenant %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]*tenant.Tenant, error) {
	query, args, err := psql.Select(columns...).From(s.table).OrderBy("created_at", "slug").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tenant query: %w", err)
	}

	q, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	out := []*tenant.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var (
		t        tenant.Tenant
		strategy string
	)
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &strategy, &t.Partition.Key, &t.Partition.DSN,
		&t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Partition.Strategy = tenant.Strategy(strategy)
	return &t, nil
}
