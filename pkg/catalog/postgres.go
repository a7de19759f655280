package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/storage"
)

const productsTable = "products"

var productColumns = []string{
	"id", "tenant_id", "sku", "name", "description", "category",
	"price", "stock_quantity", "active", "created_at", "updated_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresBackend stores products in <schema>.products.
type PostgresBackend struct {
	q     storage.Querier
	table string
}

// NewPostgresBackend creates a backend on q. Table names are qualified with
// schema so the connection's search_path is irrelevant.
func NewPostgresBackend(q storage.Querier, schema string) *PostgresBackend {
	return &PostgresBackend{q: q, table: pgx.Identifier{schema, productsTable}.Sanitize()}
}

func (b *PostgresBackend) Scoped(tenantID uuid.UUID) Store {
	return &postgresStore{q: b.q, table: b.table, tenantID: tenantID}
}

type postgresStore struct {
	q        storage.Querier
	table    string
	tenantID uuid.UUID
}

// scope is the tenant predicate every statement starts from.
func (s *postgresStore) scope() sq.Eq {
	return sq.Eq{"tenant_id": s.tenantID}
}

func (s *postgresStore) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.getOne(ctx, sq.Eq{"id": id})
}

func (s *postgresStore) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	return s.getOne(ctx, sq.Eq{"sku": sku})
}

func (s *postgresStore) getOne(ctx context.Context, pred sq.Eq) (*Product, error) {
	query, args, err := psql.Select(productColumns...).
		From(s.table).
		Where(s.scope()).
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build product query: %w", err)
	}

	p, err := scanProduct(s.q.QueryRow(ctx, query, args...))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *postgresStore) List(ctx context.Context, f Filter, p Page) ([]*Product, error) {
	p = p.normalize()
	query, args, err := s.filtered(psql.Select(productColumns...).From(s.table), f).
		OrderBy("created_at", "id").
		Offset(uint64(p.Offset)).
		Limit(uint64(p.Limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build product query: %w", err)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []*Product{}
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, prod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (s *postgresStore) Count(ctx context.Context, f Filter) (int64, error) {
	query, args, err := s.filtered(psql.Select("COUNT(*)").From(s.table), f).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var n int64
	if err := s.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (s *postgresStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	query, args, err := psql.Select("1").
		Prefix("SELECT EXISTS (").
		From(s.table).
		Where(s.scope()).
		Where(sq.Eq{"id": id}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}
	var ok bool
	if err := s.q.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("check product: %w", err)
	}
	return ok, nil
}

func (s *postgresStore) Insert(ctx context.Context, p *Product) error {
	if p.TenantID != s.tenantID {
		return fmt.Errorf("%w: product tenant does not match store", ErrInvalidProduct)
	}
	query, args, err := psql.Insert(s.table).
		SetMap(map[string]any{
			"id":             p.ID,
			"tenant_id":      s.tenantID,
			"sku":            p.SKU,
			"name":           p.Name,
			"description":    p.Description,
			"category":       p.Category,
			"price":          p.Price,
			"stock_quantity": p.StockQuantity,
			"active":         p.Active,
			"created_at":     p.CreatedAt,
			"updated_at":     p.UpdatedAt,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.q.Exec(ctx, query, args...); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *postgresStore) Update(ctx context.Context, p *Product) error {
	query, args, err := psql.Update(s.table).
		SetMap(map[string]any{
			"sku":            p.SKU,
			"name":           p.Name,
			"description":    p.Description,
			"category":       p.Category,
			"price":          p.Price,
			"stock_quantity": p.StockQuantity,
			"active":         p.Active,
			"updated_at":     p.UpdatedAt,
		}).
		Where(s.scope()).
		Where(sq.Eq{"id": p.ID}).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if err := s.q.QueryRow(ctx, query, args...).Scan(&p.CreatedAt); err != nil {
		switch {
		case pg.IsNotFoundError(err):
			return ErrNotFound
		case pg.IsDuplicateKeyError(err):
			return ErrDuplicateKey
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (s *postgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	query, args, err := psql.Delete(s.table).
		Where(s.scope()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresStore) filtered(b sq.SelectBuilder, f Filter) sq.SelectBuilder {
	b = b.Where(s.scope())
	if f.Category != "" {
		b = b.Where(sq.Eq{"category": f.Category})
	}
	if f.Active != nil {
		b = b.Where(sq.Eq{"active": *f.Active})
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		b = b.Where(sq.Or{
			sq.Expr("name ILIKE ?", pattern),
			sq.Expr("sku ILIKE ?", pattern),
		})
	}
	return b
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Description, &p.Category,
		&p.Price, &p.StockQuantity, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ProvisionPostgres creates <schema>.products and its indexes if missing.
func ProvisionPostgres(ctx context.Context, q storage.Querier, schema string) error {
	table := pgx.Identifier{schema, productsTable}.Sanitize()
	stmts := []string{
		"CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{schema}.Sanitize(),
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			id             UUID NOT NULL,
			tenant_id      UUID NOT NULL,
			sku            TEXT NOT NULL,
			name           TEXT NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			category       TEXT NOT NULL DEFAULT '',
			price          BIGINT NOT NULL CHECK (price >= 0),
			stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
			active         BOOLEAN NOT NULL DEFAULT TRUE,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (tenant_id, id)
		)`,
		"CREATE UNIQUE INDEX IF NOT EXISTS products_tenant_sku_key ON " + table + " (tenant_id, sku)",
		"CREATE INDEX IF NOT EXISTS products_tenant_created_idx ON " + table + " (tenant_id, created_at, id)",
	}
	for _, stmt := range stmts {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return errors.Join(fmt.Errorf("provision catalog in schema %s", schema), err)
		}
	}
	return nil
}
