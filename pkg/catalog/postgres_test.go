package catalog_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/catalog"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
)

var errNoQuery = errors.New("query not supported by recorder")

type statement struct {
	sql  string
	args []any
}

// recordingQuerier captures statements instead of running them.
type recordingQuerier struct {
	mu      sync.Mutex
	stmts   []statement
	rowErr  error
	execTag pgconn.CommandTag
	execErr error
}

// record stores args as the driver would send them.
func (q *recordingQuerier) record(sql string, args []any) {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a
		if v, ok := a.(driver.Valuer); ok {
			if dv, err := v.Value(); err == nil {
				vals[i] = dv
			}
		}
	}
	args = vals

	q.mu.Lock()
	defer q.mu.Unlock()
	q.stmts = append(q.stmts, statement{sql: sql, args: args})
}

func (q *recordingQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.record(sql, args)
	return q.execTag, q.execErr
}

func (q *recordingQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.record(sql, args)
	return nil, errNoQuery
}

func (q *recordingQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.record(sql, args)
	return errRow{err: q.rowErr}
}

func (q *recordingQuerier) last() statement {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stmts[len(q.stmts)-1]
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func TestPostgresStore_TenantPredicate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tid := uuid.New()
	active := true
	filter := catalog.Filter{Category: "mugs", Active: &active, Search: "50%_off"}

	ops := map[string]func(s catalog.Store) error{
		"get": func(s catalog.Store) error { _, err := s.Get(ctx, uuid.New()); return err },
		"get by sku": func(s catalog.Store) error {
			_, err := s.GetBySKU(ctx, "SKU-1")
			return err
		},
		"list":   func(s catalog.Store) error { _, err := s.List(ctx, filter, catalog.Page{}); return err },
		"count":  func(s catalog.Store) error { _, err := s.Count(ctx, filter); return err },
		"exists": func(s catalog.Store) error { _, err := s.Exists(ctx, uuid.New()); return err },
		"update": func(s catalog.Store) error {
			return s.Update(ctx, &catalog.Product{ID: uuid.New(), TenantID: uuid.New(), SKU: "x", Name: "x"})
		},
		"delete": func(s catalog.Store) error { return s.Delete(ctx, uuid.New()) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			q := &recordingQuerier{rowErr: pgx.ErrNoRows, execTag: pgconn.NewCommandTag("DELETE 0")}
			s := catalog.NewPostgresBackend(q, "tenant_acme").Scoped(tid)

			_ = op(s)

			st := q.last()
			assert.Contains(t, st.sql, `"tenant_acme"."products"`)
			assert.Regexp(t, `WHERE tenant_id = \$\d+( |$)`, st.sql)
			require.NotEmpty(t, st.args)
			assert.Contains(t, st.args, tid.String())
			assert.NotContains(t, st.sql, "search_path")
		})
	}

	t.Run("search and filters are ANDed after the tenant predicate", func(t *testing.T) {
		t.Parallel()
		q := &recordingQuerier{}
		_, _ = catalog.NewPostgresBackend(q, "tenant_acme").Scoped(tid).List(ctx, filter, catalog.Page{Limit: 10_000})

		st := q.last()
		assert.Contains(t, st.sql, "WHERE tenant_id = $1 AND category = $2 AND active = $3 AND (name ILIKE $4 OR sku ILIKE $5)")
		assert.Equal(t, tid.String(), st.args[0])
		assert.Equal(t, `%50\%\_off%`, st.args[3])
		assert.Contains(t, st.sql, fmt.Sprintf("LIMIT %d", catalog.MaxPageLimit))
	})

	t.Run("insert writes the store's tenant", func(t *testing.T) {
		t.Parallel()
		q := &recordingQuerier{execTag: pgconn.NewCommandTag("INSERT 0 1")}
		s := catalog.NewPostgresBackend(q, "tenant_acme").Scoped(tid)

		err := s.Insert(ctx, &catalog.Product{ID: uuid.New(), TenantID: tid, SKU: "SKU-1", Name: "Mug"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(q.last().sql, `INSERT INTO "tenant_acme"."products"`))
		assert.Contains(t, q.last().args, tid.String())

		err = s.Insert(ctx, &catalog.Product{ID: uuid.New(), TenantID: uuid.New(), SKU: "SKU-2", Name: "Mug"})
		assert.ErrorIs(t, err, catalog.ErrInvalidProduct)
	})
}

func TestPostgresStore_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tid := uuid.New()
	dup := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

	t.Run("no rows is not found", func(t *testing.T) {
		t.Parallel()
		s := catalog.NewPostgresBackend(&recordingQuerier{rowErr: pgx.ErrNoRows}, "s").Scoped(tid)
		_, err := s.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, catalog.ErrNotFound)
		err = s.Update(ctx, &catalog.Product{ID: uuid.New(), SKU: "x", Name: "x"})
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})

	t.Run("zero deleted rows is not found", func(t *testing.T) {
		t.Parallel()
		s := catalog.NewPostgresBackend(&recordingQuerier{execTag: pgconn.NewCommandTag("DELETE 0")}, "s").Scoped(tid)
		assert.ErrorIs(t, s.Delete(ctx, uuid.New()), catalog.ErrNotFound)
	})

	t.Run("unique violation is a duplicate key", func(t *testing.T) {
		t.Parallel()
		s := catalog.NewPostgresBackend(&recordingQuerier{execErr: dup, rowErr: dup}, "s").Scoped(tid)
		err := s.Insert(ctx, &catalog.Product{ID: uuid.New(), TenantID: tid, SKU: "x", Name: "x"})
		assert.ErrorIs(t, err, catalog.ErrDuplicateKey)
		err = s.Update(ctx, &catalog.Product{ID: uuid.New(), SKU: "x", Name: "x"})
		assert.ErrorIs(t, err, catalog.ErrDuplicateKey)
	})

	t.Run("other failures are wrapped", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("connection reset")
		s := catalog.NewPostgresBackend(&recordingQuerier{rowErr: boom}, "s").Scoped(tid)
		_, err := s.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, catalog.ErrNotFound)
	})
}

func TestProvisionPostgres(t *testing.T) {
	t.Parallel()

	q := &recordingQuerier{}
	require.NoError(t, catalog.ProvisionPostgres(context.Background(), q, "tenant_acme"))

	require.Len(t, q.stmts, 4)
	assert.Equal(t, `CREATE SCHEMA IF NOT EXISTS "tenant_acme"`, q.stmts[0].sql)
	assert.Contains(t, q.stmts[1].sql, `CREATE TABLE IF NOT EXISTS "tenant_acme"."products"`)
	assert.Contains(t, q.stmts[1].sql, "PRIMARY KEY (tenant_id, id)")
	assert.Contains(t, q.stmts[2].sql, `UNIQUE INDEX IF NOT EXISTS products_tenant_sku_key ON "tenant_acme"."products" (tenant_id, sku)`)
}

func TestGateway_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_CONN_URL")
	if dsn == "" || testing.Short() {
		t.Skip("PG_CONN_URL not set")
	}

	ctx := context.Background()
	pool, err := pg.Connect(ctx, pg.Config{ConnectionString: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	runGatewaySuite(t, func(t *testing.T) catalog.Backend {
		schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		require.NoError(t, catalog.ProvisionPostgres(ctx, pool, schema))
		require.NoError(t, catalog.ProvisionPostgres(ctx, pool, schema), "provisioning is idempotent")
		t.Cleanup(func() {
			_, _ = pool.Exec(context.Background(), "DROP SCHEMA "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
		})
		return catalog.NewPostgresBackend(pool, schema)
	})
}
