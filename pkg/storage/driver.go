package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Driver opens pools for one family of connection descriptors.
type Driver interface {
	Open(ctx context.Context, dsn string) (Pool, error)
}

// Pool hands out sessions. Close must wait for sessions still in use.
type Pool interface {
	Acquire(ctx context.Context) (Session, error)
	// DefaultNamespace is used for dedicated partitions, where the whole
	// store belongs to one tenant.
	DefaultNamespace() string
	Close()
}

// Pinger is implemented by pools that can check their store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Session is one checked-out unit of access to a store.
type Session interface {
	Release()
}

// Querier is the statement surface shared by pgx connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SQLSession is a session on a relational store.
type SQLSession interface {
	Session
	Querier() Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DocumentSession is a session on a document store.
type DocumentSession interface {
	Session
	Database(name string) *mongo.Database
}

// scheme returns the lowercased URL scheme of dsn.
func scheme(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "", fmt.Errorf("%w: not a URL", ErrUnsupportedDescriptor)
	}
	return strings.ToLower(u.Scheme), nil
}
