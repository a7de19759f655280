package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"

	mongoconn "github.com/dmitrymomot/tenantkit/pkg/mongo"
	"github.com/dmitrymomot/tenantkit/pkg/retry"
)

// DefaultMongoDatabase is used when a descriptor names no database.
const DefaultMongoDatabase = "tenantkit"

// MongoDriver opens MongoDB clients with the pool settings of a base config.
type MongoDriver struct {
	cfg mongoconn.Config
}

// NewMongoDriver creates a driver. Only cfg's pool settings are used.
func NewMongoDriver(cfg mongoconn.Config) *MongoDriver {
	cfg.Retry = retry.Policy{Attempts: 1}
	return &MongoDriver{cfg: cfg}
}

func (d *MongoDriver) Open(ctx context.Context, dsn string) (Pool, error) {
	client, err := mongoconn.NewForURI(ctx, d.cfg, dsn)
	if err != nil {
		return nil, err
	}
	return &mongoPool{
		client:   client,
		database: mongoconn.DatabaseName(dsn, DefaultMongoDatabase),
	}, nil
}

// mongoPool wraps a client; the driver pools connections internally.
type mongoPool struct {
	client   *mongo.Client
	database string
}

func (p *mongoPool) Acquire(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &mongoSession{client: p.client}, nil
}

func (p *mongoPool) DefaultNamespace() string { return p.database }

func (p *mongoPool) Ping(ctx context.Context) error { return mongoconn.Healthcheck(p.client)(ctx) }

func (p *mongoPool) Close() {
	_ = p.client.Disconnect(context.Background())
}

type mongoSession struct {
	client *mongo.Client
}

func (s *mongoSession) Database(name string) *mongo.Database { return s.client.Database(name) }

func (s *mongoSession) Release() {}
