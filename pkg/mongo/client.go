package mongo

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/tenantkit/pkg/retry"
)

// NewForURI creates a connected client for uri using the pool settings of cfg.
func NewForURI(ctx context.Context, cfg Config, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, ErrEmptyConnectionURL
	}

	opts := options.Client().
		ApplyURI(uri).
		SetRetryWrites(cfg.RetryWrites).
		SetRetryReads(cfg.RetryReads)
	if cfg.ConnectTimeout > 0 {
		opts = opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.MaxPoolSize > 0 {
		opts = opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.MinPoolSize > 0 {
		opts = opts.SetMinPoolSize(cfg.MinPoolSize)
	}
	if cfg.MaxConnIdleTime > 0 {
		opts = opts.SetMaxConnIdleTime(cfg.MaxConnIdleTime)
	}

	client, err := retry.Do(ctx, cfg.Retry, func(ctx context.Context) (*mongo.Client, error) {
		client, err := mongo.Connect(opts)
		if err != nil {
			// Connect only fails on invalid options.
			return nil, retry.Permanent(err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(context.WithoutCancel(ctx))
			return nil, err
		}
		return client, nil
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToConnectToMongo, err)
	}
	return client, nil
}

// DatabaseName returns the database named in the URI path, or fallback.
func DatabaseName(uri, fallback string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return fallback
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return fallback
}
