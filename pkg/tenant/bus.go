package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// Invalidation names a tenant whose cached state is stale, with every slug
// it was or is reachable under.
type Invalidation struct {
	ID    uuid.UUID `json:"id"`
	Slugs []string  `json:"slugs,omitempty"`
}

// Bus carries invalidations between processes.
type Bus interface {
	Publish(ctx context.Context, inv Invalidation) error
	// Subscribe delivers invalidations to fn until ctx is done.
	Subscribe(ctx context.Context, fn func(Invalidation)) error
}

// DefaultInvalidationChannel is the Redis pub/sub channel for invalidations.
const DefaultInvalidationChannel = "tenantkit:tenant:invalidations"

// RedisBus is a Bus over Redis pub/sub. Delivery is best effort; cache TTL
// bounds staleness for a process that misses a message.
type RedisBus struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

// NewRedisBus creates a bus on channel (DefaultInvalidationChannel when empty).
func NewRedisBus(client redis.UniversalClient, channel string, log *slog.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisBus{client: client, channel: channel, logger: log}
}

func (b *RedisBus) Publish(ctx context.Context, inv Invalidation) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode invalidation: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, fn func(Invalidation)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before consuming.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var inv Invalidation
			if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
				b.logger.WarnContext(ctx, "dropping malformed invalidation",
					logger.Component("tenant.bus"), logger.Error(err))
				continue
			}
			fn(inv)
		}
	}
}
