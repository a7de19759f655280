// Package redis connects to Redis with go-redis/v9.
//
// Connect parses Config.ConnectionURL, pings the server and retries
// transient failures under Config.Retry. Healthcheck returns a closure for
// readiness probes.
//
// Redis is optional for tenantkit services: when REDIS_URL is empty the
// directory runs with its in-process cache only and no cross-process
// invalidation bus.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//	if cfg.Enabled() {
//		client, err := redis.Connect(ctx, cfg)
//		if err != nil {
//			return err
//		}
//		defer client.Close()
//	}
package redis
