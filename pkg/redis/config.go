package redis

import (
	"time"

	"github.com/dmitrymomot/tenantkit/pkg/retry"
)

type Config struct {
	ConnectionURL  string        `env:"REDIS_URL"`                              // ConnectionURL is the URL of the server, e.g. "redis://:password@localhost:6379/0". Empty disables redis.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"` // ConnectTimeout bounds the whole connect sequence including retries.
	Retry          retry.Policy  `envPrefix:"REDIS_"`                           // Retry bounds connection attempts.
}

// Enabled reports whether a connection URL is configured.
func (c Config) Enabled() bool {
	return c.ConnectionURL != ""
}
