package storage

import (
	"time"

	"github.com/dmitrymomot/tenantkit/pkg/retry"
)

// Config holds connection routing settings.
type Config struct {
	SharedDSN         string        `env:"STORAGE_SHARED_DSN,required"`                 // SharedDSN is the shared store, which also holds the tenant directory.
	MaxDedicatedPools int           `env:"STORAGE_MAX_DEDICATED_POOLS" envDefault:"64"` // MaxDedicatedPools bounds open per-tenant pools; the least recently used is closed first.
	OpenTimeout       time.Duration `env:"STORAGE_OPEN_TIMEOUT" envDefault:"30s"`       // OpenTimeout bounds a single attempt to open a pool.
	AcquireTimeout    time.Duration `env:"STORAGE_ACQUIRE_TIMEOUT" envDefault:"5s"`     // AcquireTimeout bounds a single attempt to acquire a session.

	Retry retry.Policy `envPrefix:"STORAGE_"` // Retry applies to opening pools and acquiring sessions.
}

const (
	defaultMaxDedicatedPools = 64
	defaultOpenTimeout       = 30 * time.Second
	defaultAcquireTimeout    = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxDedicatedPools <= 0 {
		c.MaxDedicatedPools = defaultMaxDedicatedPools
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = defaultOpenTimeout
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = defaultAcquireTimeout
	}
	return c
}
