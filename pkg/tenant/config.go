package tenant

import "time"

// DirectoryConfig holds the env-driven settings of the directory and resolver.
type DirectoryConfig struct {
	CacheTTL      time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`          // CacheTTL bounds staleness when an invalidation is missed.
	CacheSize     int           `env:"TENANT_CACHE_SIZE" envDefault:"1000"`       // CacheSize is the in-process cache capacity in tenants.
	L1TTL         time.Duration `env:"TENANT_L1_TTL" envDefault:"30s"`            // L1TTL is the in-process TTL when a redis cache sits behind it.
	LookupTimeout time.Duration `env:"TENANT_LOOKUP_TIMEOUT" envDefault:"5s"`     // LookupTimeout bounds a shared store read.
	Header        string        `env:"TENANT_HEADER" envDefault:"X-Tenant-Slug"`  // Header carries an explicit tenant slug.
	Channel       string        `env:"TENANT_INVALIDATION_CHANNEL" envDefault:""` // Channel is the redis pub/sub channel for invalidations.
}

// DirectoryOptions converts the config into directory options. The cache and
// bus are wired by the caller.
func (c DirectoryConfig) DirectoryOptions() []DirectoryOption {
	return []DirectoryOption{
		WithCacheTTL(c.CacheTTL),
		WithLookupTimeout(c.LookupTimeout),
	}
}

// ResolverOptions converts the config into resolver options.
func (c DirectoryConfig) ResolverOptions() []ResolverOption {
	return []ResolverOption{WithHeader(c.Header)}
}
