package tenant

import (
	"log/slog"
	"time"
)

const (
	// DefaultCacheTTL bounds staleness when an invalidation is missed.
	DefaultCacheTTL = 5 * time.Minute
	// DefaultLookupTimeout bounds a shared store read.
	DefaultLookupTimeout = 5 * time.Second
)

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithCache sets the lookup cache. Without one every lookup reads the Store.
func WithCache(c Cache) DirectoryOption {
	return func(d *Directory) {
		d.cache = c
	}
}

// WithCacheTTL sets how long a looked-up tenant stays cached.
func WithCacheTTL(ttl time.Duration) DirectoryOption {
	return func(d *Directory) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithBus propagates invalidations to other processes.
func WithBus(b Bus) DirectoryOption {
	return func(d *Directory) {
		d.bus = b
	}
}

// WithDirectoryLogger sets the directory logger.
func WithDirectoryLogger(l *slog.Logger) DirectoryOption {
	return func(d *Directory) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithLookupTimeout bounds a store read shared by concurrent callers.
func WithLookupTimeout(timeout time.Duration) DirectoryOption {
	return func(d *Directory) {
		if timeout > 0 {
			d.lookupTimeout = timeout
		}
	}
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) DirectoryOption {
	return func(d *Directory) {
		if now != nil {
			d.now = now
		}
	}
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithHeader changes the header carrying an explicit slug.
func WithHeader(name string) ResolverOption {
	return func(r *Resolver) {
		if name != "" {
			r.header = name
		}
	}
}

// WithResolverLogger sets the resolver logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}
