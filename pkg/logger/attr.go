package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

// TenantID records the tenant identifier under the key "tenant_id".
// If id is nil, it returns an empty Attr.
func TenantID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("tenant_id", id)
}

// TenantSlug records the tenant slug under the key "tenant_slug".
func TenantSlug(slug string) slog.Attr {
	return slog.String("tenant_slug", slug)
}

// Strategy records a partition isolation strategy under the key "strategy".
func Strategy(s string) slog.Attr {
	return slog.String("strategy", s)
}

// Attempt records a retry attempt number under the key "attempt".
func Attempt(n uint) slog.Attr {
	return slog.Uint64("attempt", uint64(n))
}

// Delay records the wait before the next attempt under the key "delay".
func Delay(d time.Duration) slog.Attr {
	return slog.Duration("delay", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
