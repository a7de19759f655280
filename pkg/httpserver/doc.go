// Package httpserver runs an http.Handler until its context ends and then
// drains in-flight requests within Config.ShutdownTimeout.
//
// Health exposes named dependency checks (shared store, redis) as a single
// readiness endpoint.
package httpserver
