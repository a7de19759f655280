// Package logger builds *slog.Logger instances for tenantkit services.
//
// New returns a logger configured by functional options: output format
// (json or text), minimum level, static attributes and ContextExtractor
// callbacks. Extractors run on every record and pull request-scoped values,
// such as the request id or the resolved tenant, out of the context passed to
// the *Context logging methods.
//
// NewFromConfig maps a Config loaded from the environment (LOG_LEVEL,
// LOG_FORMAT, APP_ENV) onto the same options.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment("production", "catalogd"),
//		logger.WithContextExtractors(requestid.LoggerExtractor(), tenant.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "product created", logger.TenantID(tc.ID()), logger.Component("catalog"))
//
// Attribute helpers in attr.go keep key names consistent across packages.
package logger
