// Command catalogd serves the multi-tenant product catalog over HTTP.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/tenantkit/internal/app"
	"github.com/dmitrymomot/tenantkit/pkg/catalogapi"
	"github.com/dmitrymomot/tenantkit/pkg/config"
	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

func main() {
	var cfg app.Config
	config.MustLoad(&cfg)

	log := app.NewLogger(cfg.Log)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.ErrorContext(ctx, "catalogd stopped with error", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg app.Config, log *slog.Logger) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	go a.Listen(ctx)

	opts := []catalogapi.Option{catalogapi.WithLogger(log)}
	for name, check := range a.HealthChecks() {
		opts = append(opts, catalogapi.WithHealthCheck(name, check))
	}
	api := catalogapi.New(a.Resolver, a.Router, opts...)

	return httpserver.New(cfg.HTTP, api.Handler(), httpserver.WithLogger(log)).Run(ctx)
}
