// Command tenantctl provisions and administers tenants.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/tenantkit/internal/app"
	"github.com/dmitrymomot/tenantkit/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(func(ctx context.Context) (*admin, func(), error) {
		var cfg app.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		log := app.NewLogger(cfg.Log)
		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return &admin{dir: a.Directory, conns: a.Connections}, a.Close, nil
	})

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
