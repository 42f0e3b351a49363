package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"cardshare/internal/platform/config"
	"cardshare/internal/platform/httpserver"
	"cardshare/internal/platform/logger"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("cardshare stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("cardshare stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close(log)

	srv := httpserver.New(cfg.Addr, app.router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting cardshare", "addr", cfg.Addr, "store", app.storeKind, "sink", app.sinkKind)
		return httpserver.ListenAndServe(gctx, srv, cfg.Notify.ShutdownTimeout)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// The HTTP server has drained, so no new events can be emitted. Flush
	// what is still queued before the sink's connections are closed.
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Notify.ShutdownTimeout)
	defer cancel()
	if err := app.publisher.Close(drainCtx); err != nil {
		log.Warn("notification queue not fully drained", "pending", app.publisher.Pending(), "error", err)
	}
	return nil
}
