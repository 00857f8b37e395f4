package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/slot-gate/internal/app/rolesync"
	"github.com/magabrotheeeer/slot-gate/internal/config"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting rolesync-worker", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := rolesync.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize worker", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("worker stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("rolesync-worker stopped gracefully")
}
