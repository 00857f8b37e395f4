// Package main Slot Gate API
//
// @title           Slot Gate API
// @version         1.0
// @description     API лицензий и подписок с ограниченным числом слотов на тариф
//
// @host      localhost:8080
// @BasePath  /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/slot-gate/internal/app/slotgate"
	"github.com/magabrotheeeer/slot-gate/internal/config"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	logger.Info("starting slot-gate", slog.String("env", cfg.Env))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := slotgate.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("slot-gate stopped gracefully")
}

func setupLogger(env string) *slog.Logger {
	if env == "prod" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
