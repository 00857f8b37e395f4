package slotgate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/slot-gate/internal/cache"
	"github.com/magabrotheeeer/slot-gate/internal/config"
	"github.com/magabrotheeeer/slot-gate/internal/entitlement"
	"github.com/magabrotheeeer/slot-gate/internal/lib/jwt"
	"github.com/magabrotheeeer/slot-gate/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
	"github.com/magabrotheeeer/slot-gate/internal/migrations"
	"github.com/magabrotheeeer/slot-gate/internal/plans"
	reconciler "github.com/magabrotheeeer/slot-gate/internal/services/reconciler"
	services "github.com/magabrotheeeer/slot-gate/internal/services/subscription"
	"github.com/magabrotheeeer/slot-gate/internal/storage/postgresql"
)

// App — процесс HTTP API вместе со сверкой истечений.
type App struct {
	server     *http.Server
	logger     *slog.Logger
	db         *postgresql.Storage
	cache      *cache.Cache
	conn       *amqp.Connection
	ch         *amqp.Channel
	reconciler *reconciler.ReconcilerService
}

// New поднимает зависимости и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgresql.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, err
	}
	if err = postgresql.CheckDatabaseReady(db); err != nil {
		db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		db.Close()
		cacheRedis.Close()
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.EntitlementsExchange, rabbitmq.GetEntitlementQueues())
	if err != nil {
		conn.Close()
		db.Close()
		cacheRedis.Close()
		return nil, err
	}

	subscriptionService := services.NewSubscriptionService(
		db,
		entitlement.NewPublisher(ch),
		cacheRedis,
		logger,
		services.WithDefaultPlans(plans.DefaultPlans()),
		services.WithAdmins(cfg.Admins),
		services.WithSlotsCacheTTL(cfg.SlotsCacheTTL),
	)

	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, subscriptionService, tokens, db)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		logger:     logger,
		db:         db,
		cache:      cacheRedis,
		conn:       conn,
		ch:         ch,
		reconciler: reconciler.NewReconcilerService(subscriptionService, cfg.ReconcileInterval, logger),
	}, nil
}

// Run запускает HTTP-сервер и сверку истечений до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	reconcileCtx, stopReconcile := context.WithCancel(ctx)
	defer stopReconcile()
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.reconciler.Run(reconcileCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		runErr = a.server.Shutdown(timeoutCtx)
	}

	stopReconcile()
	wg.Wait()
	a.close()
	return runErr
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
