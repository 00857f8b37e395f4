// Package rolesync собирает воркер, который переносит события прав доступа
// из RabbitMQ во внешний сервис ролей.
package rolesync

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/slot-gate/internal/config"
	"github.com/magabrotheeeer/slot-gate/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
	rolesyncservice "github.com/magabrotheeeer/slot-gate/internal/services/rolesync"
)

// App — процесс воркера синхронизации ролей.
type App struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	service *rolesyncservice.RoleSyncService
	logger  *slog.Logger
}

// New подключается к брокеру и готовит клиента сервиса ролей.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.EntitlementsExchange, rabbitmq.GetEntitlementQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	client := rolesyncservice.NewHTTPRoleClient(cfg.RoleSyncURL, cfg.RoleSyncToken, cfg.RoleSyncTimeout)

	return &App{
		conn:    conn,
		ch:      ch,
		service: rolesyncservice.NewRoleSyncService(client, logger),
		logger:  logger,
	}, nil
}

// Run обрабатывает очереди выдачи и отзыва до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	queues := rabbitmq.GetEntitlementQueues()
	handlers := map[string]func([]byte) error{
		rabbitmq.RoutingKeyGrant: func(body []byte) error {
			return a.service.HandleGrant(ctx, body)
		},
		rabbitmq.RoutingKeyRevoke: func(body []byte) error {
			return a.service.HandleRevoke(ctx, body)
		},
	}

	for _, q := range queues {
		if err := rabbitmq.ConsumerMessage(ctx, a.ch, q.QueueName, a.logger, handlers[q.RoutingKey]); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("role sync worker shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}
