// Package entitlement публикует события выдачи и отзыва внешних ролей в RabbitMQ.
// Сами роли выставляет воркер синхронизации, читающий эти очереди.
package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/slot-gate/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/slot-gate/internal/models"
)

// Publisher реализует выдачу и отзыв прав через exchange entitlements.
type Publisher struct {
	ch  rabbitmq.Channel
	now func() time.Time
}

// NewPublisher создаёт Publisher поверх открытого канала.
func NewPublisher(ch rabbitmq.Channel) *Publisher {
	return &Publisher{ch: ch, now: time.Now}
}

// Grant публикует событие выдачи роли тарифа tier.
func (p *Publisher) Grant(_ context.Context, userID string, tier int) error {
	const op = "entitlement.Grant"
	event := models.EntitlementEvent{
		UserID: userID,
		Tier:   tier,
		Action: models.EntitlementGrant,
		At:     p.now(),
	}
	if err := rabbitmq.PublishMessage(p.ch, rabbitmq.EntitlementsExchange, rabbitmq.RoutingKeyGrant, event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Revoke публикует событие снятия всех ролей тарифов.
func (p *Publisher) Revoke(_ context.Context, userID string) error {
	const op = "entitlement.Revoke"
	event := models.EntitlementEvent{
		UserID: userID,
		Action: models.EntitlementRevoke,
		At:     p.now(),
	}
	if err := rabbitmq.PublishMessage(p.ch, rabbitmq.EntitlementsExchange, rabbitmq.RoutingKeyRevoke, event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
