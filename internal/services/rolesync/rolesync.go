// Package services синхронизирует роли тарифов во внешнем сервисе по событиям
// из очередей entitlements.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/slot-gate/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
	"github.com/magabrotheeeer/slot-gate/internal/models"
)

// ErrMalformedEvent — сообщение нельзя разобрать, повтор его не исправит.
var ErrMalformedEvent = fmt.Errorf("malformed entitlement event: %w", rabbitmq.ErrPermanent)

// RoleClient выставляет и снимает роли во внешнем сервисе.
type RoleClient interface {
	SetRole(ctx context.Context, userID string, tier int) error
	ClearRoles(ctx context.Context, userID string) error
}

// RoleSyncService обрабатывает события выдачи и отзыва прав.
// События одного пользователя применяются в порядке поля At,
// событие старше уже применённого отбрасывается.
type RoleSyncService struct {
	client RoleClient
	log    *slog.Logger

	mu      sync.Mutex
	applied map[string]time.Time
}

// NewRoleSyncService создает новый экземпляр RoleSyncService.
func NewRoleSyncService(client RoleClient, log *slog.Logger) *RoleSyncService {
	return &RoleSyncService{
		client:  client,
		log:     log,
		applied: make(map[string]time.Time),
	}
}

// HandleGrant обрабатывает сообщение из очереди entitlements.grant.
func (s *RoleSyncService) HandleGrant(ctx context.Context, body []byte) error {
	const op = "rolesync.HandleGrant"
	event, err := decodeEvent(body)
	if err != nil {
		s.log.Error("failed to unmarshal message body", sl.Op(op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	applied, err := s.applyInOrder(event, func() error {
		return s.client.SetRole(ctx, event.UserID, event.Tier)
	})
	if err != nil {
		s.log.Error("failed to set role", sl.Op(op), slog.String("user_id", event.UserID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if applied {
		s.log.Info("role granted", slog.String("user_id", event.UserID), slog.Int("tier", event.Tier))
	}
	return nil
}

// HandleRevoke обрабатывает сообщение из очереди entitlements.revoke.
func (s *RoleSyncService) HandleRevoke(ctx context.Context, body []byte) error {
	const op = "rolesync.HandleRevoke"
	event, err := decodeEvent(body)
	if err != nil {
		s.log.Error("failed to unmarshal message body", sl.Op(op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	applied, err := s.applyInOrder(event, func() error {
		return s.client.ClearRoles(ctx, event.UserID)
	})
	if err != nil {
		s.log.Error("failed to clear roles", sl.Op(op), slog.String("user_id", event.UserID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if applied {
		s.log.Info("roles revoked", slog.String("user_id", event.UserID))
	}
	return nil
}

// applyInOrder вызывает apply, если событие не старше последнего применённого для пользователя.
// Момент события запоминается только после успешного вызова.
func (s *RoleSyncService) applyInOrder(event models.EntitlementEvent, apply func() error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.applied[event.UserID]; ok && event.At.Before(last) {
		s.log.Warn("stale entitlement event skipped",
			slog.String("user_id", event.UserID),
			slog.String("action", event.Action),
			slog.Time("at", event.At),
			slog.Time("last_applied", last),
		)
		return false, nil
	}
	if err := apply(); err != nil {
		return false, err
	}
	s.applied[event.UserID] = event.At
	return true, nil
}

func decodeEvent(body []byte) (models.EntitlementEvent, error) {
	var event models.EntitlementEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if event.UserID == "" {
		return event, fmt.Errorf("%w: empty user_id", ErrMalformedEvent)
	}
	if event.At.IsZero() {
		return event, fmt.Errorf("%w: empty at", ErrMalformedEvent)
	}
	return event, nil
}
