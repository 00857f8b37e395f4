package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/magabrotheeeer/slot-gate/internal/lib/metrics"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
	"github.com/magabrotheeeer/slot-gate/internal/models"
)

// AdminUnpause снимает паузу независимо от блокировки.
func (s *SubscriptionService) AdminUnpause(ctx context.Context, userID string) error {
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		u, err := userOf(snap, userID)
		if err != nil {
			return err
		}
		return unpauseUser(u, s.now(), true)
	})
}

// Lock запрещает пользователю самостоятельно снимать паузу.
func (s *SubscriptionService) Lock(ctx context.Context, userID string) error {
	return s.setLock(ctx, userID, true)
}

// Unlock возвращает пользователю возможность снимать паузу.
func (s *SubscriptionService) Unlock(ctx context.Context, userID string) error {
	return s.setLock(ctx, userID, false)
}

func (s *SubscriptionService) setLock(ctx context.Context, userID string, locked bool) error {
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		u, err := userOf(snap, userID)
		if err != nil {
			return err
		}
		return setPauseLock(u, locked)
	})
}

// SetGlobalPause включает или выключает глобальный запрет покупок.
// Личные таймеры при этом не замораживаются.
func (s *SubscriptionService) SetGlobalPause(ctx context.Context, on bool) error {
	err := s.mutate(ctx, func(snap *models.Snapshot) error {
		if snap.GlobalPause == on {
			return errSkipSave
		}
		snap.GlobalPause = on
		return nil
	})
	if err == nil {
		s.log.Info("global pause changed", slog.Bool("on", on))
	}
	return err
}

// MaterializeGlobalPause переводит глобальную паузу в личные паузы с блокировкой
// для всех активных пользователей и возвращает их количество.
func (s *SubscriptionService) MaterializeGlobalPause(ctx context.Context) (int, error) {
	var n int
	err := s.mutate(ctx, func(snap *models.Snapshot) error {
		var err error
		n, err = materializeGlobalPause(snap, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("global pause materialized", slog.Int("users", n))
	return n, nil
}

// WarnResult — итог выдачи предупреждения.
type WarnResult struct {
	Warnings   int  `json:"warnings"`
	AutoBanned bool `json:"auto_banned"`
}

// Warn выдаёт пользователю предупреждение с причиной reason.
func (s *SubscriptionService) Warn(ctx context.Context, userID, reason string) (*WarnResult, error) {
	var res WarnResult
	err := s.mutate(ctx, func(snap *models.Snapshot) error {
		u, err := userOf(snap, userID)
		if err != nil {
			return err
		}
		res.Warnings, res.AutoBanned = warnUser(snap, u, reason, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user warned",
		slog.String("user_id", userID),
		slog.String("reason", reason),
		slog.Int("warnings", res.Warnings),
		slog.Bool("auto_banned", res.AutoBanned),
	)
	return &res, nil
}

// ResetBinding отвязывает устройство от лицензии пользователя.
func (s *SubscriptionService) ResetBinding(ctx context.Context, userID string) error {
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		u, err := userOf(snap, userID)
		if err != nil {
			return err
		}
		if !resetBinding(u, s.now()) {
			return errSkipSave
		}
		return nil
	})
}

// BanDevice добавляет устройство в бан-лист.
func (s *SubscriptionService) BanDevice(ctx context.Context, deviceID string) error {
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		if !snap.Ban(deviceID) {
			return errSkipSave
		}
		return nil
	})
}

// UnbanDevice явно удаляет устройство из бан-листа.
func (s *SubscriptionService) UnbanDevice(ctx context.Context, deviceID string) error {
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		if !snap.Unban(deviceID) {
			return ErrUnknownDevice
		}
		return nil
	})
}

// AddTime начисляет hours часов. tier == 0 означает текущий тариф пользователя.
// Смена тарифа пересчитывает остаток так же, как при покупке; ограничения слотов
// и флаги тарифа для администратора не действуют.
func (s *SubscriptionService) AddTime(ctx context.Context, userID string, hours float64, tier int) (time.Time, error) {
	const op = "subscription.AddTime"
	if !validHours(hours) {
		return time.Time{}, ErrInvalidHours
	}

	var (
		expires   time.Time
		finalTier int
	)
	err := s.mutate(ctx, func(snap *models.Snapshot) error {
		now := s.now()
		u, err := userOf(snap, userID)
		if err != nil {
			return err
		}
		if tier == 0 {
			tier = u.Tier
		}
		newPlan, ok := s.plan(snap, tier)
		if !ok {
			return ErrUnknownPlan
		}

		add := hoursToDuration(hours)
		switch {
		case u.Paused && tier == u.Tier:
			frozen := add
			if u.FrozenRemaining != nil {
				frozen += *u.FrozenRemaining
			}
			u.FrozenRemaining = &frozen
		case u.Paused:
			return ErrPaused
		case tier == u.Tier && IsActive(u, now):
			u.ExpiresAt = u.ExpiresAt.Add(add)
		default:
			oldPlan, _ := s.plan(snap, u.Tier)
			u.ExpiresAt = ConvertAndExtend(u, oldPlan, newPlan, hours, now).NewExpires
			u.Tier = tier
		}
		expires, finalTier = EffectiveExpires(u, now), u.Tier
		return nil
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			return time.Time{}, fmt.Errorf("%s: %w", op, err)
		}
		return time.Time{}, err
	}
	s.log.Info("time added", slog.String("user_id", userID), slog.Float64("hours", hours), slog.Int("tier", finalTier))
	s.grant(ctx, userID, finalTier)
	return expires, nil
}

// RemoveTime списывает hours часов. Если время закончилось, подписка снимается
// и внешние права отзываются.
func (s *SubscriptionService) RemoveTime(ctx context.Context, userID string, hours float64) (time.Time, error) {
	if !validHours(hours) {
		return time.Time{}, ErrInvalidHours
	}

	var (
		expires time.Time
		demoted bool
	)
	err := s.mutate(ctx, func(snap *models.Snapshot) error {
		now := s.now()
		u, err := userOf(snap, userID)
		if err != nil {
			return err
		}
		if u.Tier == 0 {
			return ErrNotActive
		}

		sub := hoursToDuration(hours)
		if u.Paused {
			frozen := time.Duration(0)
			if u.FrozenRemaining != nil {
				frozen = max(*u.FrozenRemaining-sub, 0)
			}
			u.FrozenRemaining = &frozen
			if frozen == 0 {
				clearSubscription(u, now)
			}
		} else {
			u.ExpiresAt = u.ExpiresAt.Add(-sub)
			if !IsActive(u, now) {
				u.Tier = 0
			}
		}
		demoted = u.Tier == 0
		expires = EffectiveExpires(u, now)
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	s.log.Info("time removed", slog.String("user_id", userID), slog.Float64("hours", hours), slog.Bool("demoted", demoted))
	if demoted {
		s.revoke(ctx, userID)
	}
	return expires, nil
}

// RemoveSubscription немедленно снимает подписку пользователя.
func (s *SubscriptionService) RemoveSubscription(ctx context.Context, userID string) error {
	err := s.mutate(ctx, func(snap *models.Snapshot) error {
		u, err := userOf(snap, userID)
		if err != nil {
			return err
		}
		clearSubscription(u, s.now())
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("subscription removed", slog.String("user_id", userID))
	s.revoke(ctx, userID)
	return nil
}

func clearSubscription(u *models.User, now time.Time) {
	u.Tier = 0
	u.ExpiresAt = now
	u.Paused = false
	u.FrozenRemaining = nil
	u.PauseLocked = false
}

// AddBalance изменяет баланс на amount (отрицательное значение списывает).
func (s *SubscriptionService) AddBalance(ctx context.Context, userID string, amount float64) (float64, error) {
	if amount == 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}
	var balance float64
	err := s.mutate(ctx, func(snap *models.Snapshot) error {
		u, err := userOf(snap, userID)
		if err != nil {
			return err
		}
		next := roundCents(u.Balance + amount)
		if next < 0 {
			return &InsufficientBalanceError{Needed: -amount, Have: u.Balance}
		}
		u.Balance = next
		balance = next
		return nil
	})
	return balance, err
}

// SetPlanOverride заменяет определение тарифа целиком.
func (s *SubscriptionService) SetPlanOverride(ctx context.Context, p models.Plan) error {
	if p.Tier <= 0 || p.Name == "" || !(p.PricePerHour > 0) || p.Slots < 0 {
		return ErrInvalidPlan
	}
	err := s.mutate(ctx, func(snap *models.Snapshot) error {
		snap.PlanOverrides[p.Tier] = p
		return nil
	})
	if err == nil {
		s.log.Info("plan override set", slog.Int("tier", p.Tier))
	}
	return err
}

// ClearPlanOverride удаляет переопределение тарифа, возвращая значения по умолчанию.
func (s *SubscriptionService) ClearPlanOverride(ctx context.Context, tier int) error {
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		if _, ok := snap.PlanOverrides[tier]; !ok {
			return ErrUnknownPlan
		}
		delete(snap.PlanOverrides, tier)
		return nil
	})
}

// ExpireLapsed снимает тариф у пользователей, чья подписка истекла в окне
// (now-window, now]. Каждый такой пользователь сначала теряет внешние права,
// затем получает tier = 0; срок окончания сохраняется. Возвращает ID снятых.
func (s *SubscriptionService) ExpireLapsed(ctx context.Context, now time.Time, window time.Duration) ([]string, error) {
	const op = "subscription.ExpireLapsed"
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}

	from := now.Add(-window)
	lapsed := func(u *models.User) bool {
		return u.Tier > 0 && !u.Paused && u.ExpiresAt.After(from) && !u.ExpiresAt.After(now)
	}

	var candidates []string
	for id, u := range s.snap.Users {
		if lapsed(u) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	for _, id := range candidates {
		s.revoke(ctx, id)
	}

	var demoted []string
	err := s.mutateLocked(ctx, func(snap *models.Snapshot) error {
		demoted = demoted[:0]
		for _, id := range candidates {
			u, ok := snap.Users[id]
			if !ok || !lapsed(u) {
				continue
			}
			u.Tier = 0
			demoted = append(demoted, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.Demotions.Add(float64(len(demoted)))
	for _, id := range demoted {
		s.log.Info("subscription lapsed", sl.Op(op), slog.String("user_id", id))
	}
	return demoted, nil
}
