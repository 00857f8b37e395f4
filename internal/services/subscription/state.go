// Package services реализует движок жизненного цикла подписок: допуск по слотам,
// заморозку времени, пересчёт стоимости между тарифами, привязку лицензии к
// устройству с банами по предупреждениям и сверку истёкших подписок.
package services

import (
	"time"

	"github.com/magabrotheeeer/slot-gate/internal/models"
)

// Status — эффективное состояние подписки пользователя.
type Status string

const (
	StatusNone         Status = "none"
	StatusActive       Status = "active"
	StatusExpired      Status = "expired"
	StatusPaused       Status = "paused"
	StatusPausedLocked Status = "paused_locked"
)

// EffectiveState — результат объединения глобальной паузы, личной паузы, блокировки и срока.
type EffectiveState struct {
	Status      Status
	Active      bool
	Expires     time.Time
	Remaining   time.Duration
	Purchasable bool
}

// ResolveEffectiveState вычисляет эффективное состояние подписки.
// На паузе срок берётся из замороженного остатка, сохранённый expires игнорируется.
// Глобальная пауза влияет только на возможность покупки.
func ResolveEffectiveState(globalPause, paused, locked bool, frozen *time.Duration, expires, now time.Time) EffectiveState {
	if paused {
		var remaining time.Duration
		if frozen != nil && *frozen > 0 {
			remaining = *frozen
		}
		status := StatusPaused
		if locked {
			status = StatusPausedLocked
		}
		return EffectiveState{
			Status:    status,
			Active:    remaining > 0,
			Expires:   now.Add(remaining),
			Remaining: remaining,
		}
	}

	st := EffectiveState{
		Status:      StatusExpired,
		Expires:     expires,
		Purchasable: !globalPause,
	}
	if expires.After(now) {
		st.Status = StatusActive
		st.Active = true
		st.Remaining = expires.Sub(now)
	}
	return st
}

// StateOf вычисляет эффективное состояние пользователя. Без тарифа подписка неактивна.
func StateOf(u *models.User, globalPause bool, now time.Time) EffectiveState {
	st := ResolveEffectiveState(globalPause, u.Paused, u.PauseLocked, u.FrozenRemaining, u.ExpiresAt, now)
	if u.Tier == 0 {
		st.Active = false
		st.Remaining = 0
		if !u.Paused {
			st.Status = StatusNone
		}
	}
	return st
}

// IsActive — единственная проверка наличия действующей подписки.
func IsActive(u *models.User, now time.Time) bool {
	return StateOf(u, false, now).Active
}

// EffectiveExpires возвращает момент окончания с учётом паузы.
func EffectiveExpires(u *models.User, now time.Time) time.Time {
	return StateOf(u, false, now).Expires
}
