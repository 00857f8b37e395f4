package services

import (
	"time"

	"github.com/magabrotheeeer/slot-gate/internal/models"
)

// pauseUser замораживает остаток подписки. Допустимо только из активного состояния.
func pauseUser(u *models.User, now time.Time) error {
	if u.Paused {
		return ErrPaused
	}
	if !IsActive(u, now) {
		return ErrNotActive
	}
	remaining := max(u.ExpiresAt.Sub(now), 0)
	u.FrozenRemaining = &remaining
	u.Paused = true
	u.PauseLocked = false
	return nil
}

// unpauseUser размораживает остаток. Без force блокировка администратора запрещает снятие паузы.
func unpauseUser(u *models.User, now time.Time, force bool) error {
	if !u.Paused {
		return ErrNotPaused
	}
	if u.PauseLocked && !force {
		return ErrPauseLocked
	}
	var remaining time.Duration
	if u.FrozenRemaining != nil {
		remaining = *u.FrozenRemaining
	}
	u.ExpiresAt = now.Add(remaining)
	u.Paused = false
	u.FrozenRemaining = nil
	u.PauseLocked = false
	return nil
}

// setPauseLock включает или снимает блокировку паузы. Имеет смысл только на паузе.
func setPauseLock(u *models.User, locked bool) error {
	if !u.Paused {
		return ErrNotPaused
	}
	u.PauseLocked = locked
	return nil
}

// materializeGlobalPause переводит всех активных пользователей без паузы в состояние
// «пауза с блокировкой», чтобы заморозка пережила снятие глобального флага.
func materializeGlobalPause(snap *models.Snapshot, now time.Time) (int, error) {
	if !snap.GlobalPause {
		return 0, ErrGlobalPauseOff
	}
	n := 0
	for _, u := range snap.Users {
		if u.Paused || !IsActive(u, now) {
			continue
		}
		if err := pauseUser(u, now); err != nil {
			return n, err
		}
		u.PauseLocked = true
		n++
	}
	return n, nil
}
