package services

import (
	"sort"
	"time"

	"github.com/magabrotheeeer/slot-gate/internal/models"
)

// Admission — решение о допуске на тариф.
type Admission struct {
	Admit  bool
	Active int
	Max    int
}

// activeOnTier возвращает активных пользователей тарифа, упорядоченных по
// эффективному сроку окончания, затем по ID.
func activeOnTier(snap *models.Snapshot, tier int, now time.Time) []*models.User {
	var users []*models.User
	for _, u := range snap.Users {
		if u.Tier == tier && IsActive(u, now) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		ei, ej := EffectiveExpires(users[i], now), EffectiveExpires(users[j], now)
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		return users[i].ID < users[j].ID
	})
	return users
}

// CanAdmit решает, помещается ли пользователь userID на тариф plan.
// Сам пользователь в подсчёте не участвует, поэтому продление на том же тарифе не блокируется.
func CanAdmit(snap *models.Snapshot, plan models.Plan, userID string, now time.Time) Admission {
	active := 0
	for _, u := range activeOnTier(snap, plan.Tier, now) {
		if u.ID != userID {
			active++
		}
	}
	return Admission{
		Admit:  active < plan.Slots,
		Active: active,
		Max:    plan.Slots,
	}
}

// NextSlotETA возвращает время до ближайшего освобождения слота на тарифе.
func NextSlotETA(snap *models.Snapshot, tier int, now time.Time) (time.Duration, bool) {
	users := activeOnTier(snap, tier, now)
	if len(users) == 0 {
		return 0, false
	}
	return EffectiveExpires(users[0], now).Sub(now), true
}
