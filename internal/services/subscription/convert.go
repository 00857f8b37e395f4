package services

import (
	"time"

	"github.com/magabrotheeeer/slot-gate/internal/models"
)

// Conversion — результат пересчёта остатка подписки на новый тариф.
type Conversion struct {
	ConvertedHours float64
	TotalHours     float64
	NewExpires     time.Time
}

// ConvertAndExtend переводит неиспользованное время в деньги по цене старого
// тарифа и обратно в часы по цене нового, затем добавляет купленные часы.
// Формула одинакова для повышения и понижения тарифа.
func ConvertAndExtend(u *models.User, oldPlan, newPlan models.Plan, purchasedHours float64, now time.Time) Conversion {
	var converted float64
	if IsActive(u, now) && newPlan.PricePerHour > 0 {
		remainingHours := StateOf(u, false, now).Remaining.Hours()
		remainingValue := remainingHours * oldPlan.PricePerHour
		converted = remainingValue / newPlan.PricePerHour
	}

	total := converted + purchasedHours
	return Conversion{
		ConvertedHours: converted,
		TotalHours:     total,
		NewExpires:     now.Add(hoursToDuration(total)),
	}
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
