// Package plans разрешает тарифные планы: встроенная таблица по умолчанию
// плюс необязательные переопределения администратора. Переопределение
// заменяет план по умолчанию для своего уровня целиком.
package plans

import (
	"sort"

	"github.com/magabrotheeeer/slot-gate/internal/models"
)

func capOf(v float64) *float64 { return &v }

// DefaultPlans возвращает встроенную таблицу тарифов, индексированную по уровню.
func DefaultPlans() map[int]models.Plan {
	return map[int]models.Plan{
		1: {Tier: 1, Name: "Basic", PricePerHour: 1.00, Slots: 20, ValueCap: capOf(100), Enabled: true},
		2: {Tier: 2, Name: "Pro", PricePerHour: 2.00, Slots: 10, ValueCap: capOf(500), Enabled: true},
		3: {Tier: 3, Name: "Elite", PricePerHour: 3.50, Slots: 4, Enabled: true},
		4: {Tier: 4, Name: "Staff", PricePerHour: 1.00, Slots: 2, Enabled: true, AdminOnly: true},
	}
}

// Resolve возвращает действующий план уровня tier: сначала из overrides, затем из defaults.
func Resolve(defaults, overrides map[int]models.Plan, tier int) (models.Plan, bool) {
	if p, ok := overrides[tier]; ok {
		return p, true
	}
	p, ok := defaults[tier]
	return p, ok
}

// All возвращает объединённую таблицу действующих планов, отсортированную по уровню.
func All(defaults, overrides map[int]models.Plan) []models.Plan {
	tiers := make(map[int]struct{}, len(defaults)+len(overrides))
	for t := range defaults {
		tiers[t] = struct{}{}
	}
	for t := range overrides {
		tiers[t] = struct{}{}
	}

	result := make([]models.Plan, 0, len(tiers))
	for t := range tiers {
		p, _ := Resolve(defaults, overrides, t)
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Tier < result[j].Tier })
	return result
}
