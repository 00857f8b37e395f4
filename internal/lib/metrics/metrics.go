// Package metrics объявляет Prometheus-метрики слот-шлюза.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Validations считает проверки лицензий по результату.
	Validations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slotgate",
		Name:      "license_validations_total",
		Help:      "License validations by result.",
	}, []string{"result"})

	// Subscriptions считает попытки подписки по тарифу и результату.
	Subscriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slotgate",
		Name:      "subscriptions_total",
		Help:      "Subscribe attempts by tier and result.",
	}, []string{"tier", "result"})

	// Demotions считает подписки, снятые сверкой истечений.
	Demotions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slotgate",
		Name:      "reconciler_demotions_total",
		Help:      "Lapsed subscriptions demoted by the expiry reconciler.",
	})

	// SnapshotSaveFailures считает неудачные записи снимка (кроме конфликтов версий).
	SnapshotSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slotgate",
		Name:      "snapshot_save_failures_total",
		Help:      "Snapshot saves that failed with a non-conflict error.",
	})

	// ActiveSlots — число занятых слотов по тарифу на момент последнего расчёта.
	ActiveSlots = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "slotgate",
		Name:      "active_slots",
		Help:      "Occupied slots per tier.",
	}, []string{"tier"})
)

// Tier переводит номер тарифа в значение метки.
func Tier(tier int) string {
	return strconv.Itoa(tier)
}
