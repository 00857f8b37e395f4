// Package models содержит доменные структуры слот-шлюза: пользователя с лицензией
// и подпиской, тарифный план и общий снимок состояния, который целиком
// читается и записывается во внешнее хранилище.
package models

import "time"

const (
	// RoleUser — обычный пользователь.
	RoleUser = "user"
	// RoleAdmin — администратор, которому доступны admin-only тарифы и ручки управления.
	RoleAdmin = "admin"
)

// Действия в истории привязки устройства.
const (
	BindingActionBind  = "bind"
	BindingActionReset = "reset"
)

// User представляет пользователя, привязанного к внешней идентичности.
//
// FrozenRemaining заполнен только пока подписка на паузе: в этом состоянии
// ExpiresAt не используется, а оставшееся время берётся из FrozenRemaining.
type User struct {
	ID              string         `json:"id"`                         // Внешний идентификатор (например, Discord ID)
	DisplayName     string         `json:"display_name"`               // Отображаемое имя
	Role            string         `json:"role"`                       // admin или user
	LicenseKey      string         `json:"license_key"`                // Уникальный лицензионный ключ
	DeviceID        string         `json:"device_id,omitempty"`        // Привязанный HWID, пустой до первой валидации
	Tier            int            `json:"tier"`                       // 0 означает отсутствие подписки
	ExpiresAt       time.Time      `json:"expires_at"`                 // Дата окончания подписки
	Paused          bool           `json:"paused"`                     // Подписка заморожена
	FrozenRemaining *time.Duration `json:"frozen_remaining,omitempty"` // Остаток времени на момент паузы
	PauseLocked     bool           `json:"pause_locked"`               // Снять паузу может только администратор
	Warnings        int            `json:"warnings"`                   // Количество предупреждений
	WarningLog      []WarningEntry `json:"warning_log,omitempty"`      // Журнал предупреждений
	Balance         float64        `json:"balance"`                    // Баланс в долларах
	BindingHistory  []BindingEvent `json:"binding_history,omitempty"`  // История привязок устройства
	Config          map[string]any `json:"config,omitempty"`           // Персональные настройки инструмента
	CreatedAt       time.Time      `json:"created_at"`
	LastSeenAt      *time.Time     `json:"last_seen_at,omitempty"` // Время последней успешной валидации
}

// WarningEntry — запись журнала предупреждений.
type WarningEntry struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// BindingEvent — запись истории привязки устройства.
type BindingEvent struct {
	DeviceID string    `json:"device_id"`
	Action   string    `json:"action"`
	At       time.Time `json:"at"`
}

// Clone возвращает глубокую копию пользователя.
func (u *User) Clone() *User {
	c := *u
	if u.FrozenRemaining != nil {
		d := *u.FrozenRemaining
		c.FrozenRemaining = &d
	}
	if u.LastSeenAt != nil {
		t := *u.LastSeenAt
		c.LastSeenAt = &t
	}
	c.WarningLog = append([]WarningEntry(nil), u.WarningLog...)
	c.BindingHistory = append([]BindingEvent(nil), u.BindingHistory...)
	if u.Config != nil {
		c.Config = make(map[string]any, len(u.Config))
		for k, v := range u.Config {
			c.Config[k] = v
		}
	}
	return &c
}
