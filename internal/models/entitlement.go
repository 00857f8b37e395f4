package models

import "time"

// Действия над внешними правами доступа.
const (
	EntitlementGrant  = "grant"
	EntitlementRevoke = "revoke"
)

// EntitlementEvent — сообщение о выдаче или отзыве роли тарифа.
type EntitlementEvent struct {
	UserID string    `json:"user_id"`
	Tier   int       `json:"tier,omitempty"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}
