// Package jwt выпускает и проверяет JWT токены пользователей слот-шлюза.
//
// Токен выдаётся при привязке внешней идентичности и несёт ID пользователя и роль.
package jwt

import "github.com/golang-jwt/jwt/v5"

// CustomClaims описывает пользовательские данные, хранящиеся в JWT.
type CustomClaims struct {
	UserID string `json:"user_id"` // Внешний идентификатор пользователя
	Role   string `json:"role"`    // Роль пользователя
	jwt.RegisteredClaims
}

// IsAdmin сообщает, выдан ли токен администратору.
func (c *CustomClaims) IsAdmin() bool {
	return c.Role == "admin"
}
