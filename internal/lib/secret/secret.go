// Package secret хеширует и сверяет общие секреты (например, секрет привязки
// идентичности) через bcrypt, чтобы в конфигурации не хранить их в открытом виде.
package secret

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hash возвращает bcrypt-хеш секрета.
func Hash(secret string) (string, error) {
	const op = "secret.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare сверяет bcrypt-хеш с предъявленным секретом.
// Возвращает nil, если секрет соответствует хешу.
func Compare(hash, presented string) error {
	const op = "secret.Compare"
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
