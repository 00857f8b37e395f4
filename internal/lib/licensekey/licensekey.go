// Package licensekey генерирует лицензионные ключи вида SG-XXXX-XXXX-XXXX-XXXX.
package licensekey

import (
	"strings"

	"github.com/google/uuid"
)

const prefix = "SG"

// Generate возвращает новый ключ на основе случайного UUID.
func Generate() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	parts := []string{prefix}
	for i := 0; i < 16; i += 4 {
		parts = append(parts, raw[i:i+4])
	}
	return strings.Join(parts, "-")
}

// Valid проверяет формат ключа.
func Valid(key string) bool {
	parts := strings.Split(key, "-")
	if len(parts) != 5 || parts[0] != prefix {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 4 {
			return false
		}
		for _, r := range p {
			if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'F') {
				return false
			}
		}
	}
	return true
}
