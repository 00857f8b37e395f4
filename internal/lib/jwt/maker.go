package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Maker описывает выпуск и разбор токенов.
type Maker interface {
	GenerateToken(userID, role string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl подписывает токены HS256 секретным ключом.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
	issuer    string
}

// NewJWTMaker создаёт MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		issuer:    "slot-gate",
	}
}

// GenerateToken создаёт токен для пользователя userID с ролью role.
func (j *MakerImpl) GenerateToken(userID, role string) (string, error) {
	const op = "jwt.GenerateToken"
	now := time.Now()
	claims := CustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// ParseToken проверяет подпись, срок действия и издателя токена.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("token without user id"))
	}
	return claims, nil
}
