// Package middlewarectx содержит HTTP middleware для проверки JWT токенов,
// прав администратора, секрета привязки и ограничения частоты запросов.
//
// JWTMiddleware проверяет наличие и валидность JWT токена в заголовке Authorization
// и в случае успеха добавляет в контекст ID пользователя и роль для дальнейшего
// использования в обработчиках.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-gate/internal/http/response"
	"github.com/magabrotheeeer/slot-gate/internal/lib/jwt"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
	"github.com/magabrotheeeer/slot-gate/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID — ключ для ID пользователя в контексте
	UserID Key = "user_id"
	// Role — ключ для роли пользователя в контексте
	Role Key = "role"
)

// TokenParser описывает разбор и проверку JWT токена.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Если токен валиден, добавляет ID пользователя и роль в контекст запроса,
// иначе возвращает ошибку с HTTP статусом 401 Unauthorized.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			ctx := context.WithValue(r.Context(), UserID, claims.UserID)
			ctx = context.WithValue(ctx, Role, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly пропускает только запросы с ролью администратора. Ставится после JWTMiddleware.
func AdminOnly(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(Role).(string)
			if role != models.RoleAdmin {
				log.Warn("admin route denied",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.Any("user_id", r.Context().Value(UserID)),
				)
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFrom возвращает ID пользователя, положенный JWTMiddleware.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserID).(string)
	return id, ok && id != ""
}
