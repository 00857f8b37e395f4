package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-gate/internal/http/response"
	"github.com/magabrotheeeer/slot-gate/internal/lib/secret"
)

// LinkSecretHeader — заголовок с общим секретом бота, привязывающего идентичности.
const LinkSecretHeader = "X-Link-Secret"

// LinkSecretMiddleware сверяет заголовок X-Link-Secret с bcrypt-хешем из конфигурации.
func LinkSecretMiddleware(hash string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(LinkSecretHeader)
			if presented == "" || hash == "" {
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("link secret required"))
				return
			}
			if err := secret.Compare(hash, presented); err != nil {
				log.Warn("invalid link secret",
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid link secret"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
