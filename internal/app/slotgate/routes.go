// Package slotgate собирает HTTP API слот-шлюза: хранилище, кэш, брокер,
// сверку истечений и маршруты.
package slotgate

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/slot-gate/internal/config"
	"github.com/magabrotheeeer/slot-gate/internal/http/handlers/admin"
	"github.com/magabrotheeeer/slot-gate/internal/http/handlers/license/validate"
	"github.com/magabrotheeeer/slot-gate/internal/http/handlers/link"
	"github.com/magabrotheeeer/slot-gate/internal/http/handlers/subscription/health"
	"github.com/magabrotheeeer/slot-gate/internal/http/handlers/subscription/pause"
	"github.com/magabrotheeeer/slot-gate/internal/http/handlers/subscription/plans"
	"github.com/magabrotheeeer/slot-gate/internal/http/handlers/subscription/slots"
	"github.com/magabrotheeeer/slot-gate/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/slot-gate/internal/http/handlers/subscription/subscribe"
	"github.com/magabrotheeeer/slot-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/slot-gate/internal/lib/jwt"
	services "github.com/magabrotheeeer/slot-gate/internal/services/subscription"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, svc *services.SubscriptionService, tokens *jwt.MakerImpl, db health.Pinger) {
	// Глобальные middleware
	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		// адрес клиента из заголовков прокси, иначе ключ лимитера подделывается клиентом
		r.Use(middleware.RealIP)
	}
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
	)

	limiter := middlewarectx.NewRateLimiter(cfg.RPS, cfg.Burst)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/slots", slots.New(logger, svc).ServeHTTP)
		r.Get("/plans", plans.New(logger, svc).ServeHTTP)
		r.With(limiter.Middleware(logger)).
			Post("/license/validate", validate.New(logger, svc).ServeHTTP)

		// Привязка идентичности ботом
		r.With(middlewarectx.LinkSecretMiddleware(cfg.LinkSecretHash, logger)).
			Post("/link", link.New(logger, svc, tokens).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(tokens, logger))
			r.Post("/subscribe", subscribe.New(logger, svc).ServeHTTP)
			r.Get("/me", status.New(logger, svc).ServeHTTP)
			r.Post("/pause", pause.New(logger, svc).ServeHTTP)
			r.Post("/unpause", pause.NewUnpause(logger, svc).ServeHTTP)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.AdminOnly(logger))
				h := admin.New(logger, svc)
				r.Post("/users/{id}/lock", h.Lock)
				r.Post("/users/{id}/unlock", h.Unlock)
				r.Post("/users/{id}/unpause", h.Unpause)
				r.Post("/users/{id}/warn", h.Warn)
				r.Post("/users/{id}/reset-binding", h.ResetBinding)
				r.Post("/users/{id}/time", h.AddTime)
				r.Delete("/users/{id}/time", h.RemoveTime)
				r.Delete("/users/{id}/subscription", h.RemoveSubscription)
				r.Post("/users/{id}/balance", h.AddBalance)
				r.Put("/global-pause", h.SetGlobalPause)
				r.Post("/global-pause/materialize", h.MaterializeGlobalPause)
				r.Post("/bans/{device}", h.BanDevice)
				r.Delete("/bans/{device}", h.UnbanDevice)
				r.Put("/plans/{tier}", h.SetPlan)
				r.Delete("/plans/{tier}", h.ClearPlan)
			})
		})
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
