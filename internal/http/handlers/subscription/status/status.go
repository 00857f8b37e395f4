// Package status реализует HTTP-обработчик просмотра собственной подписки.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/slot-gate/internal/http/response"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
	services "github.com/magabrotheeeer/slot-gate/internal/services/subscription"
)

// Service описывает чтение состояния подписки.
type Service interface {
	Status(ctx context.Context, userID string) (*services.UserStatus, error)
}

// Handler обрабатывает GET /me.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Состояние подписки
// @Description Возвращает тариф, статус, оставшееся время и баланс текущего пользователя.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} map[string]any "Состояние подписки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	st, err := h.service.Status(r.Context(), userID)
	if err != nil {
		log.Error("failed to read status", slog.String("user_id", userID), sl.Err(err))
		status, resp := response.ServiceError(err)
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.OKWithData(st))
}
