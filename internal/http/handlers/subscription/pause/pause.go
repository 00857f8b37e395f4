// Package pause реализует HTTP-обработчики самостоятельной заморозки и разморозки подписки.
package pause

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/slot-gate/internal/http/response"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
)

// Service описывает заморозку подписки пользователем.
type Service interface {
	Pause(ctx context.Context, userID string) error
	Unpause(ctx context.Context, userID string) error
}

// Handler обрабатывает POST /pause и POST /unpause.
type Handler struct {
	log     *slog.Logger
	service Service
	resume  bool
}

// New создает обработчик заморозки.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// NewUnpause создает обработчик разморозки.
func NewUnpause(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, resume: true}
}

// ServeHTTP godoc
// @Summary Заморозить или разморозить подписку
// @Description Заморозка сохраняет оставшееся время, разморозка продолжает отсчёт с текущего момента.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} map[string]any "Состояние изменено"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Недопустимое состояние"
// @Router /pause [post]
// @Router /unpause [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.pause"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Bool("resume", h.resume),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var err error
	if h.resume {
		err = h.service.Unpause(r.Context(), userID)
	} else {
		err = h.service.Pause(r.Context(), userID)
	}
	if err != nil {
		log.Error("failed to change pause state", slog.String("user_id", userID), sl.Err(err))
		status, resp := response.ServiceError(err)
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("pause state changed", slog.String("user_id", userID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"paused": !h.resume,
	}))
}
