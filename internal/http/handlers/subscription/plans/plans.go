// Package plans реализует HTTP-обработчик списка тарифов.
package plans

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-gate/internal/http/response"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
	"github.com/magabrotheeeer/slot-gate/internal/models"
)

// Service описывает чтение таблицы тарифов.
type Service interface {
	ListPlans(ctx context.Context) ([]models.Plan, error)
}

// Handler обрабатывает GET /plans.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список тарифов
// @Description Возвращает действующую таблицу тарифов с учётом переопределений администратора.
// @Tags Plans
// @Produce  json
// @Success 200 {object} map[string]any "Тарифы"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.plans"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	res, err := h.service.ListPlans(r.Context())
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		status, resp := response.ServiceError(err)
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"plans": res,
	}))
}
