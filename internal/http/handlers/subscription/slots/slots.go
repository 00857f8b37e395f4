// Package slots реализует HTTP-обработчик публичной загрузки тарифов.
package slots

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-gate/internal/http/response"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
	services "github.com/magabrotheeeer/slot-gate/internal/services/subscription"
)

// Service описывает чтение загрузки слотов.
type Service interface {
	SlotsStatus(ctx context.Context) ([]services.SlotStatus, error)
}

// Handler обрабатывает GET /slots.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Загрузка тарифов
// @Description Для каждого включённого тарифа возвращает занятые и всего слоты и время до освобождения ближайшего.
// @Tags Slots
// @Produce  json
// @Success 200 {object} map[string]any "Загрузка тарифов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /slots [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.slots"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	res, err := h.service.SlotsStatus(r.Context())
	if err != nil {
		log.Error("failed to read slots status", sl.Err(err))
		status, resp := response.ServiceError(err)
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"tiers": res,
	}))
}
