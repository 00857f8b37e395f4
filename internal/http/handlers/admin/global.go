package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-gate/internal/http/response"
)

// GlobalPauseRequest включает или выключает глобальную паузу.
type GlobalPauseRequest struct {
	On *bool `json:"on" validate:"required"`
}

// SetGlobalPause godoc
// @Summary Глобальная пауза
// @Description Пока пауза включена, отсчёт времени остановлен для всех и покупки запрещены.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body GlobalPauseRequest true "Флаг"
// @Success 200 {object} map[string]any "Флаг сохранён"
// @Router /admin/global-pause [put]
func (h *Handler) SetGlobalPause(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.SetGlobalPause")
	var req GlobalPauseRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if err := h.service.SetGlobalPause(r.Context(), *req.On); err != nil {
		writeError(w, r, log, "failed to set global pause", err)
		return
	}
	log.Info("global pause changed", slog.Bool("on", *req.On))
	render.JSON(w, r, response.OKWithData(map[string]any{"global_pause": *req.On}))
}

// MaterializeGlobalPause godoc
// @Summary Закрепить глобальную паузу за пользователями
// @Description Замораживает с закреплением все активные подписки. Требует включённой глобальной паузы.
// @Tags Admin
// @Produce  json
// @Success 200 {object} map[string]any "Число замороженных подписок"
// @Failure 409 {object} response.ErrorResponse "Глобальная пауза выключена"
// @Router /admin/global-pause/materialize [post]
func (h *Handler) MaterializeGlobalPause(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.MaterializeGlobalPause")
	n, err := h.service.MaterializeGlobalPause(r.Context())
	if err != nil {
		writeError(w, r, log, "failed to materialize global pause", err)
		return
	}
	log.Info("global pause materialized", slog.Int("paused", n))
	render.JSON(w, r, response.OKWithData(map[string]any{"paused": n}))
}
