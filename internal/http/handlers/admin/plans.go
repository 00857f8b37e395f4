package admin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-gate/internal/http/response"
	"github.com/magabrotheeeer/slot-gate/internal/models"
)

func tierParam(w http.ResponseWriter, r *http.Request, log *slog.Logger) (int, bool) {
	tier, err := strconv.Atoi(chi.URLParam(r, "tier"))
	if err != nil || tier <= 0 {
		log.Error("failed to decode tier from url", slog.String("tier", chi.URLParam(r, "tier")))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode tier from url"))
		return 0, false
	}
	return tier, true
}

// SetPlan godoc
// @Summary Переопределить тариф
// @Description Тариф из тела заменяет тариф по умолчанию с тем же номером.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param tier path int true "Номер тарифа"
// @Param request body models.Plan true "Тариф"
// @Success 200 {object} map[string]any "Тариф сохранён"
// @Failure 422 {object} response.ErrorResponse "Недопустимый тариф"
// @Router /admin/plans/{tier} [put]
func (h *Handler) SetPlan(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.SetPlan")
	tier, ok := tierParam(w, r, log)
	if !ok {
		return
	}
	var p models.Plan
	p.Tier = tier
	if !h.decode(w, r, log, &p) {
		return
	}
	p.Tier = tier
	if err := h.service.SetPlanOverride(r.Context(), p); err != nil {
		writeError(w, r, log, "failed to set plan override", err)
		return
	}
	log.Info("plan overridden", slog.Int("tier", tier))
	render.JSON(w, r, response.OKWithData(p))
}

// ClearPlan godoc
// @Summary Вернуть тариф по умолчанию
// @Tags Admin
// @Produce  json
// @Param tier path int true "Номер тарифа"
// @Success 200 {object} map[string]any "Переопределение снято"
// @Router /admin/plans/{tier} [delete]
func (h *Handler) ClearPlan(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.ClearPlan")
	tier, ok := tierParam(w, r, log)
	if !ok {
		return
	}
	if err := h.service.ClearPlanOverride(r.Context(), tier); err != nil {
		writeError(w, r, log, "failed to clear plan override", err)
		return
	}
	log.Info("plan override cleared", slog.Int("tier", tier))
	render.JSON(w, r, response.OKWithData(map[string]any{"tier": tier}))
}
