package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-gate/internal/http/response"
)

// AddTimeRequest — сколько часов и какого тарифа начислить. Tier 0 — текущий тариф.
type AddTimeRequest struct {
	Hours float64 `json:"hours" validate:"required,gt=0"`
	Tier  int     `json:"tier" validate:"gte=0"`
}

// RemoveTimeRequest — сколько часов списать.
type RemoveTimeRequest struct {
	Hours float64 `json:"hours" validate:"required,gt=0"`
}

// BalanceRequest — изменение баланса. Отрицательное значение списывает средства.
type BalanceRequest struct {
	Amount float64 `json:"amount" validate:"required,ne=0"`
}

// AddTime godoc
// @Summary Начислить время
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param id path string true "ID пользователя"
// @Param request body AddTimeRequest true "Часы и тариф"
// @Success 200 {object} map[string]any "Новый срок"
// @Router /admin/users/{id}/time [post]
func (h *Handler) AddTime(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.AddTime")
	var req AddTimeRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	id := userParam(r)
	expires, err := h.service.AddTime(r.Context(), id, req.Hours, req.Tier)
	if err != nil {
		writeError(w, r, log, "failed to add time", err)
		return
	}
	log.Info("time added", slog.String("user_id", id), slog.Float64("hours", req.Hours), slog.Int("tier", req.Tier))
	render.JSON(w, r, response.OKWithData(map[string]any{"user_id": id, "expires_at": expires}))
}

// RemoveTime godoc
// @Summary Списать время
// @Description Если время исчерпано, подписка снимается.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param id path string true "ID пользователя"
// @Param request body RemoveTimeRequest true "Часы"
// @Success 200 {object} map[string]any "Новый срок"
// @Router /admin/users/{id}/time [delete]
func (h *Handler) RemoveTime(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.RemoveTime")
	var req RemoveTimeRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	id := userParam(r)
	expires, err := h.service.RemoveTime(r.Context(), id, req.Hours)
	if err != nil {
		writeError(w, r, log, "failed to remove time", err)
		return
	}
	log.Info("time removed", slog.String("user_id", id), slog.Float64("hours", req.Hours))
	render.JSON(w, r, response.OKWithData(map[string]any{"user_id": id, "expires_at": expires}))
}

// AddBalance godoc
// @Summary Изменить баланс
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param id path string true "ID пользователя"
// @Param request body BalanceRequest true "Сумма"
// @Success 200 {object} map[string]any "Новый баланс"
// @Router /admin/users/{id}/balance [post]
func (h *Handler) AddBalance(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.AddBalance")
	var req BalanceRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	id := userParam(r)
	balance, err := h.service.AddBalance(r.Context(), id, req.Amount)
	if err != nil {
		writeError(w, r, log, "failed to change balance", err)
		return
	}
	log.Info("balance changed", slog.String("user_id", id), slog.Float64("amount", req.Amount))
	render.JSON(w, r, response.OKWithData(map[string]any{"user_id": id, "balance": balance}))
}
