package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-gate/internal/http/response"
)

// WarnRequest — причина предупреждения.
type WarnRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Lock godoc
// @Summary Запретить разморозку
// @Tags Admin
// @Produce  json
// @Param id path string true "ID пользователя"
// @Success 200 {object} map[string]any "Заморозка закреплена"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 409 {object} response.ErrorResponse "Подписка не заморожена"
// @Router /admin/users/{id}/lock [post]
func (h *Handler) Lock(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.Lock")
	id := userParam(r)
	if err := h.service.Lock(r.Context(), id); err != nil {
		writeError(w, r, log, "failed to lock pause", err)
		return
	}
	log.Info("pause locked", slog.String("user_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"user_id": id, "pause_locked": true}))
}

// Unlock godoc
// @Summary Разрешить разморозку
// @Tags Admin
// @Produce  json
// @Param id path string true "ID пользователя"
// @Success 200 {object} map[string]any "Заморозка откреплена"
// @Router /admin/users/{id}/unlock [post]
func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.Unlock")
	id := userParam(r)
	if err := h.service.Unlock(r.Context(), id); err != nil {
		writeError(w, r, log, "failed to unlock pause", err)
		return
	}
	log.Info("pause unlocked", slog.String("user_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"user_id": id, "pause_locked": false}))
}

// Unpause godoc
// @Summary Разморозить подписку, в том числе закреплённую
// @Tags Admin
// @Produce  json
// @Param id path string true "ID пользователя"
// @Success 200 {object} map[string]any "Подписка разморожена"
// @Router /admin/users/{id}/unpause [post]
func (h *Handler) Unpause(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.Unpause")
	id := userParam(r)
	if err := h.service.AdminUnpause(r.Context(), id); err != nil {
		writeError(w, r, log, "failed to unpause", err)
		return
	}
	log.Info("subscription unpaused", slog.String("user_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"user_id": id, "paused": false}))
}

// Warn godoc
// @Summary Выдать предупреждение
// @Description Второе предупреждение блокирует пользователя и его привязанное устройство.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param id path string true "ID пользователя"
// @Param request body WarnRequest true "Причина"
// @Success 200 {object} map[string]any "Число предупреждений"
// @Router /admin/users/{id}/warn [post]
func (h *Handler) Warn(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.Warn")
	var req WarnRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	id := userParam(r)
	res, err := h.service.Warn(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, r, log, "failed to warn user", err)
		return
	}
	log.Info("user warned", slog.String("user_id", id), slog.Int("warnings", res.Warnings), slog.Bool("auto_banned", res.AutoBanned))
	render.JSON(w, r, response.OKWithData(res))
}

// ResetBinding godoc
// @Summary Сбросить привязку устройства
// @Tags Admin
// @Produce  json
// @Param id path string true "ID пользователя"
// @Success 200 {object} map[string]any "Привязка сброшена"
// @Router /admin/users/{id}/reset-binding [post]
func (h *Handler) ResetBinding(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.ResetBinding")
	id := userParam(r)
	if err := h.service.ResetBinding(r.Context(), id); err != nil {
		writeError(w, r, log, "failed to reset binding", err)
		return
	}
	log.Info("binding reset", slog.String("user_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"user_id": id}))
}

// RemoveSubscription godoc
// @Summary Снять подписку
// @Tags Admin
// @Produce  json
// @Param id path string true "ID пользователя"
// @Success 200 {object} map[string]any "Подписка снята"
// @Router /admin/users/{id}/subscription [delete]
func (h *Handler) RemoveSubscription(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.RemoveSubscription")
	id := userParam(r)
	if err := h.service.RemoveSubscription(r.Context(), id); err != nil {
		writeError(w, r, log, "failed to remove subscription", err)
		return
	}
	log.Info("subscription removed", slog.String("user_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"user_id": id}))
}
