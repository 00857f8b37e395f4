package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-gate/internal/http/response"
)

// BanDevice godoc
// @Summary Заблокировать устройство
// @Tags Admin
// @Produce  json
// @Param device path string true "ID устройства"
// @Success 200 {object} map[string]any "Устройство заблокировано"
// @Router /admin/bans/{device} [post]
func (h *Handler) BanDevice(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.BanDevice")
	device := chi.URLParam(r, "device")
	if err := h.service.BanDevice(r.Context(), device); err != nil {
		writeError(w, r, log, "failed to ban device", err)
		return
	}
	log.Info("device banned", slog.String("device_id", device))
	render.JSON(w, r, response.OKWithData(map[string]any{"device_id": device, "banned": true}))
}

// UnbanDevice godoc
// @Summary Разблокировать устройство
// @Tags Admin
// @Produce  json
// @Param device path string true "ID устройства"
// @Success 200 {object} map[string]any "Устройство разблокировано"
// @Failure 404 {object} response.ErrorResponse "Устройство не заблокировано"
// @Router /admin/bans/{device} [delete]
func (h *Handler) UnbanDevice(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.UnbanDevice")
	device := chi.URLParam(r, "device")
	if err := h.service.UnbanDevice(r.Context(), device); err != nil {
		writeError(w, r, log, "failed to unban device", err)
		return
	}
	log.Info("device unbanned", slog.String("device_id", device))
	render.JSON(w, r, response.OKWithData(map[string]any{"device_id": device, "banned": false}))
}
