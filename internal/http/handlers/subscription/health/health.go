// Package health реализует проверку живости сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/slot-gate/internal/http/response"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
)

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler обрабатывает GET /health.
type Handler struct {
	log *slog.Logger
	db  Pinger
}

// New создает новый Handler.
func New(log *slog.Logger, db Pinger) *Handler {
	return &Handler{
		log: log,
		db:  db,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	if err := h.db.Ping(r.Context()); err != nil {
		h.log.Error("storage is unavailable", slog.String("op", op), sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("storage unavailable"))
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status": "ok",
	}))
}
