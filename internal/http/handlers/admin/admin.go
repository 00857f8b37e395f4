// Package admin реализует HTTP-обработчики административного управления подписками.
//
// Все ручки доступны только после JWTMiddleware и AdminOnly. Идентификатор
// пользователя, устройства или тарифа берётся из параметров маршрута chi,
// ошибки сервиса переводятся в HTTP-статус через response.ServiceError.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/slot-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/slot-gate/internal/http/response"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
	"github.com/magabrotheeeer/slot-gate/internal/models"
	services "github.com/magabrotheeeer/slot-gate/internal/services/subscription"
)

// Service описывает административные операции над подписками.
type Service interface {
	Lock(ctx context.Context, userID string) error
	Unlock(ctx context.Context, userID string) error
	AdminUnpause(ctx context.Context, userID string) error
	Warn(ctx context.Context, userID, reason string) (*services.WarnResult, error)
	ResetBinding(ctx context.Context, userID string) error
	RemoveSubscription(ctx context.Context, userID string) error
	AddTime(ctx context.Context, userID string, hours float64, tier int) (time.Time, error)
	RemoveTime(ctx context.Context, userID string, hours float64) (time.Time, error)
	AddBalance(ctx context.Context, userID string, amount float64) (float64, error)
	SetGlobalPause(ctx context.Context, on bool) error
	MaterializeGlobalPause(ctx context.Context) (int, error)
	BanDevice(ctx context.Context, deviceID string) error
	UnbanDevice(ctx context.Context, deviceID string) error
	SetPlanOverride(ctx context.Context, p models.Plan) error
	ClearPlanOverride(ctx context.Context, tier int) error
}

// Handler объединяет административные ручки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("admin_id", r.Context().Value(middlewarectx.UserID)),
	)
}

// decode читает и валидирует тело запроса. При ошибке ответ уже записан.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) {
	log.Error(msg, sl.Err(err))
	status, resp := response.ServiceError(err)
	w.WriteHeader(status)
	render.JSON(w, r, resp)
}

func userParam(r *http.Request) string {
	return chi.URLParam(r, "id")
}
