// Package subscribe реализует HTTP-обработчик покупки времени тарифа.
//
// Handler принимает тариф и число часов, берёт ID пользователя из контекста
// и списывает стоимость с баланса. Неиспользованное время текущей подписки
// пересчитывается по цене нового тарифа.
package subscribe

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/slot-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/slot-gate/internal/http/response"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
	services "github.com/magabrotheeeer/slot-gate/internal/services/subscription"
)

// Request — параметры покупки.
type Request struct {
	Tier  int     `json:"tier" validate:"required,gt=0"`
	Hours float64 `json:"hours" validate:"required,gt=0"`
}

// Service описывает бизнес-логику покупки.
type Service interface {
	Subscribe(ctx context.Context, userID string, tier int, hours float64) (*services.SubscribeResult, error)
}

// Handler обрабатывает POST /subscribe.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис подписок
	validate *validator.Validate // Валидатор входящих данных
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Купить время тарифа
// @Description Списывает стоимость с баланса и продлевает подписку. Возвращает новый баланс и срок.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body Request true "Тариф и часы"
// @Success 200 {object} map[string]any "Покупка выполнена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 402 {object} response.ErrorResponse "Недостаточно средств"
// @Failure 409 {object} response.ErrorResponse "Нет свободных слотов или недопустимое состояние"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /subscribe [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.subscribe"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.service.Subscribe(r.Context(), userID, req.Tier, req.Hours)
	if err != nil {
		log.Error("failed to subscribe", slog.String("user_id", userID), sl.Err(err))
		status, resp := response.ServiceError(err)
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("subscription purchased",
		slog.String("user_id", userID),
		slog.Int("tier", res.Tier),
		slog.Float64("total_hours", res.TotalHours),
	)
	render.JSON(w, r, response.OKWithData(res))
}
