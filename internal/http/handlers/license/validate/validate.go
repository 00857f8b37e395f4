// Package validate реализует HTTP-обработчик проверки лицензии клиентским приложением.
//
// Клиент периодически присылает ключ и идентификатор устройства. При первой
// проверке ключ привязывается к устройству, при последующих сверяется с ним.
package validate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/slot-gate/internal/http/response"
	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
	services "github.com/magabrotheeeer/slot-gate/internal/services/subscription"
)

// Request — данные проверки лицензии.
type Request struct {
	LicenseKey  string `json:"license_key" validate:"required"`
	DeviceID    string `json:"device_id" validate:"required,max=256"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

// Rejection — ответ на отклонённую проверку лицензии.
type Rejection struct {
	Valid bool `json:"valid" example:"false"`
	response.ErrorResponse
}

// Service описывает проверку лицензии.
type Service interface {
	ValidateLicense(ctx context.Context, key, deviceID, displayName string) (*services.LicenseInfo, error)
}

// Handler обрабатывает POST /license/validate.
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

// ServeHTTP godoc
// @Summary Проверить лицензию
// @Description Проверяет ключ и устройство, привязывает устройство при первом запуске.
// @Tags License
// @Accept  json
// @Produce  json
// @Param request body Request true "Ключ и устройство"
// @Success 200 {object} response.Response{data=services.LicenseInfo} "Лицензия действительна"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} Rejection "Лицензия недействительна"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Router /license/validate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.license.validate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	info, err := h.service.ValidateLicense(r.Context(), req.LicenseKey, req.DeviceID, req.DisplayName)
	if err != nil {
		status, resp := response.ServiceError(err)
		if status >= http.StatusInternalServerError {
			log.Error("license validation failed", sl.Err(err))
		} else {
			log.Info("license rejected", slog.String("reason", err.Error()))
		}
		w.WriteHeader(status)
		render.JSON(w, r, Rejection{Valid: false, ErrorResponse: resp})
		return
	}

	render.JSON(w, r, response.OKWithData(info))
}
