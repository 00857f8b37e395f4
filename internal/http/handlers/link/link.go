// Package link реализует HTTP-обработчик привязки внешней идентичности к пользователю.
//
// Обработчик вызывается ботом, который знает общий секрет. Для новой идентичности
// создаётся пользователь с лицензионным ключом, в ответе возвращается JWT для
// дальнейших запросов от имени пользователя.
package link

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
	"github.com/magabrotheeeer/slot-gate/internal/models"
)

// Request — входные данные привязки.
type Request struct {
	Identity    string `json:"identity" validate:"required,max=64"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

// Service описывает бизнес-логику привязки.
type Service interface {
	Link(ctx context.Context, identity, displayName string) (*models.User, bool, error)
}

// TokenMaker выпускает JWT для пользователя.
type TokenMaker interface {
	GenerateToken(userID, role string) (string, error)
}

// Handler обрабатывает POST /link.
type Handler struct {
	log      *slog.Logger
	service  Service
	tokens   TokenMaker
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, tokens TokenMaker) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		tokens:   tokens,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Привязать идентичность
// @Description Создает пользователя для новой идентичности или возвращает существующего. Возвращает JWT.
// @Tags Link
// @Accept  json
// @Produce  json
// @Param X-Link-Secret header string true "Общий секрет бота"
// @Param request body Request true "Идентичность"
// @Success 200 {object} map[string]any "Пользователь и токен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверный секрет"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /link [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.link"
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

	user, created, err := h.service.Link(r.Context(), req.Identity, req.DisplayName)
	if err != nil {
		log.Error("link failed", sl.Err(err))
		status, resp := response.ServiceError(err)
		w.WriteHeader(status)
		render.JSON(w, r, resp)
		return
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("identity linked", slog.String("user_id", user.ID), slog.Bool("created", created))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_id":      user.ID,
		"display_name": user.DisplayName,
		"license_key":  user.LicenseKey,
		"role":         user.Role,
		"created":      created,
		"token":        token,
	}))
}
