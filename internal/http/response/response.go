// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	services "github.com/magabrotheeeer/slot-gate/internal/services/subscription"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Error — текст ошибки (опционально, при неуспехе).
// Поле Data — данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status  string `json:"status" example:"Error"`
	Error   string `json:"error" example:"invalid request body"`
	Kind    string `json:"kind,omitempty" example:"capacity"`
	Details any    `json:"details,omitempty"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ServiceError переводит ошибку сервиса подписок в HTTP-статус и тело ответа.
// Текст внутренних ошибок наружу не отдаётся.
func ServiceError(err error) (int, ErrorResponse) {
	kind := services.KindOf(err)
	if kind == services.KindInternal {
		return http.StatusInternalServerError, Error("internal error")
	}

	resp := ErrorResponse{
		Status: StatusError,
		Error:  err.Error(),
		Kind:   string(kind),
	}

	var full *services.SlotsFullError
	var funds *services.InsufficientBalanceError
	switch {
	case errors.As(err, &full):
		resp.Details = map[string]int{"tier": full.Tier, "active": full.Active, "max": full.Max}
	case errors.As(err, &funds):
		resp.Details = map[string]float64{"needed": funds.Needed, "have": funds.Have}
	}
	return statusOf(kind, err), resp
}

func statusOf(kind services.Kind, err error) int {
	switch kind {
	case services.KindValidation:
		return http.StatusForbidden
	case services.KindCapacity:
		return http.StatusConflict
	case services.KindFunds:
		return http.StatusPaymentRequired
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindState:
		if errors.Is(err, services.ErrInvalidHours) ||
			errors.Is(err, services.ErrInvalidAmount) ||
			errors.Is(err, services.ErrInvalidPlan) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "gt", "gte", "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param()))
		case "lte", "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s", err.Field(), err.Param()))
		case "ne":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must not be %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}
