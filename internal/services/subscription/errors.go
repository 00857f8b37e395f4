package services

import (
	"errors"
	"fmt"
)

// Ошибки проверки лицензии.
var (
	ErrInvalidKey   = errors.New("invalid license key")
	ErrExpired      = errors.New("subscription expired")
	ErrHWIDMismatch = errors.New("license is bound to another device")
	ErrBanned       = errors.New("banned")
)

// Ошибки ёмкости и баланса.
var (
	ErrSlotsFull           = errors.New("no free slots on this tier")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Ошибки состояния.
var (
	ErrNotPaused      = errors.New("subscription is not paused")
	ErrPaused         = errors.New("subscription is paused")
	ErrNotActive      = errors.New("no active subscription")
	ErrPauseLocked    = errors.New("pause is locked by an administrator")
	ErrPlanDisabled   = errors.New("plan is disabled")
	ErrPlanAdminOnly  = errors.New("plan is available to administrators only")
	ErrGlobalPause    = errors.New("purchases are paused")
	ErrGlobalPauseOff = errors.New("global pause is not enabled")
	ErrInvalidHours   = errors.New("hours must be a positive number")
	ErrInvalidAmount  = errors.New("amount must be a non-zero number")
	ErrInvalidPlan    = errors.New("invalid plan definition")
)

// Ошибки поиска.
var (
	ErrUnknownUser   = errors.New("unknown user")
	ErrUnknownPlan   = errors.New("unknown plan")
	ErrUnknownDevice = errors.New("device is not banned")
)

// SlotsFullError сообщает о заполненном тарифе вместе со счётчиками для отображения.
type SlotsFullError struct {
	Tier   int
	Active int
	Max    int
}

func (e *SlotsFullError) Error() string {
	return fmt.Sprintf("tier %d: %d/%d slots taken", e.Tier, e.Active, e.Max)
}

func (e *SlotsFullError) Unwrap() error { return ErrSlotsFull }

// InsufficientBalanceError сообщает, сколько нужно и сколько есть на балансе.
type InsufficientBalanceError struct {
	Needed float64
	Have   float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: need %.2f, have %.2f", e.Needed, e.Have)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Kind — класс ошибки для отображения на границе операции.
type Kind string

const (
	KindValidation Kind = "validation"
	KindCapacity   Kind = "capacity"
	KindFunds      Kind = "funds"
	KindState      Kind = "state"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

var kinds = []struct {
	kind Kind
	errs []error
}{
	{KindValidation, []error{ErrInvalidKey, ErrExpired, ErrHWIDMismatch, ErrBanned}},
	{KindCapacity, []error{ErrSlotsFull}},
	{KindFunds, []error{ErrInsufficientBalance}},
	{KindState, []error{
		ErrNotPaused, ErrPaused, ErrNotActive, ErrPauseLocked, ErrPlanDisabled, ErrPlanAdminOnly,
		ErrGlobalPause, ErrGlobalPauseOff, ErrInvalidHours, ErrInvalidAmount, ErrInvalidPlan,
	}},
	{KindNotFound, []error{ErrUnknownUser, ErrUnknownPlan, ErrUnknownDevice}},
}

// KindOf классифицирует ошибку. Ошибки вне доменного списка считаются KindInternal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindInternal
}
