package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sellerhub/stocksync/internal/domain"
)

// Standard error codes
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInsufficientStock  = "INSUFFICIENT_AVAILABILITY"
	CodeOrderLocked        = "ORDER_LOCKED"
	CodeInvalidTransition  = "INVALID_STATE_TRANSITION"
	CodeTokenConsumed      = "TOKEN_ALREADY_CONSUMED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// AppError represents an application error with HTTP status and error code
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap wraps an existing error
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrConflict creates a conflict error
func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// ErrInternal creates an internal error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrBadRequest creates a bad request error
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// MapDomainError maps engine errors to AppErrors for the HTTP layer.
// Ledger/aggregate errors stay synchronous and typed so callers can react;
// only genuinely unexpected errors collapse into 500s.
func MapDomainError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrInsufficientAvailability):
		return NewAppError(CodeInsufficientStock, err.Error(), http.StatusConflict).Wrap(err)
	case errors.Is(err, domain.ErrConcurrentAppendConflict),
		errors.Is(err, domain.ErrLinkAlreadyExists):
		return NewAppError(CodeConflict, err.Error(), http.StatusConflict).Wrap(err)
	case errors.Is(err, domain.ErrTokenAlreadyConsumed):
		return NewAppError(CodeTokenConsumed, err.Error(), http.StatusConflict).Wrap(err)
	case errors.Is(err, domain.ErrOrderLocked):
		return NewAppError(CodeOrderLocked, err.Error(), http.StatusConflict).Wrap(err)
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return NewAppError(CodeInvalidTransition, err.Error(), http.StatusConflict).Wrap(err)
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrAggregateNotFound),
		errors.Is(err, domain.ErrLinkNotFound),
		errors.Is(err, domain.ErrReservationNotFound):
		return NewAppError(CodeNotFound, err.Error(), http.StatusNotFound).Wrap(err)
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidEventReason),
		errors.Is(err, domain.ErrUnknownMarketplace),
		errors.Is(err, domain.ErrOrderHasNoItems):
		return ErrValidation(err.Error()).Wrap(err)
	default:
		return ErrInternal("").Wrap(err)
	}
}
