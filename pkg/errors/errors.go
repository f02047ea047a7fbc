package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound          = "NOT_FOUND"
	CodeAccessDenied      = "ACCESS_DENIED"
	CodeNotAvailable      = "NOT_AVAILABLE"
	CodeIncorrectTime     = "INCORRECT_TIME"
	CodeDuplicate         = "DUPLICATE"
	CodeUnsupportedStatus = "UNSUPPORTED_STATUS"
	CodeConflict          = "CONFLICT"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInternal          = "INTERNAL_ERROR"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// NotFound signals that a referenced user, item or booking does not exist.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s with id %s does not exist", resource, id),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

// AccessDenied signals that the caller is not authorized for the requested
// action: wrong owner, booking one's own item, or a non-participant read.
func AccessDenied(message string) *AppError {
	return &AppError{
		Code:       CodeAccessDenied,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NotAvailable signals that an item cannot be booked, either because its
// availability flag is off or because a conflicting booking occupies the slot.
func NotAvailable(message string) *AppError {
	return &AppError{
		Code:       CodeNotAvailable,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// IncorrectTime signals that a requested interval fails temporal validation.
func IncorrectTime(message string) *AppError {
	return &AppError{
		Code:       CodeIncorrectTime,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Duplicate signals an attempt to re-apply an already-applied terminal
// transition, such as approving a booking twice.
func Duplicate(message string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// UnsupportedStatus signals a listing filter outside the recognized set.
func UnsupportedStatus(state string) *AppError {
	return &AppError{
		Code:       CodeUnsupportedStatus,
		Message:    fmt.Sprintf("unknown state: %s", state),
		HTTPStatus: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
