package models

import (
	"errors"

	"github.com/micro-nova/clockgen-go/internal/si5351"
)

// AppError is a structured application error with HTTP status code.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

// Error constructors.
var (
	ErrNotFound = func(msg string) *AppError {
		return &AppError{Code: "NOT_FOUND", Message: msg, Status: 404}
	}
	ErrBadRequest = func(msg string) *AppError {
		return &AppError{Code: "BAD_REQUEST", Message: msg, Status: 400}
	}
	ErrInternal = func(msg string) *AppError {
		return &AppError{Code: "INTERNAL", Message: msg, Status: 500}
	}
	ErrConflict = func(msg string) *AppError {
		return &AppError{Code: "NOT_INITIALISED", Message: msg, Status: 409}
	}
	ErrTimeout = func(msg string) *AppError {
		return &AppError{Code: "TIMEOUT", Message: msg, Status: 504}
	}
	ErrBadGateway = func(msg string) *AppError {
		return &AppError{Code: "TRANSPORT", Message: msg, Status: 502}
	}
)

// FromError maps a device error onto the AppError for its kind.
// It returns nil for a nil error.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, si5351.ErrInvalidArgument):
		return ErrBadRequest(err.Error())
	case errors.Is(err, si5351.ErrNotInitialised):
		return ErrConflict(err.Error())
	case errors.Is(err, si5351.ErrTimeout):
		return ErrTimeout(err.Error())
	case errors.Is(err, si5351.ErrTransport):
		return ErrBadGateway(err.Error())
	}
	return ErrInternal(err.Error())
}
