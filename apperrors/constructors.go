package apperrors

import (
	"errors"

	"chatrelay/infrastructure/carrier"

	"github.com/gofiber/fiber/v2"
)

func NewValidationError(message string) *AppError {
	return New(ErrCodeValidationFailed, message, fiber.StatusBadRequest)
}

// NewMissingFields reports required request fields that were absent.
func NewMissingFields(fields ...string) *AppError {
	msg := "Missing required fields: "
	for i, f := range fields {
		if i > 0 {
			msg += ", "
		}
		msg += f
	}
	return NewValidationError(msg).WithDetails("missing", fields)
}

func NewBadRequest(message string) *AppError {
	if message == "" {
		message = "Bad request"
	}
	return New(ErrCodeInvalidInput, message, fiber.StatusBadRequest)
}

func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An internal error occurred"
	}
	return New(ErrCodeInternal, message, fiber.StatusInternalServerError)
}

func NewForbidden(message string) *AppError {
	return New(ErrCodeForbidden, message, fiber.StatusForbidden)
}

// NewCarrierError maps a carrier gateway failure onto an HTTP-facing error.
// The message may still have been accepted by the carrier; callers must not retry.
func NewCarrierError(operation, to string, err error) *AppError {
	if errors.Is(err, carrier.ErrNotConfigured) {
		return New(ErrCodeServiceUnavail, "Carrier credentials not configured", fiber.StatusServiceUnavailable).
			WithOperation(operation).
			WithContext("subsystem", "carrier").
			WithInternal(err)
	}

	appErr := New(ErrCodeMessageFailed, "Failed to deliver message", fiber.StatusBadGateway).
		WithOperation(operation).
		WithDetails("to", to).
		WithContext("subsystem", "carrier").
		WithInternal(err)

	var cerr *carrier.Error
	if errors.As(err, &cerr) {
		appErr.WithDetails("kind", string(cerr.Kind))
		if cerr.Message != "" {
			appErr.Message = "Failed to deliver message: " + cerr.Message
		}
		if cerr.Kind == carrier.KindInvalidAddress {
			appErr.StatusCode = fiber.StatusBadRequest
		}
	}
	return appErr
}
