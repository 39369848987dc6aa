package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes carried in API responses.
const (
	CodeValidation              = "VALIDATION_ERROR"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeForbidden               = "FORBIDDEN"
	CodeNotFound                = "NOT_FOUND"
	CodeConflict                = "CONFLICT"
	CodeInvalidStatusChange     = "INVALID_STATUS_CHANGE"
	CodeBookingConflict         = "BOOKING_CONFLICT"
	CodeSelfBookingNotAllowed   = "SELF_BOOKING_NOT_ALLOWED"
	CodeReviewNotAllowed        = "REVIEW_NOT_ALLOWED"
	CodeUnsupportedPayment      = "UNSUPPORTED_PAYMENT_METHOD"
	CodePaymentNotCompleted     = "PAYMENT_NOT_COMPLETED"
	CodePaymentProcessingFailed = "PAYMENT_PROCESSING_FAILED"
	CodeInvalidWebhookSignature = "INVALID_WEBHOOK_SIGNATURE"
	CodeExternalService         = "EXTERNAL_SERVICE_ERROR"
)

// AppError is an operational, user-facing error with a machine-readable code
// and the HTTP status it maps to. Anything else is treated as an unexpected
// internal error by the response layer.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	// Details optionally carries a resource for UI disambiguation,
	// e.g. the conflicting booking on a date-overlap error.
	Details interface{}
	cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.cause }

// WithDetails attaches a detail payload and returns the error.
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// AsAppError unwraps err into an *AppError if it is one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// NewValidationError creates a 400 validation error.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NewUnauthorizedError creates a 401 authentication error.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// NewForbiddenError creates a 403 authorization error.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// NewNotFoundError creates a 404 error for a missing resource.
func NewNotFoundError(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s %s not found", resource, id),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewConflictError creates a 409 conflict error.
func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

// NewInvalidStateError creates a 403 error for a disallowed status transition.
func NewInvalidStateError(from, to string) *AppError {
	return &AppError{
		Code:       CodeInvalidStatusChange,
		Message:    fmt.Sprintf("cannot transition from %s to %s", from, to),
		HTTPStatus: http.StatusForbidden,
	}
}

// NewBookingConflictError creates a 409 error carrying the conflicting booking.
func NewBookingConflictError(conflicting interface{}) *AppError {
	return &AppError{
		Code:       CodeBookingConflict,
		Message:    "car is already booked for the requested dates",
		HTTPStatus: http.StatusConflict,
		Details:    conflicting,
	}
}

// NewSelfBookingError creates a 400 error for owners booking their own car.
func NewSelfBookingError() *AppError {
	return &AppError{
		Code:       CodeSelfBookingNotAllowed,
		Message:    "owners cannot book their own car",
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewReviewNotAllowedError creates a 403 error for disallowed review writes.
func NewReviewNotAllowedError(message string) *AppError {
	return &AppError{Code: CodeReviewNotAllowed, Message: message, HTTPStatus: http.StatusForbidden}
}

// NewUnsupportedPaymentMethodError creates a 400 error for unknown payment methods.
func NewUnsupportedPaymentMethodError(method string) *AppError {
	return &AppError{
		Code:       CodeUnsupportedPayment,
		Message:    fmt.Sprintf("unsupported payment method: %s", method),
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewPaymentNotCompletedError creates a 400 error for unconfirmed provider payments.
func NewPaymentNotCompletedError(status string) *AppError {
	return &AppError{
		Code:       CodePaymentNotCompleted,
		Message:    fmt.Sprintf("payment has not completed, provider status: %s", status),
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewPaymentProcessingError wraps a payment strategy failure as a 500 error.
func NewPaymentProcessingError(cause error) *AppError {
	return &AppError{
		Code:       CodePaymentProcessingFailed,
		Message:    fmt.Sprintf("payment processing failed: %v", cause),
		HTTPStatus: http.StatusInternalServerError,
		cause:      cause,
	}
}

// NewInvalidWebhookSignatureError creates a 400 error for unverifiable webhooks.
func NewInvalidWebhookSignatureError() *AppError {
	return &AppError{
		Code:       CodeInvalidWebhookSignature,
		Message:    "webhook signature verification failed",
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewExternalServiceError wraps an unexpected provider or storage failure.
func NewExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code:       CodeExternalService,
		Message:    fmt.Sprintf("%s request failed", service),
		HTTPStatus: http.StatusInternalServerError,
		cause:      cause,
	}
}
