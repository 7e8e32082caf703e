// Package errors defines the service error taxonomy and its HTTP mapping.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code identifies an error category on the wire.
type Code string

const (
	CodeValidation       Code = "validation_error"
	CodeUnauthorized     Code = "unauthorized"
	CodeNotFound         Code = "not_found"
	CodeInvalidIndex     Code = "invalid_index"
	CodeUnsupportedMedia Code = "unsupported_media"
	CodeFileTooLarge     Code = "file_too_large"
	CodeNoSubscription   Code = "no_subscription"
	CodeDeliveryFailed   Code = "delivery_failed"
	CodeRateLimited      Code = "rate_limit_exceeded"
	CodeInternal         Code = "internal_error"
)

// ServiceError is an error with a stable code and an HTTP status. Handlers
// reduce anything that is not a ServiceError to a generic 500.
type ServiceError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`

	cause error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.cause }

// WithDetails attaches a key/value pair for diagnostics.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Validation reports malformed or missing input.
func Validation(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(message string) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// NotFound reports that no record exists for the caller. The message never
// distinguishes "absent" from "owned by someone else".
func NotFound(resource string) *ServiceError {
	return &ServiceError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

// InvalidIndex reports a dose slot index outside [0, length).
func InvalidIndex(index, length int) *ServiceError {
	e := &ServiceError{Code: CodeInvalidIndex, Message: "Invalid time index", HTTPStatus: http.StatusBadRequest}
	return e.WithDetails("index", index).WithDetails("length", length)
}

// UnsupportedMedia rejects non-image uploads.
func UnsupportedMedia(contentType string) *ServiceError {
	e := &ServiceError{Code: CodeUnsupportedMedia, Message: "Only image files are allowed", HTTPStatus: http.StatusBadRequest}
	return e.WithDetails("content_type", contentType)
}

// FileTooLarge rejects uploads beyond the configured limit.
func FileTooLarge(maxBytes int64) *ServiceError {
	e := &ServiceError{Code: CodeFileTooLarge, Message: "File exceeds the maximum allowed size", HTTPStatus: http.StatusBadRequest}
	return e.WithDetails("max_bytes", maxBytes)
}

// NoSubscription reports that the caller has no stored push subscription.
func NoSubscription() *ServiceError {
	return &ServiceError{Code: CodeNoSubscription, Message: "No subscription found", HTTPStatus: http.StatusBadRequest}
}

// DeliveryFailed reports a push delivery failure.
func DeliveryFailed(err error) *ServiceError {
	return &ServiceError{Code: CodeDeliveryFailed, Message: "Failed to send notification", HTTPStatus: http.StatusInternalServerError, cause: err}
}

// RateLimitExceeded reports that the caller is sending too many requests.
func RateLimitExceeded(limit int) *ServiceError {
	e := &ServiceError{Code: CodeRateLimited, Message: "Too many requests", HTTPStatus: http.StatusTooManyRequests}
	return e.WithDetails("limit_per_second", limit)
}

// Internal wraps an unexpected backend failure. The cause is logged, never
// serialized.
func Internal(message string, err error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, cause: err}
}

// GetServiceError returns the ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}
