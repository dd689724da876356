package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound          = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden         = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized      = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation        = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrNotAcceptable     = New("NOT_ACCEPTABLE", http.StatusNotAcceptable, "requested content type is not available")
	ErrInternal          = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrUpstream          = New("UPSTREAM_ERROR", http.StatusInternalServerError, "analytics query failed")
	ErrUpstreamTimeout   = New("UPSTREAM_TIMEOUT", http.StatusGatewayTimeout, "analytics query timed out")
	ErrCacheMiss         = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrInvalidFacetQuery = New("INVALID_FACET_QUERY", http.StatusBadRequest, "invalid facet query")
	ErrInvalidAccessions = New("INVALID_ACCESSIONS", http.StatusBadRequest, "invalid study accessions")
	ErrInvalidFileTypes  = New("INVALID_FILE_TYPES", http.StatusBadRequest, "invalid file types")
	ErrAuthCodeRequired  = New("AUTH_CODE_REQUIRED", http.StatusForbidden, "auth code is required")
	ErrInvalidAuthCode   = New("INVALID_AUTH_CODE", http.StatusForbidden, "invalid or expired auth code")
	ErrQuotaExceeded     = New("QUOTA_EXCEEDED", http.StatusForbidden, "daily download quota exceeded")
	ErrRequestCanceled   = New("REQUEST_CANCELED", http.StatusServiceUnavailable, "request canceled")
)

// Is reports whether err is, or wraps, a copy of target sharing its code.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == target.Code
	}
	return false
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrUpstreamTimeout.Code, ErrUpstreamTimeout.Status, ErrUpstreamTimeout.Message)
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrRequestCanceled.Code, ErrRequestCanceled.Status, ErrRequestCanceled.Message)
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
