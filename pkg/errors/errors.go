// Package errors carries the two error families of the service. AppError
// describes failures at the edges (bad input, auth, storage, providers) and
// knows its HTTP status. DomainError is a canvas rule violation, usually a
// package-level sentinel matched with errors.Is.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an AppError
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeRateLimit    ErrorType = "RATE_LIMIT"

	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeDatabase    ErrorType = "DATABASE"
	ErrorTypeExternal    ErrorType = "EXTERNAL"
)

var statusByType = map[ErrorType]int{
	ErrorTypeValidation:   http.StatusBadRequest,
	ErrorTypeUnauthorized: http.StatusUnauthorized,
	ErrorTypeForbidden:    http.StatusForbidden,
	ErrorTypeRateLimit:    http.StatusTooManyRequests,
	ErrorTypeInternal:     http.StatusInternalServerError,
	ErrorTypeTimeout:      http.StatusGatewayTimeout,
	ErrorTypeUnavailable:  http.StatusServiceUnavailable,
	ErrorTypeDatabase:     http.StatusInternalServerError,
	ErrorTypeExternal:     http.StatusBadGateway,
}

// AppError is a failure outside the canvas rules
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func newAppError(t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, HTTPStatus: statusByType[t]}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode sets a machine readable code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails replaces the details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// NewValidationError reports malformed input
func NewValidationError(message string) *AppError {
	return newAppError(ErrorTypeValidation, message)
}

// NewUnauthorizedError reports a missing or bad credential
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return newAppError(ErrorTypeUnauthorized, message)
}

// NewForbiddenError reports a credential that does not cover the resource
func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return newAppError(ErrorTypeForbidden, message)
}

// NewRateLimitError reports an exhausted request budget
func NewRateLimitError(limit int, window string) *AppError {
	return newAppError(ErrorTypeRateLimit, fmt.Sprintf("rate limit exceeded: %d requests per %s", limit, window))
}

// NewTimeoutError reports an operation that ran out of time
func NewTimeoutError(operation string) *AppError {
	return newAppError(ErrorTypeTimeout, fmt.Sprintf("%s timed out", operation))
}

// NewUnavailableError reports a dependency that is switched off or tripped
func NewUnavailableError(service string) *AppError {
	return newAppError(ErrorTypeUnavailable, fmt.Sprintf("%s is unavailable", service))
}

// NewDatabaseError wraps a storage failure
func NewDatabaseError(operation string, err error) *AppError {
	return newAppError(ErrorTypeDatabase, fmt.Sprintf("%s failed", operation)).WithCause(err)
}

// NewExternalError wraps a failure reported by a remote service
func NewExternalError(service string, err error) *AppError {
	return newAppError(ErrorTypeExternal, fmt.Sprintf("%s request failed", service)).WithCause(err)
}

// GetAppError extracts the first AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if err carries an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsValidation reports whether err is bad input, from either family
func IsValidation(err error) bool {
	if IsType(err, ErrorTypeValidation) {
		return true
	}
	domainErr := AsDomainError(err)
	return domainErr != nil && domainErr.Type == DomainValidationError
}

// StatusCodeOf returns the HTTP status carried by err's chain, and 500 when
// it carries none
func StatusCodeOf(err error) int {
	if appErr := GetAppError(err); appErr != nil && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	if domainErr := AsDomainError(err); domainErr != nil {
		return domainErr.StatusCode
	}
	return http.StatusInternalServerError
}
