// Package apperrors defines the application error taxonomy. Every failure
// surfaced to a caller is a *ServiceError carrying a stable code, an HTTP
// status where one applies, and optional structured details.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error class.
type Code string

const (
	// CodeNetwork covers transport failures: timeouts, connectivity, DNS.
	CodeNetwork Code = "NETWORK_ERROR"
	// CodeUnauthorized covers 401 responses that survived a refresh retry.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeCannotRefreshToken is raised when the refresh endpoint rejects
	// the current token outright. It is the one auth failure that clears
	// local session state.
	CodeCannotRefreshToken Code = "CANNOT_REFRESH_TOKEN"
	// CodeValidation covers client-side field validation failures.
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeBusiness covers server-side business-rule rejections.
	CodeBusiness Code = "BUSINESS_RULE"
	// CodeInconsistent covers missing acquisition-flow state that payment
	// screens require.
	CodeInconsistent Code = "INCONSISTENT_STATE"
	// CodeNotFound covers missing persisted or remote records.
	CodeNotFound Code = "NOT_FOUND"
	// CodeInternal covers everything else.
	CodeInternal Code = "INTERNAL_ERROR"
)

// ServiceError is the canonical application error.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]any
	cause      error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause.
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// WithDetails attaches a structured detail and returns the error for
// chaining.
func (e *ServiceError) WithDetails(key string, value any) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Network wraps a transport failure.
func Network(msg string, cause error) *ServiceError {
	return &ServiceError{Code: CodeNetwork, Message: msg, HTTPStatus: 0, cause: cause}
}

// Unauthorized builds an auth failure.
func Unauthorized(msg string) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: msg, HTTPStatus: http.StatusUnauthorized}
}

// CannotRefreshToken builds the terminal refresh failure.
func CannotRefreshToken(cause error) *ServiceError {
	return &ServiceError{
		Code:       CodeCannotRefreshToken,
		Message:    "refresh token rejected",
		HTTPStatus: http.StatusUnauthorized,
		cause:      cause,
	}
}

// Validation builds a field validation failure.
func Validation(field, msg string) *ServiceError {
	e := &ServiceError{Code: CodeValidation, Message: msg, HTTPStatus: http.StatusBadRequest}
	return e.WithDetails("field", field)
}

// Business builds a business-rule rejection with the server-provided code.
func Business(msg string, status int) *ServiceError {
	return &ServiceError{Code: CodeBusiness, Message: msg, HTTPStatus: status}
}

// Inconsistent reports missing flow state required by a downstream step.
func Inconsistent(msg string) *ServiceError {
	return &ServiceError{Code: CodeInconsistent, Message: msg}
}

// NotFound builds a missing-record error.
func NotFound(msg string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: msg, HTTPStatus: http.StatusNotFound}
}

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: msg, HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// GetServiceError extracts a *ServiceError from err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == code
}
