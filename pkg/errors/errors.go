// Package errors provides structured error handling for the application.
// Every failure talking to the recipe API is turned into an AppError so that
// handlers can pick a notification text and an HTTP status from one place.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	// Client errors (4xx)
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeForbidden        ErrorCode = "FORBIDDEN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeTooManyRequests  ErrorCode = "TOO_MANY_REQUESTS"

	// Server errors (5xx)
	CodeInternal             ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable   ErrorCode = "SERVICE_UNAVAILABLE"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError represents an application error with structured information
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Status   int                    `json:"status,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Cause    error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the appropriate HTTP status code. An upstream status,
// when one was recorded, wins over the code mapping.
func (e *AppError) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Code {
	case CodeBadRequest, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeExternalServiceError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func (e *AppError) withCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func newAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewValidationError creates a validation error
func NewValidationError(details string) *AppError {
	return newAppError(CodeValidationFailed, "Validation failed", details)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	message := "Resource not found"
	if resource != "" {
		message = fmt.Sprintf("%s not found", resource)
	}
	return newAppError(CodeNotFound, message, "")
}

// NewExternalServiceError creates an external service error
func NewExternalServiceError(service string, cause error) *AppError {
	return newAppError(
		CodeExternalServiceError,
		"External service error",
		fmt.Sprintf("Failed to communicate with %s", service),
	).withCause(cause)
}

// codeForStatus maps an upstream HTTP status onto an error code.
func codeForStatus(status int) ErrorCode {
	switch {
	case status == http.StatusBadRequest:
		return CodeBadRequest
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusUnprocessableEntity:
		return CodeValidationFailed
	case status == http.StatusTooManyRequests:
		return CodeTooManyRequests
	case status == http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	case status >= 500:
		return CodeExternalServiceError
	default:
		return CodeBadRequest
	}
}

// apiErrorBody is the error envelope returned by the recipe API. The message
// is either a string or a list of validation messages.
type apiErrorBody struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

// FromResponse builds an AppError from an upstream status and body. The
// server-provided message is kept verbatim when the body carries one.
func FromResponse(status int, body []byte) *AppError {
	message := serverMessage(body)
	details := ""
	if message == "" {
		details = http.StatusText(status)
	}
	return &AppError{
		Code:    codeForStatus(status),
		Message: message,
		Details: details,
		Status:  status,
	}
}

func serverMessage(body []byte) string {
	var envelope apiErrorBody
	if len(body) == 0 || json.Unmarshal(body, &envelope) != nil {
		return ""
	}
	if len(envelope.Message) > 0 {
		var single string
		if json.Unmarshal(envelope.Message, &single) == nil && single != "" {
			return single
		}
		var many []string
		if json.Unmarshal(envelope.Message, &many) == nil && len(many) > 0 {
			return strings.Join(many, "; ")
		}
	}
	return envelope.Error
}

// UserMessage returns the text to show the user for err: the server-provided
// message when there is one, else fallback.
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if !stderrors.As(err, &appErr) || appErr.Message == "" {
		return fallback
	}
	// Locally raised internal and transport errors carry no server text.
	if appErr.Status == 0 && (appErr.Code == CodeInternal || appErr.Code == CodeExternalServiceError) {
		return fallback
	}
	return appErr.Message
}

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return newAppError(CodeInternal, message, "").withCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Tag     string      `json:"tag"`
	Message string      `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	if len(v) == 1 {
		return v[0].Message
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Message)
	}
	return strings.Join(messages, "; ")
}

// NewValidationErrors creates validation errors from validator errors. The
// first message becomes the user-facing message.
func NewValidationErrors(errs []ValidationError) *AppError {
	validationErrs := ValidationErrors(errs)
	message := "Validation failed"
	if len(validationErrs) > 0 {
		message = validationErrs[0].Message
	}
	return newAppError(
		CodeValidationFailed,
		message,
		validationErrs.Error(),
	).WithMetadata("validation_errors", validationErrs)
}
