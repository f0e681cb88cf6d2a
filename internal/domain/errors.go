package domain

import (
	"fmt"
	"net/http"
)

// Stable machine-readable error codes returned in the error envelope
const (
	CodeEntityNotFound       = "ENTITY_NOT_FOUND"
	CodeDuplicateEntity      = "DUPLICATE_ENTITY"
	CodeLimitExceeded        = "LIMIT_EXCEEDED"
	CodeInvalidOperation     = "INVALID_OPERATION"
	CodePermissionDenied     = "PERMISSION_DENIED"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodePermissionsStale     = "PERMISSIONS_STALE"
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// Error is a typed domain error carrying a stable code. The request
// boundary translates it to the JSON error envelope.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetail attaches a detail entry and returns the error for chaining
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// HTTPStatus maps the stable code to an HTTP status
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeEntityNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateEntity:
		return http.StatusConflict
	case CodeLimitExceeded:
		return http.StatusForbidden
	case CodeInvalidOperation, CodeValidationError:
		return http.StatusBadRequest
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeAuthenticationFailed, CodePermissionsStale:
		return http.StatusUnauthorized
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// NewEntityNotFound reports a missing or foreign-tenant row
func NewEntityNotFound(entityType string) *Error {
	return &Error{Code: CodeEntityNotFound, Message: fmt.Sprintf("%s not found", entityType)}
}

// NewDuplicateEntity reports a uniqueness conflict
func NewDuplicateEntity(entityType, field, value string) *Error {
	return &Error{
		Code:    CodeDuplicateEntity,
		Message: fmt.Sprintf("%s with this %s already exists", entityType, field),
		Details: map[string]interface{}{"field": field, "value": value},
	}
}

// NewLimitExceeded reports a plan quota violation
func NewLimitExceeded(feature string, limit, current int64) *Error {
	return &Error{
		Code:    CodeLimitExceeded,
		Message: fmt.Sprintf("plan limit reached for %s", feature),
		Details: map[string]interface{}{"feature": feature, "limit": limit, "current": current},
	}
}

// NewInvalidOperation reports a state-machine or argument violation
func NewInvalidOperation(message string) *Error {
	return &Error{Code: CodeInvalidOperation, Message: message}
}

// NewPermissionDenied reports a failed write-authorization check
func NewPermissionDenied(message string) *Error {
	if message == "" {
		message = "permission denied"
	}
	return &Error{Code: CodePermissionDenied, Message: message}
}

// NewAuthenticationFailed reports a missing or invalid identity assertion
func NewAuthenticationFailed(message string) *Error {
	if message == "" {
		message = "authentication failed"
	}
	return &Error{Code: CodeAuthenticationFailed, Message: message}
}

// NewPermissionsStale reports an identity assertion minted before the
// latest permission change.
func NewPermissionsStale() *Error {
	return &Error{Code: CodePermissionsStale, Message: "permissions have changed, please re-authenticate"}
}

// NewValidationError reports invalid request input
func NewValidationError(message string) *Error {
	if message == "" {
		message = "validation failed"
	}
	return &Error{Code: CodeValidationError, Message: message}
}

// FieldError maps a field name to its validation error message
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewFieldValidationError reports per-field validation failures
func NewFieldValidationError(fields []FieldError) *Error {
	return &Error{
		Code:    CodeValidationError,
		Message: "validation failed",
		Details: map[string]interface{}{"fields": fields},
	}
}

// NewInternalError wraps an unexpected failure without leaking internals
func NewInternalError() *Error {
	return &Error{Code: CodeInternalError, Message: "an unexpected error occurred"}
}
