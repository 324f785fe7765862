package errors

import (
	"fmt"
	"net/http"
)

// Error codes rendered in the "error" field of every failed response.
const (
	CodeInvalidRequest     = "InvalidRequest"
	CodeValidationError    = "ValidationError"
	CodeUnauthorized       = "Unauthorized"
	CodeForbidden          = "Forbidden"
	CodeItemNotFound       = "ItemNotFound"
	CodeResourceNotFound   = "ResourceNotFound"
	CodeConflict           = "Conflict"
	CodeServiceUnavailable = "ServiceUnavailable"
	CodeInternalError      = "InternalError"
)

// StandardError represents a standardized error response
type StandardError struct {
	Code    string `json:"error"`             // Error code/type (e.g., "InvalidRequest", "ItemNotFound")
	Message string `json:"message"`           // Human-readable error message
	Details string `json:"details,omitempty"` // Additional details (field name, validation info, etc.)
}

// Error implements the error interface
func (e *StandardError) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for the error
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidRequest, CodeValidationError:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeItemNotFound, CodeResourceNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithoutDetails returns a copy with Details cleared, used when rendering
// internal errors in production.
func (e *StandardError) WithoutDetails() *StandardError {
	return &StandardError{Code: e.Code, Message: e.Message}
}

// NewStandardError creates a new StandardError
func NewStandardError(errorCode, message, details string) *StandardError {
	return &StandardError{
		Code:    errorCode,
		Message: message,
		Details: details,
	}
}

func NewInvalidRequest(message, details string) *StandardError {
	return NewStandardError(CodeInvalidRequest, message, details)
}

func NewValidationError(message, field string) *StandardError {
	return NewStandardError(CodeValidationError, message, fmt.Sprintf("Field: %s", field))
}

func NewUnauthorized(message, details string) *StandardError {
	return NewStandardError(CodeUnauthorized, message, details)
}

func NewForbidden(message, details string) *StandardError {
	return NewStandardError(CodeForbidden, message, details)
}

func NewItemNotFound(itemID string) *StandardError {
	return NewStandardError(CodeItemNotFound, "item not found", fmt.Sprintf("Item ID: %s", itemID))
}

func NewResourceNotFound(resource, id string) *StandardError {
	return NewStandardError(CodeResourceNotFound, resource+" not found", fmt.Sprintf("ID: %s", id))
}

func NewConflict(message, details string) *StandardError {
	return NewStandardError(CodeConflict, message, details)
}

func NewServiceUnavailable(message string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewStandardError(CodeServiceUnavailable, message, details)
}

func NewInternalError(message string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewStandardError(CodeInternalError, message, details)
}
