package model

import "fmt"

// Standard error codes. Every expected outcome has its own code so a
// caller can distinguish "link expired" from "link invalid" without
// parsing messages.
const (
	ErrBadRequest       = "BAD_REQUEST"
	ErrUnauthorized     = "UNAUTHORIZED"
	ErrForbidden        = "FORBIDDEN"
	ErrNotFound         = "NOT_FOUND"
	ErrExpired          = "EXPIRED"
	ErrTerminalState    = "TERMINAL_STATE"
	ErrInvalidState     = "INVALID_STATE"
	ErrValidationError  = "VALIDATION_ERROR"
	ErrRateLimited      = "RATE_LIMITED"
	ErrDependencyFailed = "DEPENDENCY_FAILED"
	ErrInternalError    = "INTERNAL_ERROR"
)

// ErrorEnvelope is the standard error body returned by the API.
// It implements the error interface.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IsCode reports whether err is an *ErrorEnvelope with the given code.
func IsCode(err error, code string) bool {
	ee, ok := err.(*ErrorEnvelope)
	return ok && ee.Code == code
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrForbidden, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewExpiredError returns an EXPIRED error for a token past its expiry.
func NewExpiredError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrExpired, Message: msg}
}

// NewTerminalStateError returns a TERMINAL_STATE error for access to a
// contract in an absorbing state or through an already-consumed token.
func NewTerminalStateError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrTerminalState, Message: msg}
}

// NewInvalidStateError returns an INVALID_STATE error for an action
// attempted outside its legal predecessor states.
func NewInvalidStateError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrInvalidState, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
func NewValidationError(details []FieldError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Details: details,
	}
}

// NewRateLimitedError returns a RATE_LIMITED error.
func NewRateLimitedError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrRateLimited,
		Message: "Rate limit exceeded. Please try again later.",
	}
}

// NewDependencyError returns a DEPENDENCY_FAILED error for a storage,
// rendering or notification failure.
func NewDependencyError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrDependencyFailed, Message: msg}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}
