package transform

import (
	"errors"
	"fmt"
)

// Error represents a failure that aborts a Build call.
//
// Errors include:
//   - Configuration: rule set missing, empty or malformed
//   - Invalid payload: payload map missing
//   - Validation: a field's validator rejected its reduced value
//   - Reducer failed: a reducer returned an error
//
// No Build call ever returns partial output alongside an Error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is the human-readable description. For validation errors it is
	// the rule author's message, verbatim.
	Message string

	// Field is the input key of the failing rule, if any.
	Field string

	// OutputKey is the output key of the failing rule, if any.
	OutputKey string

	// Cause is the underlying error (reducer failures only).
	Cause error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates the rule set is absent or malformed.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeInvalidPayload indicates the payload is absent.
	ErrCodeInvalidPayload ErrorCode = "INVALID_PAYLOAD"

	// ErrCodeValidation indicates a validator rejected a field value.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeReducerFailed indicates a reducer returned an error.
	ErrCodeReducerFailed ErrorCode = "REDUCER_FAILED"
)

// Error implements the error interface.
// Validation errors render as the configured message with nothing appended.
func (e *Error) Error() string {
	switch {
	case e.Code == ErrCodeValidation:
		return e.Message
	case e.Cause != nil && e.Field != "":
		return fmt.Sprintf("%s: %s (field=%s): %v", e.Code, e.Message, e.Field, e.Cause)
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsConfigurationError returns true if err is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsInvalidPayloadError returns true if err is an invalid payload error.
func IsInvalidPayloadError(err error) bool {
	return hasCode(err, ErrCodeInvalidPayload)
}

// IsValidationError returns true if err is a validation error.
func IsValidationError(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsReducerError returns true if err is a reducer failure.
func IsReducerError(err error) bool {
	return hasCode(err, ErrCodeReducerFailed)
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// NewConfigurationError creates an Error for a missing or malformed rule set.
func NewConfigurationError(message string) *Error {
	return &Error{
		Code:    ErrCodeConfiguration,
		Message: message,
	}
}

// NewInvalidPayloadError creates an Error for a missing payload.
func NewInvalidPayloadError() *Error {
	return &Error{
		Code:    ErrCodeInvalidPayload,
		Message: "transform payload should be an object",
	}
}

// NewValidationError creates an Error carrying a rule's failure message.
func NewValidationError(rule FieldRule) *Error {
	return &Error{
		Code:      ErrCodeValidation,
		Message:   rule.ValidationFailureMessage,
		Field:     rule.InputKey,
		OutputKey: rule.OutputKey,
	}
}

// NewReducerError creates an Error for a failed reducer step.
func NewReducerError(rule FieldRule, step int, cause error) *Error {
	return &Error{
		Code:      ErrCodeReducerFailed,
		Message:   fmt.Sprintf("reducer %d failed", step),
		Field:     rule.InputKey,
		OutputKey: rule.OutputKey,
		Cause:     cause,
	}
}
