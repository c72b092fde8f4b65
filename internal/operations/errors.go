package operations

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of run error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeBuild        ErrorType = "build"
	ErrorTypeWrite        ErrorType = "write"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeNotFound     ErrorType = "not_found"
)

// OperationError ties a run failure to the output that caused it
type OperationError struct {
	Type    ErrorType `json:"type"`
	Group   string    `json:"group,omitempty"`
	Output  string    `json:"output,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"cause,omitempty"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	var msg string
	switch {
	case e.Output != "":
		msg = fmt.Sprintf("[%s] %s/%s: %s", e.Type, e.Group, e.Output, e.Message)
	case e.Group != "":
		msg = fmt.Sprintf("[%s] %s: %s", e.Type, e.Group, e.Message)
	default:
		msg = fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewValidationError creates an error for a catalog that cannot be run
func NewValidationError(group, message string) *OperationError {
	return &OperationError{
		Type:    ErrorTypeValidation,
		Group:   group,
		Message: message,
	}
}

// NewBuildError creates an error for an output whose table failed to build
func NewBuildError(group, output string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeBuild,
		Group:   group,
		Output:  output,
		Message: "output build failed",
		Cause:   cause,
	}
}

// NewWriteError creates an error for a failed write or save
func NewWriteError(group, output string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeWrite,
		Group:   group,
		Output:  output,
		Message: "output write failed",
		Cause:   cause,
	}
}

// NewCancellationError creates an error for a run stopped by its context
func NewCancellationError(cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeCancellation,
		Message: "run was cancelled",
		Cause:   cause,
	}
}

// GetErrorType returns the type of the error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	return ErrorTypeBuild
}

// ErrOutputNotFound is returned when a named output is not in the catalog
var ErrOutputNotFound = &OperationError{
	Type:    ErrorTypeNotFound,
	Message: "output not found",
}

// Is matches errors of the same type so ErrOutputNotFound works with errors.Is
func (e *OperationError) Is(target error) bool {
	t, ok := target.(*OperationError)
	if !ok || t != ErrOutputNotFound {
		return false
	}
	return e.Type == t.Type
}
