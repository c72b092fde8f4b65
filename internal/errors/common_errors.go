package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeConfig      ErrorType = "CONFIG"
	ErrTypeDataQuality ErrorType = "DATA_QUALITY"
	ErrTypeParsing     ErrorType = "PARSING"
	ErrTypeStorage     ErrorType = "STORAGE"
	ErrTypeNotFound    ErrorType = "NOT_FOUND"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewConfigError creates a configuration error. Configuration errors are
// never retried and abort the publication run.
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewDataQualityError creates an error for input data that cannot be used
// as supplied, such as overlapping reference date ranges.
func NewDataQualityError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDataQuality, message, cause)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewInvalidValueError reports a value outside its enumerated set.
func NewInvalidValueError(name, value string, valid []string) *AppError {
	return NewConfigError(
		fmt.Sprintf("an invalid value %q has been entered in the %s input, only %v are valid values", value, name, valid),
		nil,
	).WithContext("input", name)
}

// MissingColumn names one absent column and what needed it.
type MissingColumn struct {
	Column   string
	Required string
}

// NewMissingColumnsError builds a single configuration error listing every
// missing prerequisite column.
func NewMissingColumnsError(missing []MissingColumn) *AppError {
	lines := make([]string, 0, len(missing))
	columns := make([]string, 0, len(missing))
	for _, m := range missing {
		if m.Required != "" {
			lines = append(lines, fmt.Sprintf("the column %s is needed to create %s but is not in the table", m.Column, m.Required))
		} else {
			lines = append(lines, fmt.Sprintf("the column %s is not in the table", m.Column))
		}
		columns = append(columns, m.Column)
	}
	sort.Strings(columns)
	return NewConfigError(strings.Join(lines, "; "), nil).WithContext("missing_columns", columns)
}

// IsType reports whether err is an AppError of the given type anywhere in
// its chain.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}
