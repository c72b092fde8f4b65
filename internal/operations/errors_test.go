package operations

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationError(t *testing.T) {
	cause := errors.New("missing columns: Screened")

	tests := []struct {
		name     string
		err      *OperationError
		wantMsg  string
		wantType ErrorType
	}{
		{
			name:     "build error names the output",
			err:      NewBuildError("kc62_tables", "Table 1", cause),
			wantMsg:  "[build] kc62_tables/Table 1: output build failed: missing columns: Screened",
			wantType: ErrorTypeBuild,
		},
		{
			name:     "write error without output",
			err:      NewWriteError("kc62_tables", "", cause),
			wantMsg:  "[write] kc62_tables: output write failed: missing columns: Screened",
			wantType: ErrorTypeWrite,
		},
		{
			name:     "validation error",
			err:      NewValidationError("kc63_csv", "no records loaded for KC63"),
			wantMsg:  "[validation] kc63_csv: no records loaded for KC63",
			wantType: ErrorTypeValidation,
		},
		{
			name:     "cancellation",
			err:      NewCancellationError(context.Canceled),
			wantMsg:  "[cancellation] run was cancelled: context canceled",
			wantType: ErrorTypeCancellation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.Equal(t, tt.wantType, GetErrorType(fmt.Errorf("run: %w", tt.err)))
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	err := NewBuildError("g", "o", context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var nilErr *OperationError
	assert.Nil(t, nilErr.Unwrap())
	assert.Equal(t, "unknown operation error", nilErr.Error())
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorType(""), GetErrorType(nil))
	assert.Equal(t, ErrorTypeBuild, GetErrorType(errors.New("plain")))
}

func TestErrOutputNotFound(t *testing.T) {
	err := &OperationError{Type: ErrorTypeNotFound, Output: "Table 9", Message: "output not found"}
	assert.ErrorIs(t, err, ErrOutputNotFound)
	assert.NotErrorIs(t, NewBuildError("g", "o", nil), ErrOutputNotFound)
}
