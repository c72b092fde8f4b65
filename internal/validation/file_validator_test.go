package validation

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bspub/internal/errors"
)

func quietValidator() *FileValidator {
	return NewFileValidator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("test"), 0644))
	return path
}

func TestFileValidator_ValidateFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		path     string
		validate func(v *FileValidator, path string) error
		wantType apperrors.ErrorType
	}{
		{"existing file", writeFile(t, dir, "kc62.csv"), (*FileValidator).ValidateFile, ""},
		{"missing file", filepath.Join(dir, "missing.csv"), (*FileValidator).ValidateFile, apperrors.ErrTypeNotFound},
		{"directory", dir, (*FileValidator).ValidateFile, apperrors.ErrTypeConfig},
		{"csv", writeFile(t, dir, "sdr.CSV"), (*FileValidator).ValidateCSVFile, ""},
		{"csv wrong extension", writeFile(t, dir, "sdr.txt"), (*FileValidator).ValidateCSVFile, apperrors.ErrTypeConfig},
		{"xlsx template", writeFile(t, dir, "kc62.xlsx"), (*FileValidator).ValidateExcelFile, ""},
		{"xlsm template", writeFile(t, dir, "kc63.xlsm"), (*FileValidator).ValidateExcelFile, ""},
		{"legacy xls", writeFile(t, dir, "old.xls"), (*FileValidator).ValidateExcelFile, apperrors.ErrTypeConfig},
		{"excel lock file", writeFile(t, dir, "~$kc62.xlsx"), (*FileValidator).ValidateExcelFile, apperrors.ErrTypeConfig},
		{"missing template", filepath.Join(dir, "kc64.xlsx"), (*FileValidator).ValidateExcelFile, apperrors.ErrTypeNotFound},
	}

	v := quietValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validate(v, tt.path)
			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := quietValidator()

	dir := filepath.Join(t.TempDir(), "outputs", "csv")
	require.NoError(t, v.ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)
	assert.NoFileExists(t, filepath.Join(dir, ".write_test"))

	file := writeFile(t, t.TempDir(), "not_a_dir")
	err := v.ValidateOutputDirectory(filepath.Join(file, "sub"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestFileValidator_Preflight(t *testing.T) {
	dir := t.TempDir()
	template := writeFile(t, dir, "kc62.xlsx")
	feed := writeFile(t, dir, "kc62.csv")
	v := quietValidator()

	t.Run("all present", func(t *testing.T) {
		err := v.Preflight([]FileCheck{
			{Purpose: "template kc62_tables", Path: template, Kind: ExcelFile},
			{Purpose: "feed KC62", Path: feed, Kind: CSVFile},
		}, filepath.Join(dir, "outputs"))
		assert.NoError(t, err)
	})

	t.Run("every problem reported", func(t *testing.T) {
		err := v.Preflight([]FileCheck{
			{Purpose: "template kc63_tables", Path: filepath.Join(dir, "kc63.xlsx"), Kind: ExcelFile},
			{Purpose: "feed KC62", Path: feed, Kind: CSVFile},
			{Purpose: "SDR multipliers", Path: template, Kind: CSVFile},
			{Purpose: "footnotes", Path: filepath.Join(dir, "footnotes.csv")},
		}, "")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
		assert.ErrorContains(t, err, "template kc63_tables")
		assert.ErrorContains(t, err, "SDR multipliers")
		assert.ErrorContains(t, err, "footnotes")
		assert.NotContains(t, err.Error(), "feed KC62")

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 3, appErr.Context["problems"])
	})
}
