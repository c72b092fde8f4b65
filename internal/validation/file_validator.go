package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "bspub/internal/errors"
)

// FileValidator checks the files and directories a run depends on before
// any output is built.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// FileKind selects the format check applied to a file.
type FileKind int

const (
	AnyFile FileKind = iota
	ExcelFile
	CSVFile
)

// FileCheck is one file a run needs. Purpose names it in errors.
type FileCheck struct {
	Purpose string
	Path    string
	Kind    FileKind
}

// Preflight checks every file and that outputDir is writable. All
// problems are reported together in one configuration error.
func (v *FileValidator) Preflight(files []FileCheck, outputDir string) error {
	var problems []string
	for _, fc := range files {
		var err error
		switch fc.Kind {
		case ExcelFile:
			err = v.ValidateExcelFile(fc.Path)
		case CSVFile:
			err = v.ValidateCSVFile(fc.Path)
		default:
			err = v.ValidateFile(fc.Path)
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", fc.Purpose, err))
		}
	}
	if outputDir != "" {
		if err := v.ValidateOutputDirectory(outputDir); err != nil {
			problems = append(problems, fmt.Sprintf("output directory: %v", err))
		}
	}
	if len(problems) > 0 {
		return apperrors.NewConfigError("preflight failed: "+strings.Join(problems, "; "), nil).
			WithContext("problems", len(problems))
	}
	v.logger.Info("Preflight checks passed", slog.Int("files", len(files)))
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return apperrors.NewNotFoundError("file " + path)
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return apperrors.NewConfigError(fmt.Sprintf("%s is a directory, not a file", path), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateExcelFile checks that a workbook exists and is in a format the
// Excel writer can open
func (v *FileValidator) ValidateExcelFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		v.logger.Error("File is not an Excel file",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewConfigError(fmt.Sprintf("file %s is not an Excel workbook (extension: %s)", path, ext), nil)
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		return apperrors.NewConfigError(fmt.Sprintf("file %s is a temporary Excel file", path), nil)
	}
	return nil
}

// ValidateCSVFile checks if a file is a valid CSV file
func (v *FileValidator) ValidateCSVFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" {
		v.logger.Error("File is not a CSV file",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewConfigError(fmt.Sprintf("file %s is not a CSV file (extension: %s)", path, ext), nil)
	}
	return nil
}
