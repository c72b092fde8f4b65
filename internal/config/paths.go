package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all resolved application paths.
// This is the single source of truth for file locations used by a run.
type Paths struct {
	BaseDir      string
	InputDir     string
	TemplatesDir string
	OutputDir    string
	LogsDir      string
	CatalogDir   string

	// Reference files
	SDRFile      string
	LAFile       string
	FootnoteFile string
}

// ExecutableDir returns the directory containing the running binary with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	return filepath.Dir(exe), nil
}

// ResolvePaths turns the configured paths into absolute ones. Relative
// entries are joined to BaseDir; an empty BaseDir means the executable
// directory.
func ResolvePaths(pc PathsConfig) (*Paths, error) {
	base := pc.BaseDir
	if base == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return nil, err
		}
		base = dir
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory %s: %w", pc.BaseDir, err)
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		BaseDir:      base,
		InputDir:     resolve(pc.InputDir),
		TemplatesDir: resolve(pc.TemplatesDir),
		OutputDir:    resolve(pc.OutputDir),
		LogsDir:      resolve(pc.LogsDir),
		CatalogDir:   resolve(pc.CatalogDir),
		SDRFile:      resolve(pc.SDRFile),
		LAFile:       resolve(pc.LAFile),
		FootnoteFile: resolve(pc.FootnoteFile),
	}, nil
}

// EnsureDirectories creates the directories a run writes to.
// Input and template directories are never created.
func (p *Paths) EnsureDirectories(logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// TemplatePath returns the template path of a workbook.
func (p *Paths) TemplatePath(workbook string) string {
	return filepath.Join(p.TemplatesDir, workbook)
}

// WorkbookPath returns where a filled workbook is saved.
func (p *Paths) WorkbookPath(workbook string) string {
	return filepath.Join(p.OutputDir, filepath.Base(workbook))
}

// CSVPath returns the path of a CSV output in a group directory.
func (p *Paths) CSVPath(dir, name string) string {
	if filepath.IsAbs(dir) {
		return filepath.Join(dir, name+".csv")
	}
	return filepath.Join(p.OutputDir, dir, name+".csv")
}

// InputPath resolves a feed file. Bare file names live in the input
// directory; other relative paths are taken from the base directory.
func (p *Paths) InputPath(file string) string {
	switch {
	case filepath.IsAbs(file):
		return file
	case filepath.Base(file) == file:
		return filepath.Join(p.InputDir, file)
	default:
		return filepath.Join(p.BaseDir, file)
	}
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	wd, _ := os.Getwd()

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("working", wd),
			slog.String("input", p.InputDir),
			slog.String("templates", p.TemplatesDir),
			slog.String("output", p.OutputDir),
			slog.String("logs", p.LogsDir),
			slog.String("catalog", p.CatalogDir),
		),
		slog.Group("reference_files",
			slog.String("sdr", p.SDRFile),
			slog.Bool("sdr_exists", FileExists(p.SDRFile)),
			slog.String("la_regions", p.LAFile),
			slog.Bool("la_regions_exists", FileExists(p.LAFile)),
			slog.String("footnotes", p.FootnoteFile),
		))
}
