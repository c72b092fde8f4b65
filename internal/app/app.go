package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"bspub/internal/catalog"
	"bspub/internal/config"
	"bspub/internal/engine"
	"bspub/internal/feed"
	"bspub/internal/infrastructure"
	"bspub/internal/measures"
	"bspub/internal/operations"
	"bspub/internal/preprocess"
	"bspub/internal/table"
	"bspub/internal/validation"
)

// Options are the command line overrides of a run.
type Options struct {
	// ConfigPath is the YAML configuration file. Empty searches the usual
	// locations.
	ConfigPath string
	// MetricsAddr serves /metrics while the run is in progress and turns
	// telemetry on.
	MetricsAddr string
}

// Application is the container for one publication run
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Catalog       *catalog.Catalog
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	MetricsServer *infrastructure.MetricsServer
	References    *feed.References

	records map[string]*table.Table
}

// NewApplication loads configuration and the catalog and initialises
// logging and telemetry. Nothing is read from the feed until Prepare.
func NewApplication(opts Options) (*Application, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.MetricsAddr != "" {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.MetricsAddr = opts.MetricsAddr
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if cfg.Logging.FilePath != "" && !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = filepath.Join(paths.LogsDir, filepath.Base(cfg.Logging.FilePath))
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("year", cfg.Publication.Year))

	if err := paths.EnsureDirectories(logger); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFromTelemetry(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	cat, err := catalog.LoadDir(paths.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load output catalog: %w", err)
	}
	logger.Info("Output catalog loaded",
		slog.Int("groups", len(cat.Groups)),
		slog.Int("outputs", len(cat.Outputs())))

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Catalog:       cat,
		Logger:        logger,
		OTelProviders: providers,
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.MetricsAddr != "" {
		a.MetricsServer = infrastructure.NewMetricsServer(cfg.Telemetry.MetricsAddr, providers.PrometheusHTTP, logger)
	}
	return a, nil
}

// Start starts the metrics listener when one is configured
func (a *Application) Start(ctx context.Context) error {
	if a.MetricsServer == nil {
		return nil
	}
	return a.MetricsServer.Start(ctx)
}

// Collections returns the collections the catalog reads, in a fixed order.
func (a *Application) Collections() []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range a.Catalog.Groups {
		if !seen[g.Collection] {
			seen[g.Collection] = true
			out = append(out, g.Collection)
		}
	}
	sort.Strings(out)
	return out
}

// Prepare checks the run's input files, then loads reference data and the
// pre-processed records of every collection the catalog reads.
func (a *Application) Prepare(ctx context.Context) error {
	start := time.Now()
	if err := validation.NewFileValidator(a.Logger).Preflight(a.fileChecks(), a.Paths.OutputDir); err != nil {
		return err
	}

	refs, err := feed.LoadReferences(ctx, a.Paths, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load reference data: %w", err)
	}
	a.References = refs

	src, err := feed.NewSource(ctx, a.Config.Feed, a.Paths, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open record feed: %w", err)
	}
	defer src.Close()

	a.records = make(map[string]*table.Table)
	for _, name := range a.Collections() {
		raw, err := src.Records(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to load %s records: %w", name, err)
		}
		cc, err := a.Config.Collection(name)
		if err != nil {
			return err
		}
		prepared, err := preprocess.New(name, cc, refs.RegionUpdates, a.Logger).Apply(raw)
		if err != nil {
			return fmt.Errorf("failed to pre-process %s records: %w", name, err)
		}
		a.records[name] = prepared
	}

	infrastructure.WithComponent(a.Logger, "app").InfoContext(ctx, "Run prepared",
		slog.Int("collections", len(a.records)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// fileChecks lists the templates, feed files and reference files the run
// needs.
func (a *Application) fileChecks() []validation.FileCheck {
	var checks []validation.FileCheck
	seen := make(map[string]bool)
	for _, g := range a.Catalog.Groups {
		if g.IsCSV() || seen[g.Workbook] {
			continue
		}
		seen[g.Workbook] = true
		checks = append(checks, validation.FileCheck{
			Purpose: "template for " + g.Name,
			Path:    a.Paths.TemplatePath(g.Workbook),
			Kind:    validation.ExcelFile,
		})
	}

	if a.Config.Feed.Kind != config.FeedSQL {
		kind := validation.CSVFile
		if a.Config.Feed.Kind == config.FeedXLSX {
			kind = validation.ExcelFile
		}
		for _, name := range a.Collections() {
			file, ok := a.Config.Feed.Files[name]
			if !ok {
				continue
			}
			checks = append(checks, validation.FileCheck{
				Purpose: name + " feed",
				Path:    a.Paths.InputPath(file),
				Kind:    kind,
			})
		}
	}

	for _, ref := range []struct{ purpose, path string }{
		{"SDR multipliers", a.Paths.SDRFile},
		{"LA region history", a.Paths.LAFile},
		{"footnote references", a.Paths.FootnoteFile},
	} {
		if ref.path != "" {
			checks = append(checks, validation.FileCheck{Purpose: ref.purpose, Path: ref.path, Kind: validation.CSVFile})
		}
	}
	return checks
}

// Engine returns an engine configured for the run.
func (a *Application) Engine() *engine.Engine {
	pub := a.Config.Publication
	opts := engine.Options{
		Year:          pub.Year,
		LowNumerator:  pub.LowNumerator,
		LowFlag:       pub.LowFlag,
		NotApplicable: pub.NotApplicable,
		Validation:    a.Config.ValidationEngineConfig(),
		FlagSets:      FlagSets(a.Config.Collections),
	}
	if a.References != nil {
		opts.Multipliers = a.References.Multipliers
	}
	return engine.New(opts, a.Logger)
}

// Manager returns a run manager writing to the configured outputs.
func (a *Application) Manager() (*operations.Manager, error) {
	tracer, err := operations.NewOutputTracer(a.OTelProviders)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tracer: %w", err)
	}
	opts := operations.Options{Paths: a.Paths, Tracer: tracer}
	if a.References != nil {
		opts.Footnotes = a.References.Footnotes
	}
	return operations.NewManager(a.Engine(), opts, a.Logger), nil
}

// Run writes every output of the catalog. Prepare must have succeeded.
func (a *Application) Run(ctx context.Context) (*operations.RunResult, error) {
	if a.records == nil {
		return nil, fmt.Errorf("run is not prepared")
	}
	m, err := a.Manager()
	if err != nil {
		return nil, err
	}
	return m.Run(infrastructure.EnsureTraceID(ctx), a.Catalog, a.records)
}

// Preview builds one output without writing it. Prepare must have
// succeeded.
func (a *Application) Preview(group, output string) (*table.Table, error) {
	if a.records == nil {
		return nil, fmt.Errorf("run is not prepared")
	}
	m, err := a.Manager()
	if err != nil {
		return nil, err
	}
	return m.Preview(a.Catalog, a.records, group, output)
}

// Stop flushes telemetry, stops the metrics listener and closes the log
// file
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if a.MetricsServer != nil {
		if err := a.MetricsServer.Stop(shutdownCtx); err != nil {
			infrastructure.WithError(a.Logger, err).ErrorContext(ctx, "Error stopping metrics server")
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			infrastructure.WithError(a.Logger, err).ErrorContext(ctx, "Error shutting down OpenTelemetry")
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return infrastructure.CloseLogFile()
}

// FlagSets converts the configured check_list_flag lists for the engine.
// Flags within a set are ordered by column name.
func FlagSets(collections map[string]config.CollectionConfig) map[string]map[string][]measures.Flag {
	out := make(map[string]map[string][]measures.Flag, len(collections))
	for name, cc := range collections {
		if len(cc.FlagSets) == 0 {
			continue
		}
		sets := make(map[string][]measures.Flag, len(cc.FlagSets))
		for set, columns := range cc.FlagSets {
			names := make([]string, 0, len(columns))
			for col := range columns {
				names = append(names, col)
			}
			sort.Strings(names)
			flags := make([]measures.Flag, 0, len(names))
			for _, col := range names {
				flags = append(flags, measures.Flag{Name: col, Values: columns[col]})
			}
			sets[set] = flags
		}
		out[name] = sets
	}
	return out
}
