package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bspub/internal/catalog"
	"bspub/internal/config"
	"bspub/internal/exporter"
	"bspub/internal/table"
)

// Builder turns an output definition into its finished table.
type Builder interface {
	Output(records *table.Table, g *catalog.Group, o catalog.Output) (*table.Table, error)
}

// Options configures a Manager.
type Options struct {
	Paths *config.Paths
	// Footnotes is the footnote reference table. Groups declaring
	// footnotes fail when it is nil.
	Footnotes *table.Table
	// Tracer may be nil.
	Tracer *OutputTracer
}

// Manager runs a catalog: every output is built and written in catalog
// order, one destination at a time, and the first failure aborts the run.
type Manager struct {
	builder   Builder
	paths     *config.Paths
	csv       *exporter.CSVWriter
	footnotes *table.Table
	tracer    *OutputTracer
	logger    *slog.Logger
}

// NewManager creates a run manager
func NewManager(builder Builder, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "operations"))
	tracer := opts.Tracer
	if tracer == nil {
		tracer, _ = NewOutputTracer(nil)
	}
	return &Manager{
		builder:   builder,
		paths:     opts.Paths,
		csv:       exporter.NewCSVWriter(opts.Paths, logger),
		footnotes: opts.Footnotes,
		tracer:    tracer,
		logger:    logger,
	}
}

// OutputResult describes one written output.
type OutputResult struct {
	Group     string
	Output    string
	WriteType string
	Path      string
	Rows      int
	Duration  time.Duration
}

// RunResult describes a run. On failure it holds the outputs written
// before the failing one.
type RunResult struct {
	Outputs  []OutputResult
	Files    []string
	Duration time.Duration
}

// Run builds and writes every output of c. records holds the prepared
// record feed of each collection.
func (m *Manager) Run(ctx context.Context, c *catalog.Catalog, records map[string]*table.Table) (*RunResult, error) {
	start := time.Now()
	res := &RunResult{}

	registry, err := Plan(c)
	if err != nil {
		m.logRunError(ctx, err)
		return res, err
	}
	destinations := registry.List()
	total := 0
	for _, d := range destinations {
		total += d.Outputs()
	}

	ctx, span := m.tracer.TraceRun(ctx, len(destinations), total)
	m.logRunStart(ctx, len(destinations), total)

	for _, d := range destinations {
		if err = ctx.Err(); err != nil {
			err = NewCancellationError(err)
			break
		}
		if d.IsWorkbook() {
			err = m.writeWorkbook(ctx, d, records, res)
		} else {
			err = m.writeCSV(ctx, d, records, res)
		}
		if err != nil {
			break
		}
	}

	res.Duration = time.Since(start)
	m.tracer.FinishRun(ctx, span, res.Duration, err)
	if err != nil {
		m.logRunError(ctx, err)
		m.logRunComplete(ctx, res.Duration, "failed")
		return res, err
	}
	m.logRunComplete(ctx, res.Duration, "completed")
	return res, nil
}

// Preview builds one output without writing it. An empty group matches
// the first output with the name.
func (m *Manager) Preview(c *catalog.Catalog, records map[string]*table.Table, group, output string) (*table.Table, error) {
	for _, item := range c.Outputs() {
		if item.Output.Name != output || (group != "" && item.Group.Name != group) {
			continue
		}
		recs, err := recordsFor(item.Group, records)
		if err != nil {
			return nil, err
		}
		t, err := m.builder.Output(recs, item.Group, item.Output)
		if err != nil {
			return nil, NewBuildError(item.Group.Name, output, err)
		}
		return t, nil
	}
	return nil, &OperationError{Type: ErrorTypeNotFound, Group: group, Output: output, Message: "output not found"}
}

// writeWorkbook opens the destination template once, writes the outputs
// of every group sharing it, applies footnotes and saves. The workbook is
// closed before returning.
func (m *Manager) writeWorkbook(ctx context.Context, d *Destination, records map[string]*table.Table, res *RunResult) error {
	first := d.Groups[0].Name
	wb, err := exporter.OpenWorkbook(m.paths.TemplatePath(d.Workbook), m.paths.WorkbookPath(d.Workbook), m.logger)
	if err != nil {
		return NewWriteError(first, "", err)
	}
	defer wb.Close()

	for _, g := range d.Groups {
		recs, err := recordsFor(g, records)
		if err != nil {
			return err
		}
		for _, o := range g.Outputs {
			if err := ctx.Err(); err != nil {
				return NewCancellationError(err)
			}
			r, err := m.runOutput(ctx, g, o, recs, func(t *table.Table) (string, error) {
				return wb.Path(), wb.Write(o, t)
			})
			if err != nil {
				return err
			}
			res.Outputs = append(res.Outputs, r)
		}
	}

	footnotes := 0
	for _, g := range d.Groups {
		for _, fn := range g.Footnotes {
			n, err := wb.AddFootnoteRefs(fn, m.footnotes)
			if err != nil {
				return NewWriteError(g.Name, fn.Sheet, fmt.Errorf("adding footnotes: %w", err))
			}
			footnotes += n
		}
	}

	if err := wb.Save(); err != nil {
		return NewWriteError(first, "", err)
	}
	m.tracer.RecordWorkbookSaved(ctx, d.Workbook)
	res.Files = append(res.Files, wb.Path())
	m.logDestinationSaved(ctx, d, wb.Path(), footnotes)
	return nil
}

// writeCSV writes each output of a CSV group to its own file.
func (m *Manager) writeCSV(ctx context.Context, d *Destination, records map[string]*table.Table, res *RunResult) error {
	for _, g := range d.Groups {
		recs, err := recordsFor(g, records)
		if err != nil {
			return err
		}
		for _, o := range g.Outputs {
			if err := ctx.Err(); err != nil {
				return NewCancellationError(err)
			}
			r, err := m.runOutput(ctx, g, o, recs, func(t *table.Table) (string, error) {
				return m.csv.WriteTable(g.Dir, o.Name, t)
			})
			if err != nil {
				return err
			}
			res.Outputs = append(res.Outputs, r)
			res.Files = append(res.Files, r.Path)
		}
		m.logDestinationSaved(ctx, d, g.Dir, 0)
	}
	return nil
}

// runOutput builds one output and hands it to write inside its own span.
func (m *Manager) runOutput(ctx context.Context, g *catalog.Group, o catalog.Output, records *table.Table, write func(*table.Table) (string, error)) (OutputResult, error) {
	start := time.Now()
	ctx, span := m.tracer.TraceOutput(ctx, g.Name, o.Name, o.WriteType)
	res := OutputResult{Group: g.Name, Output: o.Name, WriteType: o.WriteType}

	t, err := m.builder.Output(records, g, o)
	if err != nil {
		err = NewBuildError(g.Name, o.Name, err)
	} else {
		res.Rows = t.Len()
		if res.Path, err = write(t); err != nil {
			err = NewWriteError(g.Name, o.Name, err)
		}
	}

	res.Duration = time.Since(start)
	m.tracer.FinishOutput(ctx, span, g.Name, o.Name, o.WriteType, res.Duration, res.Rows, err)
	if err != nil {
		return res, err
	}
	m.logOutputComplete(ctx, res)
	return res, nil
}

func recordsFor(g *catalog.Group, records map[string]*table.Table) (*table.Table, error) {
	t, ok := records[g.Collection]
	if !ok || t == nil {
		return nil, NewValidationError(g.Name, fmt.Sprintf("no records loaded for %s", g.Collection))
	}
	return t, nil
}
