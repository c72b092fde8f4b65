// Package engine interprets catalog recipes into finished tables.
//
// Each recipe kind is a fixed pipeline over the transformation packages:
// filter the records, pivot per year, add subgroups, derive measures, then
// order, hide and rename. Every step returns a new table so a recipe can be
// built repeatedly from the same records.
package engine

import (
	"log/slog"
	"sort"

	apperrors "bspub/internal/errors"
	"bspub/internal/catalog"
	"bspub/internal/filter"
	"bspub/internal/measures"
	"bspub/internal/table"
	"bspub/internal/validation"
)

// Options configures an Engine.
type Options struct {
	// Year is the reporting year; time series end here.
	Year string
	// LowNumerator and LowFlag drive the small-numerator warning columns.
	LowNumerator float64
	LowFlag      string
	// NotApplicable replaces nulls in outputs whose group has no token.
	NotApplicable string
	// Validation configures the change and breach columns.
	Validation validation.Config
	// Multipliers is the SDR reference table.
	Multipliers []measures.Multiplier
	// FlagSets holds check_list_flag lists by collection, then set name.
	FlagSets map[string]map[string][]measures.Flag
}

// Engine builds tables from recipes.
type Engine struct {
	opts      Options
	deriver   *measures.Deriver
	validator *validation.Engine
	logger    *slog.Logger
}

// New returns an Engine.
func New(opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	flag := opts.LowFlag
	if flag == "" {
		flag = measures.DefaultFlag
	}
	return &Engine{
		opts:      opts,
		deriver:   measures.NewDeriver(opts.LowNumerator, flag),
		validator: validation.NewEngine(opts.Validation),
		logger:    logger.With(slog.String("component", "engine")),
	}
}

// Build interprets one recipe against the record feed.
func (e *Engine) Build(records *table.Table, r catalog.Recipe) (*table.Table, error) {
	var (
		out *table.Table
		err error
	)
	switch r.Kind {
	case catalog.KindCrosstab:
		out, err = e.Crosstab(records, r)
	case catalog.KindSingleMeasure:
		out, err = e.SingleMeasure(records, r)
	case catalog.KindTidy:
		out, err = e.Tidy(records, r)
	case catalog.KindValidation:
		if len(r.Measures) > 0 {
			out, err = e.ValidationCounts(records, r)
		} else {
			out, err = e.ValidationMeasure(records, r)
		}
	default:
		return nil, apperrors.NewInvalidValueError("kind", string(r.Kind), catalog.Kinds)
	}
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Recipe built",
		slog.String("recipe", r.Name),
		slog.String("kind", string(r.Kind)),
		slog.Int("rows", out.Len()),
		slog.Int("columns", out.Width()))
	return out, nil
}

// filtered applies the mandatory and optional record filters of r.
func (e *Engine) filtered(records *table.Table, r catalog.Recipe) (*table.Table, error) {
	return filter.Apply(records, filter.Criteria{
		Year:       e.opts.Year,
		Span:       r.Years(),
		Parts:      r.Parts,
		TableCodes: r.TableCodes,
		Predicate:  r.Filter,
	})
}

// withSortKeys appends the sort keys that are not already row columns.
// The appended keys are returned separately so they can be dropped after
// sorting.
func withSortKeys(rows, sortOn []string) ([]string, []string) {
	all := append([]string(nil), rows...)
	var sortOnly []string
	for _, k := range sortOn {
		if !contains(all, k) {
			all = append(all, k)
			sortOnly = append(sortOnly, k)
		}
	}
	return all, sortOnly
}

// yearsIn returns the distinct year labels of t, oldest first.
func yearsIn(t *table.Table) []string {
	var labels []string
	for _, v := range t.Unique(filter.YearColumn) {
		if s, ok := v.Text(); ok {
			labels = append(labels, s)
		}
	}
	sort.Strings(labels)
	return labels
}

// forYear keeps the rows of one year.
func forYear(t *table.Table, year string) (*table.Table, error) {
	return t.In(filter.YearColumn, []string{year})
}

// withExpected injects SDR expected rows year by year.
func (e *Engine) withExpected(t *table.Table, tableCodes []string) (*table.Table, error) {
	var parts []*table.Table
	for _, y := range yearsIn(t) {
		year, err := forYear(t, y)
		if err != nil {
			return nil, err
		}
		withSDR, err := measures.SDRExpected(year, tableCodes, y, e.opts.Multipliers)
		if err != nil {
			return nil, err
		}
		parts = append(parts, withSDR)
	}
	if len(parts) == 0 {
		return t, nil
	}
	return table.Concat(parts...), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// concat returns a new slice holding a followed by b.
func concat(a, b []string) []string {
	return append(append(make([]string, 0, len(a)+len(b)), a...), b...)
}
