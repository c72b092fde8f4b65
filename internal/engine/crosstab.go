package engine

import (
	"fmt"

	apperrors "bspub/internal/errors"
	"bspub/internal/catalog"
	"bspub/internal/filter"
	"bspub/internal/measures"
	"bspub/internal/ordering"
	"bspub/internal/pivot"
	"bspub/internal/subgroup"
	"bspub/internal/table"
)

// transposeHeader holds the former column names while measures are derived
// across rows.
const transposeHeader = "index"

// parentCodeColumn marks outputs broken down by region.
const parentCodeColumn = "Parent_Org_Code"

// notPublished replaces measures that have no meaning above local level.
const notPublished = ":"

// nonOperativeRates cannot be published for regions or England.
var nonOperativeRates = []string{"Non-op_diag_rate_invasive", "Non-op_diag_rate_non-invasive"}

// Crosstab builds a crosstab for each year of the series and joins them.
// Measures named in the column order, or in the row order when measures
// are rows, are derived after aggregation.
func (e *Engine) Crosstab(records *table.Table, r catalog.Recipe) (*table.Table, error) {
	rows, sortOnly := withSortKeys(r.Rows, r.SortOn)
	if r.MeasureAsRows && (len(r.Rows) != 1 || len(sortOnly) > 0) {
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("%s: measures as rows needs exactly one row column and no extra sort keys", r.Name), nil)
	}
	data, err := e.filtered(records, r)
	if err != nil {
		return nil, err
	}

	columnOrder := crosstabColumns(r)
	suffixYears := r.Years() > 1 && !contains(rows, filter.YearColumn)
	withSDR := contains(columnOrder, "SDR")

	var parts []*table.Table
	for _, y := range yearsIn(data) {
		year, err := forYear(data, y)
		if err != nil {
			return nil, err
		}
		if withSDR {
			if year, err = measures.SDRExpected(year, r.TableCodes, y, e.opts.Multipliers); err != nil {
				return nil, err
			}
		}
		part, err := e.crosstabYear(year, r, rows, columnOrder)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", r.Name, y, err)
		}
		if suffixYears {
			names := make(map[string]string, len(columnOrder))
			for _, c := range columnOrder {
				names[c] = c + " " + y
			}
			if part, err = part.Rename(names); err != nil {
				return nil, err
			}
		}
		parts = append(parts, part)
	}

	combined, err := combineYears(parts, rows, columnOrder)
	if err != nil {
		return nil, err
	}
	return finish(combined, r, sortOnly)
}

// crosstabColumns resolves the published value columns. Without a column
// dimension or an order the single summed column is kept; an explicit
// empty order keeps the row labels only.
func crosstabColumns(r catalog.Recipe) []string {
	switch {
	case r.ColumnOrder != nil:
		return r.ColumnOrder
	case r.Columns == "":
		return []string{pivot.DefaultValue}
	default:
		return []string{pivot.GrandTotal}
	}
}

func (e *Engine) crosstabYear(year *table.Table, r catalog.Recipe, rows, columnOrder []string) (*table.Table, error) {
	agg, err := pivot.Sum(year, pivot.Options{Rows: rows, Column: r.Columns, Margins: true})
	if err != nil {
		return nil, err
	}
	if agg, err = subgroup.AddRows(agg, rows, r.RowSubgroups); err != nil {
		return nil, err
	}
	if agg, err = subgroup.AddColumns(agg, r.ColumnSubgroups); err != nil {
		return nil, err
	}

	if r.MeasureAsRows {
		turned, err := agg.Transpose(rows[0], transposeHeader)
		if err != nil {
			return nil, err
		}
		if turned, err = e.deriver.Derive(turned, r.RowOrder); err != nil {
			return nil, err
		}
		if agg, err = turned.Transpose(transposeHeader, rows[0]); err != nil {
			return nil, err
		}
	}
	if agg, err = e.deriver.Derive(agg, columnOrder); err != nil {
		return nil, err
	}

	if contains(rows, parentCodeColumn) {
		agg = measures.ReplaceColumns(agg, intersect(nonOperativeRates, columnOrder), notPublished)
	}
	return agg.Select(concat(rows, columnOrder)...)
}

// combineYears stacks the yearly parts when the year is a row column and
// joins them on the row columns otherwise.
func combineYears(parts []*table.Table, rows, columnOrder []string) (*table.Table, error) {
	if len(parts) == 0 {
		return table.Empty(concat(rows, columnOrder)...), nil
	}
	if contains(rows, filter.YearColumn) {
		return table.Concat(parts...), nil
	}
	out := parts[0]
	for _, p := range parts[1:] {
		var err error
		if out, err = table.OuterJoin(out, p, rows...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// finish orders rows, hides invisible ones, renames columns and drops the
// row labels when they are not published.
func finish(t *table.Table, r catalog.Recipe, sortOnly []string) (*table.Table, error) {
	opts := ordering.Options{
		SortKeys:    r.SortOn,
		DropColumns: sortOnly,
		Visible:     r.Visible,
		Rename:      r.Rename,
	}
	if r.RowOrder != nil && len(r.Rows) > 0 {
		opts.RowColumn = r.Rows[0]
		opts.RowOrder = r.RowOrder
	}
	out, err := ordering.Apply(t, opts)
	if err != nil {
		return nil, err
	}
	if r.RowLabels() {
		return out, nil
	}
	labels := make([]string, len(r.Rows))
	for i, c := range r.Rows {
		if to, ok := r.Rename[c]; ok {
			c = to
		}
		labels[i] = c
	}
	return out.Drop(labels...), nil
}

func intersect(list, with []string) []string {
	var out []string
	for _, v := range list {
		if contains(with, v) {
			out = append(out, v)
		}
	}
	return out
}
