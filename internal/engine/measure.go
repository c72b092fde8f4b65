package engine

import (
	"fmt"

	apperrors "bspub/internal/errors"
	"bspub/internal/catalog"
	"bspub/internal/pivot"
	"bspub/internal/subgroup"
	"bspub/internal/table"
)

// SingleMeasure builds a crosstab holding one measure, typically a rate,
// with subtotals over every row and column combination.
func (e *Engine) SingleMeasure(records *table.Table, r catalog.Recipe) (*table.Table, error) {
	if r.Columns == "" || r.MeasureColumn == "" || r.Measure == "" {
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("%s: single measure outputs need columns, measure_column and measure", r.Name), nil)
	}
	rows, sortOnly := withSortKeys(r.Rows, r.SortOn)
	keys := concat(rows, []string{r.Columns})

	columnOrder := r.ColumnOrder
	if columnOrder == nil {
		columnOrder = []string{pivot.GrandTotal}
	}

	data, err := e.filtered(records, r)
	if err != nil {
		return nil, err
	}
	if data.Len() == 0 {
		return finish(table.Empty(concat(rows, columnOrder)...), r, sortOnly)
	}

	agg, err := pivot.Sum(data, pivot.Options{Rows: keys, Column: r.MeasureColumn, Margins: true})
	if err != nil {
		return nil, err
	}
	// margins are rebuilt for every key combination below
	agg = agg.WithoutLabel(pivot.GrandTotal)
	if agg, err = pivot.Subtotals(agg, keys); err != nil {
		return nil, err
	}
	if agg, err = subgroup.AddRows(agg, keys, r.RowSubgroups); err != nil {
		return nil, err
	}
	if agg, err = e.deriver.Derive(agg, []string{r.Measure}); err != nil {
		return nil, fmt.Errorf("%s: %w", r.Name, err)
	}
	if agg, err = agg.Select(concat(keys, []string{r.Measure})...); err != nil {
		return nil, err
	}

	spread, err := pivot.Spread(agg, rows, r.Columns, r.Measure)
	if err != nil {
		return nil, err
	}
	if spread, err = spread.Select(concat(rows, columnOrder)...); err != nil {
		return nil, err
	}
	return finish(spread, r, sortOnly)
}
