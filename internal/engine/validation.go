package engine

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "bspub/internal/errors"
	"bspub/internal/catalog"
	"bspub/internal/filter"
	"bspub/internal/measures"
	"bspub/internal/ordering"
	"bspub/internal/pivot"
	"bspub/internal/subgroup"
	"bspub/internal/table"
)

// orgNameColumn holds local authority and screening unit names.
const orgNameColumn = "Org_Name"

// upperCaseTriggers are the KC63 measures whose local authority names are
// published in several casings across years.
var upperCaseTriggers = []string{"Women_eligible", "Women_screened_less3yrs", "Coverage"}

var upper = cases.Upper(language.English)

// upperOrgNames folds organisation names to upper case so one authority
// spelt differently across years stays on one row.
func upperOrgNames(t *table.Table, shown []string) *table.Table {
	if !t.Has(orgNameColumn) || len(intersect(upperCaseTriggers, shown)) == 0 {
		return t
	}
	return t.WithColumn(orgNameColumn, func(r table.Row) table.Value {
		v, _ := r.Get(orgNameColumn)
		if s, ok := v.Text(); ok {
			return table.Str(upper.String(s))
		}
		return v
	})
}

// ValidationCounts builds a time series of raw counts with years as
// columns and appends the requested validation columns.
func (e *Engine) ValidationCounts(records *table.Table, r catalog.Recipe) (*table.Table, error) {
	if len(r.Rows) == 0 || len(r.Measures) == 0 {
		return nil, apperrors.NewConfigError(fmt.Sprintf("%s: validation outputs need rows and measures", r.Name), nil)
	}
	data, err := e.filtered(upperOrgNames(records, r.Measures), r)
	if err != nil {
		return nil, err
	}
	if data, err = data.In(measures.MeasureColumn, r.Measures); err != nil {
		return nil, err
	}
	if data.Len() == 0 {
		return table.Empty(r.Rows...), nil
	}

	agg, err := pivot.Sum(data, pivot.Options{Rows: r.Rows, Column: filter.YearColumn})
	if err != nil {
		return nil, err
	}
	if agg, err = subgroup.AddRows(agg, r.Rows, r.RowSubgroups); err != nil {
		return nil, err
	}
	if len(r.SortOn) > 0 {
		if agg, err = agg.SortBy(r.SortOn...); err != nil {
			return nil, err
		}
	}
	out, err := e.validator.Apply(agg, r.Validations, r.Measures)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Name, err)
	}
	return out, nil
}

// ValidationMeasure builds a time series of one derived measure with years
// as columns and appends the requested validation columns.
func (e *Engine) ValidationMeasure(records *table.Table, r catalog.Recipe) (*table.Table, error) {
	if len(r.Rows) == 0 || r.Measure == "" {
		return nil, apperrors.NewConfigError(fmt.Sprintf("%s: validation outputs need rows and a measure", r.Name), nil)
	}
	shown := []string{r.Measure}
	data, err := e.filtered(upperOrgNames(records, shown), r)
	if err != nil {
		return nil, err
	}
	if data.Len() == 0 {
		return table.Empty(r.Rows...), nil
	}
	keys := concat(r.Rows, []string{filter.YearColumn})

	agg, err := pivot.Sum(data, pivot.Options{Rows: keys, Column: measures.MeasureColumn})
	if err != nil {
		return nil, err
	}
	if agg, err = pivot.Subtotals(agg, keys); err != nil {
		return nil, err
	}
	if agg, err = subgroup.AddRows(agg, keys, r.RowSubgroups); err != nil {
		return nil, err
	}
	if agg, err = e.deriver.Derive(agg, shown); err != nil {
		return nil, fmt.Errorf("%s: %w", r.Name, err)
	}
	if agg, err = agg.Select(concat(keys, shown)...); err != nil {
		return nil, err
	}

	series, err := pivot.Spread(agg, r.Rows, filter.YearColumn, r.Measure)
	if err != nil {
		return nil, err
	}
	series = series.Drop(pivot.GrandTotal)

	out, err := e.validator.Apply(series, r.Validations, shown)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Name, err)
	}
	if len(r.SortOn) == 0 {
		return out, nil
	}
	return ordering.Apply(out, ordering.Options{SortKeys: r.SortOn})
}
