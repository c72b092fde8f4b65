package engine

import (
	"fmt"

	apperrors "bspub/internal/errors"
	"bspub/internal/catalog"
	"bspub/internal/filter"
	"bspub/internal/measures"
	"bspub/internal/table"
)

// Output builds every content of o, stacks them by column name, applies the
// output updates and fills the remaining nulls with the group's token.
func (e *Engine) Output(records *table.Table, g *catalog.Group, o catalog.Output) (*table.Table, error) {
	parts := make([]*table.Table, 0, len(o.Contents))
	for _, r := range o.Contents {
		t, err := e.Build(records, r)
		if err != nil {
			return nil, fmt.Errorf("content %s: %w", r.Name, err)
		}
		parts = append(parts, t)
	}
	out := table.Concat(parts...)

	for _, u := range o.Updates {
		var err error
		if out, err = e.Update(out, g.Collection, u); err != nil {
			return nil, fmt.Errorf("update %s: %w", u.Kind, err)
		}
	}

	token := g.NotApplicable
	if token == "" {
		token = e.opts.NotApplicable
	}
	return out.FillNull(table.Str(token)), nil
}

// Update applies one output-level update.
func (e *Engine) Update(t *table.Table, collection string, u catalog.Update) (*table.Table, error) {
	switch u.Kind {
	case catalog.UpdateColumnDifference:
		name := u.Column
		if name == "" {
			name = measures.DefaultDifferenceColumn
		}
		return measures.ColumnDifference(t, name)
	case catalog.UpdateDashboardTranspose:
		return DashboardTranspose(t, u.Breakdown)
	case catalog.UpdateCheckListFlag:
		flags, ok := e.opts.FlagSets[collection][u.FlagSet]
		if !ok {
			return nil, apperrors.NewConfigError(
				fmt.Sprintf("flag set %s is not configured for %s", u.FlagSet, collection), nil)
		}
		return measures.CheckListFlag(t, u.Column, flags, u.IfTrue, u.IfFalse)
	}
	return nil, apperrors.NewInvalidValueError("update", u.Kind, catalog.UpdateKinds)
}

// DashboardTranspose turns stacked local, regional and national rows into
// local rows carrying the regional and national measures as extra columns.
// Local rows have an organisation name, regional rows only a parent code and
// national rows neither. Columns left empty by a level are dropped before
// the levels are joined.
func DashboardTranspose(t *table.Table, breakdown []string) (*table.Table, error) {
	if err := t.Require(concat([]string{filter.YearColumn, parentCodeColumn, orgNameColumn}, breakdown)...); err != nil {
		return nil, err
	}
	isNull := func(r table.Row, c string) bool {
		v, _ := r.Get(c)
		return v.IsNull()
	}
	local := dropEmptyColumns(t.Filter(func(r table.Row) bool {
		return !isNull(r, orgNameColumn)
	}))
	region := dropEmptyColumns(t.Filter(func(r table.Row) bool {
		return isNull(r, orgNameColumn) && !isNull(r, parentCodeColumn)
	}))
	national := dropEmptyColumns(t.Filter(func(r table.Row) bool {
		return isNull(r, parentCodeColumn)
	}))

	out := local
	var err error
	if region.Len() > 0 {
		if out, err = table.LeftJoin(out, region, concat([]string{filter.YearColumn, parentCodeColumn}, breakdown)...); err != nil {
			return nil, err
		}
	}
	if national.Len() > 0 {
		if out, err = table.LeftJoin(out, national, concat([]string{filter.YearColumn}, breakdown)...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// dropEmptyColumns removes columns holding no value in any row.
func dropEmptyColumns(t *table.Table) *table.Table {
	var empty []string
	for _, c := range t.Columns() {
		values, _ := t.Column(c)
		hasValue := false
		for _, v := range values {
			if !v.IsNull() {
				hasValue = true
				break
			}
		}
		if !hasValue {
			empty = append(empty, c)
		}
	}
	return t.Drop(empty...)
}
