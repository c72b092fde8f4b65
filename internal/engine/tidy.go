package engine

import (
	"fmt"

	apperrors "bspub/internal/errors"
	"bspub/internal/catalog"
	"bspub/internal/filter"
	"bspub/internal/measures"
	"bspub/internal/pivot"
	"bspub/internal/subgroup"
	"bspub/internal/table"
)

// Organisation values written at national and regional level.
const (
	NationalCode    = "E92000001"
	NationalName    = "England"
	NationalOrgType = "National"
	RegionalOrgType = "Region"
)

// orgColumns names the organisation columns of a collection.
type orgColumns struct {
	parentCode string
	orgCode    string
	parentName string
	orgName    string
	orgType    string
}

func orgColumnsFor(collection string) orgColumns {
	c := orgColumns{
		parentCode: "Parent_Org_Code",
		orgCode:    "Org_Code",
		parentName: "Parent_Org_Name",
		orgName:    "Org_Name",
		orgType:    "Org_Type",
	}
	if collection == catalog.KC63 {
		c.parentCode = "Parent_OrgONSCode"
		c.orgCode = "Org_ONSCode"
	}
	return c
}

// breakdown lists the organisation columns published by a collection. KC62
// has no published organisation code.
func (c orgColumns) breakdown(collection string) []string {
	if collection == catalog.KC63 {
		return []string{c.parentCode, c.parentName, c.orgCode, c.orgName, c.orgType}
	}
	return []string{c.parentCode, c.parentName, c.orgName, c.orgType}
}

// atLevel overwrites lower level organisation values with those of the
// requested level.
func (c orgColumns) atLevel(t *table.Table, level string) *table.Table {
	switch level {
	case catalog.OrgNational:
		t = measures.ReplaceColumns(t, []string{c.parentCode, c.orgCode}, NationalCode)
		t = measures.ReplaceColumns(t, []string{c.parentName, c.orgName}, NationalName)
		return t.WithConstant(c.orgType, table.Str(NationalOrgType))
	case catalog.OrgRegional:
		t = copyColumn(t, c.parentCode, c.orgCode)
		t = copyColumn(t, c.parentName, c.orgName)
		return t.WithConstant(c.orgType, table.Str(RegionalOrgType))
	}
	return t
}

func copyColumn(t *table.Table, from, to string) *table.Table {
	if !t.Has(from) {
		return t
	}
	return t.WithColumn(to, func(r table.Row) table.Value {
		v, _ := r.Get(from)
		return v
	})
}

// Tidy builds a long CSV-ready table with one row per year, organisation
// and breakdown, and one column per measure.
func (e *Engine) Tidy(records *table.Table, r catalog.Recipe) (*table.Table, error) {
	if !contains(catalog.OrgLevels, r.OrgLevel) {
		return nil, apperrors.NewInvalidValueError("org_level", r.OrgLevel, catalog.OrgLevels)
	}
	if r.MeasureColumn == "" || len(r.Measures) == 0 {
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("%s: tidy outputs need measure_column and measures", r.Name), nil)
	}
	org := orgColumnsFor(r.Collection)
	breakdown := concat(concat([]string{filter.YearColumn}, org.breakdown(r.Collection)), r.Breakdown)
	breakdown, sortOnly := withSortKeys(breakdown, r.SortOn)

	data, err := e.filtered(records, r)
	if err != nil {
		return nil, err
	}
	if data.Len() == 0 {
		return e.finishTidy(table.Empty(concat(breakdown, r.Measures)...), r, sortOnly)
	}
	data = org.atLevel(data, r.OrgLevel)

	if contains(r.Measures, "SDR") {
		if data, err = e.withExpected(data, r.TableCodes); err != nil {
			return nil, err
		}
	}

	agg, err := pivot.Sum(data, pivot.Options{Rows: breakdown, Column: r.MeasureColumn, Margins: true})
	if err != nil {
		return nil, err
	}
	if agg, err = subgroup.AddRows(agg, breakdown, r.RowSubgroups); err != nil {
		return nil, err
	}
	if agg, err = e.deriver.Derive(agg, r.Measures); err != nil {
		return nil, fmt.Errorf("%s: %w", r.Name, err)
	}
	if r.OrgLevel != catalog.OrgLocal {
		agg = measures.ReplaceColumns(agg, intersect(nonOperativeRates, r.Measures), notPublished)
	}
	if agg, err = agg.Select(concat(breakdown, r.Measures)...); err != nil {
		return nil, err
	}
	return e.finishTidy(agg, r, sortOnly)
}

// finishTidy sorts, hides and renames like the other recipes, then fills
// nulls. Without sort keys only the margin rows are removed.
func (e *Engine) finishTidy(t *table.Table, r catalog.Recipe, sortOnly []string) (*table.Table, error) {
	tidy := r
	tidy.RowOrder = nil
	tidy.IncludeRowLabels = nil
	out, err := finish(t, tidy, sortOnly)
	if err != nil {
		return nil, err
	}
	return out.FillNull(table.Str(e.opts.NotApplicable)), nil
}
