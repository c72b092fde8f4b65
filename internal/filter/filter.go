// Package filter selects the working subset of records for one output.
package filter

import (
	"bspub/internal/table"
	"bspub/internal/years"
)

// Standard record columns used by the mandatory filters.
const (
	YearColumn      = "CollectionYearRange"
	PartColumn      = "Part"
	TableCodeColumn = "Table_Code"
)

// Criteria are the filters applied to the record feed. Nil Parts or
// TableCodes disable that filter; an empty Predicate disables the free-form
// expression.
type Criteria struct {
	Year       string
	Span       int
	Parts      []string
	TableCodes []string
	Predicate  string
}

// Apply returns the rows of t that fall in the year range and match every
// configured filter. The input table is not modified.
func Apply(t *table.Table, c Criteria) (*table.Table, error) {
	labels, err := years.Range(c.Year, c.Span)
	if err != nil {
		return nil, err
	}
	out, err := t.In(YearColumn, labels)
	if err != nil {
		return nil, err
	}
	if c.Parts != nil {
		if out, err = out.In(PartColumn, c.Parts); err != nil {
			return nil, err
		}
	}
	if c.TableCodes != nil {
		if out, err = out.In(TableCodeColumn, c.TableCodes); err != nil {
			return nil, err
		}
	}
	if c.Predicate == "" {
		return out, nil
	}
	return Where(out, c.Predicate)
}

// Where keeps the rows for which expr holds.
func Where(t *table.Table, expr string) (*table.Table, error) {
	p, err := Compile(expr, t.Columns())
	if err != nil {
		return nil, err
	}
	return t.FilterErr(p.Eval)
}
