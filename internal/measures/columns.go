package measures

import (
	apperrors "bspub/internal/errors"
	"bspub/internal/table"
)

// DefaultDifferenceColumn names the column added by ColumnDifference.
const DefaultDifferenceColumn = "Difference"

// ColumnDifference appends name holding the last column minus the one
// before it. Both columns must be numeric.
func ColumnDifference(t *table.Table, name string) (*table.Table, error) {
	cols := t.Columns()
	if len(cols) < 2 {
		return nil, apperrors.NewConfigError("a difference calculation is being attempted on less than 2 columns", nil)
	}
	from, to := cols[len(cols)-2], cols[len(cols)-1]
	return t.WithColumnErr(name, func(r table.Row) (table.Value, error) {
		a, aNull, err := operand(r, from, name)
		if err != nil {
			return table.Null(), err
		}
		b, bNull, err := operand(r, to, name)
		if err != nil {
			return table.Null(), err
		}
		if aNull || bNull {
			return table.Null(), nil
		}
		return table.Num(b - a), nil
	})
}

// Flag describes a column set from list membership of another column.
type Flag struct {
	Name   string
	Values []string
}

// CheckListFlag adds one column per flag holding ifTrue where the check
// column value is in the flag's list and ifFalse elsewhere.
func CheckListFlag(t *table.Table, checkColumn string, flags []Flag, ifTrue, ifFalse string) (*table.Table, error) {
	out := t
	for _, f := range flags {
		if !out.Has(checkColumn) {
			return nil, apperrors.NewMissingColumnsError([]apperrors.MissingColumn{{Column: checkColumn, Required: f.Name}})
		}
		set := make(map[string]bool, len(f.Values))
		for _, v := range f.Values {
			set[v] = true
		}
		out = out.WithColumn(f.Name, func(r table.Row) table.Value {
			v, _ := r.Get(checkColumn)
			if s, ok := v.Text(); ok && set[s] {
				return table.Str(ifTrue)
			}
			return table.Str(ifFalse)
		})
	}
	return out, nil
}

// ReplaceColumns overwrites every cell of the named columns that exist with
// the given label.
func ReplaceColumns(t *table.Table, columns []string, label string) *table.Table {
	out := t
	for _, c := range columns {
		if out.Has(c) {
			out = out.WithConstant(c, table.Str(label))
		}
	}
	return out
}
