package table

import (
	"fmt"

	apperrors "bspub/internal/errors"
)

// Table is an immutable rectangular set of named columns. Every operation
// returns a new Table and never modifies its receiver.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// New builds a table, copying the given rows. Duplicate column names and
// ragged rows are rejected.
func New(columns []string, rows [][]Value) (*Table, error) {
	t, err := newHeader(columns)
	if err != nil {
		return nil, err
	}
	t.rows = make([][]Value, len(rows))
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(r), len(columns))
		}
		t.rows[i] = append([]Value(nil), r...)
	}
	return t, nil
}

// MustNew is like New but panics on error. Intended for literals in tests
// and fixed lookups.
func MustNew(columns []string, rows ...[]Value) *Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a table with the given columns and no rows.
func Empty(columns ...string) *Table {
	return MustNew(columns)
}

func newHeader(columns []string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	return &Table{columns: append([]string(nil), columns...), index: index}, nil
}

// build wraps rows that the caller owns and will not modify again.
func build(columns []string, rows [][]Value) *Table {
	t, err := newHeader(columns)
	if err != nil {
		panic(err)
	}
	t.rows = rows
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.columns)
}

// Has reports whether the column exists.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Missing returns the subset of columns that are not in the table, in the
// order given.
func (t *Table) Missing(columns ...string) []string {
	var missing []string
	for _, c := range columns {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Require returns a configuration error listing every absent column.
func (t *Table) Require(columns ...string) error {
	missing := t.Missing(columns...)
	if len(missing) == 0 {
		return nil
	}
	list := make([]apperrors.MissingColumn, len(missing))
	for i, c := range missing {
		list[i] = apperrors.MissingColumn{Column: c}
	}
	return apperrors.NewMissingColumnsError(list)
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]Value, bool) {
	j, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, true
}

// Value returns the cell at row i of the named column.
func (t *Table) Value(i int, column string) (Value, bool) {
	j, ok := t.index[column]
	if !ok || i < 0 || i >= len(t.rows) {
		return Null(), false
	}
	return t.rows[i][j], true
}

// Row returns a view of row i.
func (t *Table) Row(i int) Row {
	return Row{t: t, i: i}
}

// Records returns a copy of all rows in column order.
func (t *Table) Records() [][]Value {
	out := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]Value(nil), r...)
	}
	return out
}

// Get returns the cell in the named column.
func (r Row) Get(column string) (Value, bool) {
	return r.t.Value(r.i, column)
}

// Index returns the position of the row in its table.
func (r Row) Index() int {
	return r.i
}

// Values returns a copy of the row in column order.
func (r Row) Values() []Value {
	return append([]Value(nil), r.t.rows[r.i]...)
}

// Contains reports whether any cell of the row is the string label.
func (r Row) Contains(label string) bool {
	for _, v := range r.t.rows[r.i] {
		if v.IsLabel(label) {
			return true
		}
	}
	return false
}
