package table

import (
	"fmt"
	"sort"
	"strings"

	apperrors "bspub/internal/errors"
)

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	rows := make([][]Value, 0, len(t.rows))
	for i, r := range t.rows {
		if keep(Row{t: t, i: i}) {
			rows = append(rows, r)
		}
	}
	return build(t.columns, rows)
}

// FilterErr is Filter with a fallible predicate. The first error stops the
// scan.
func (t *Table) FilterErr(keep func(Row) (bool, error)) (*Table, error) {
	rows := make([][]Value, 0, len(t.rows))
	for i, r := range t.rows {
		ok, err := keep(Row{t: t, i: i})
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, r)
		}
	}
	return build(t.columns, rows), nil
}

// In keeps the rows whose column value is one of the given labels.
func (t *Table) In(column string, labels []string) (*Table, error) {
	if err := t.Require(column); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return t.Filter(func(r Row) bool {
		v, _ := r.Get(column)
		s, ok := v.Text()
		if !ok {
			return false
		}
		_, hit := set[s]
		return hit
	}), nil
}

// WithoutLabel removes every row that holds label in any column.
func (t *Table) WithoutLabel(label string) *Table {
	return t.Filter(func(r Row) bool { return !r.Contains(label) })
}

// Select returns the named columns in the given order.
func (t *Table) Select(columns ...string) (*Table, error) {
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	idx := make([]int, len(columns))
	for k, c := range columns {
		idx[k] = t.index[c]
	}
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		out := make([]Value, len(idx))
		for k, j := range idx {
			out[k] = r[j]
		}
		rows[i] = out
	}
	return New(columns, rows)
}

// Drop removes the named columns. Absent names are ignored.
func (t *Table) Drop(columns ...string) *Table {
	drop := make(map[string]bool, len(columns))
	for _, c := range columns {
		drop[c] = true
	}
	keep := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	out, _ := t.Select(keep...)
	return out
}

// WithColumn sets column name to fn(row) for every row, replacing an
// existing column in place or appending a new one.
func (t *Table) WithColumn(name string, fn func(Row) Value) *Table {
	out, _ := t.WithColumnErr(name, func(r Row) (Value, error) { return fn(r), nil })
	return out
}

// WithColumnErr is WithColumn with a fallible generator.
func (t *Table) WithColumnErr(name string, fn func(Row) (Value, error)) (*Table, error) {
	j, exists := t.index[name]
	columns := t.columns
	if !exists {
		columns = append(append([]string(nil), t.columns...), name)
	}
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		v, err := fn(Row{t: t, i: i})
		if err != nil {
			return nil, err
		}
		out := make([]Value, len(columns))
		copy(out, r)
		if exists {
			out[j] = v
		} else {
			out[len(columns)-1] = v
		}
		rows[i] = out
	}
	return build(columns, rows), nil
}

// WithConstant sets every cell of the column to v.
func (t *Table) WithConstant(name string, v Value) *Table {
	return t.WithColumn(name, func(Row) Value { return v })
}

// InsertColumn inserts a column at position pos filled with v. Positions
// beyond the last column append.
func (t *Table) InsertColumn(pos int, name string, v Value) (*Table, error) {
	if t.Has(name) {
		return nil, fmt.Errorf("column %q already exists", name)
	}
	if pos < 0 {
		return nil, fmt.Errorf("invalid column position %d", pos)
	}
	if pos > len(t.columns) {
		pos = len(t.columns)
	}
	columns := make([]string, 0, len(t.columns)+1)
	columns = append(columns, t.columns[:pos]...)
	columns = append(columns, name)
	columns = append(columns, t.columns[pos:]...)
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		out := make([]Value, 0, len(columns))
		out = append(out, r[:pos]...)
		out = append(out, v)
		out = append(out, r[pos:]...)
		rows[i] = out
	}
	return build(columns, rows), nil
}

// Replace maps string cells of a column through lookup. Cells without an
// entry are kept.
func (t *Table) Replace(column string, lookup map[string]string) *Table {
	if !t.Has(column) {
		return t
	}
	return t.WithColumn(column, func(r Row) Value {
		v, _ := r.Get(column)
		if s, ok := v.Text(); ok {
			if to, hit := lookup[s]; hit {
				return Str(to)
			}
		}
		return v
	})
}

// Rename renames columns. Renaming onto an existing column is an error.
func (t *Table) Rename(names map[string]string) (*Table, error) {
	columns := make([]string, len(t.columns))
	for i, c := range t.columns {
		if to, ok := names[c]; ok {
			columns[i] = to
		} else {
			columns[i] = c
		}
	}
	hdr, err := newHeader(columns)
	if err != nil {
		return nil, apperrors.NewConfigError("column rename produces a duplicate column", err)
	}
	hdr.rows = t.rows
	return hdr, nil
}

// FillNull replaces every null cell with v.
func (t *Table) FillNull(v Value) *Table {
	rows := make([][]Value, len(t.rows))
	for i, r := range t.rows {
		out := make([]Value, len(r))
		for j, c := range r {
			if c.IsNull() {
				out[j] = v
			} else {
				out[j] = c
			}
		}
		rows[i] = out
	}
	return build(t.columns, rows)
}

// Unique returns the distinct values of a column in first-seen order.
func (t *Table) Unique(column string) []Value {
	j, ok := t.index[column]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []Value
	for _, r := range t.rows {
		k := keyOf(r[j])
		if !seen[k] {
			seen[k] = true
			out = append(out, r[j])
		}
	}
	return out
}

// SortBy sorts rows ascending by the given columns. The sort is stable.
func (t *Table) SortBy(columns ...string) (*Table, error) {
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	idx := make([]int, len(columns))
	for k, c := range columns {
		idx[k] = t.index[c]
	}
	rows := append([][]Value(nil), t.rows...)
	sort.SliceStable(rows, func(a, b int) bool {
		for _, j := range idx {
			if c := Compare(rows[a][j], rows[b][j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return build(t.columns, rows), nil
}

// Concat stacks tables by column name. The result holds the union of
// columns in first-seen order; cells for columns a table lacks are null.
func Concat(tables ...*Table) *Table {
	var columns []string
	seen := make(map[string]bool)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.columns {
			if !seen[c] {
				seen[c] = true
				columns = append(columns, c)
			}
		}
	}
	out := build(columns, nil)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, r := range t.rows {
			row := make([]Value, len(columns))
			for j, c := range t.columns {
				row[out.index[c]] = r[j]
			}
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// GroupSum groups rows by the key columns and sums every other column.
// Groups are returned sorted ascending by key. Nulls are skipped and a group
// with no numbers sums to 0. A string in a summed column is a data-quality
// error.
func (t *Table) GroupSum(keys ...string) (*Table, error) {
	if err := t.Require(keys...); err != nil {
		return nil, err
	}
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var values []string
	for _, c := range t.columns {
		if !isKey[c] {
			values = append(values, c)
		}
	}
	keyIdx := make([]int, len(keys))
	for k, c := range keys {
		keyIdx[k] = t.index[c]
	}
	valIdx := make([]int, len(values))
	for k, c := range values {
		valIdx[k] = t.index[c]
	}

	type group struct {
		key  []Value
		sums []float64
	}
	groups := make(map[string]*group)
	var order []*group
	for _, r := range t.rows {
		kv := make([]Value, len(keyIdx))
		for k, j := range keyIdx {
			kv[k] = r[j]
		}
		id := rowKey(kv)
		g, ok := groups[id]
		if !ok {
			g = &group{key: kv, sums: make([]float64, len(valIdx))}
			groups[id] = g
			order = append(order, g)
		}
		for k, j := range valIdx {
			switch r[j].Kind() {
			case KindNumber:
				f, _ := r[j].Float()
				g.sums[k] += f
			case KindString:
				return nil, apperrors.NewDataQualityError(
					fmt.Sprintf("cannot sum non-numeric value %q in column %s", r[j].String(), values[k]), nil)
			}
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return compareKeys(order[a].key, order[b].key) < 0
	})
	columns := append(append([]string(nil), keys...), values...)
	rows := make([][]Value, len(order))
	for i, g := range order {
		row := make([]Value, 0, len(columns))
		row = append(row, g.key...)
		for _, s := range g.sums {
			row = append(row, Num(s))
		}
		rows[i] = row
	}
	return build(columns, rows), nil
}

// Transpose turns the values of keyColumn into column names and every other
// column into a row. The former column names are held in headerColumn.
// Key values must be distinct and non-null.
func (t *Table) Transpose(keyColumn, headerColumn string) (*Table, error) {
	if err := t.Require(keyColumn); err != nil {
		return nil, err
	}
	kj := t.index[keyColumn]
	columns := []string{headerColumn}
	for _, r := range t.rows {
		if r[kj].IsNull() {
			return nil, apperrors.NewDataQualityError(fmt.Sprintf("cannot transpose on null %s value", keyColumn), nil)
		}
		columns = append(columns, r[kj].String())
	}
	hdr, err := newHeader(columns)
	if err != nil {
		return nil, apperrors.NewDataQualityError(fmt.Sprintf("cannot transpose on %s", keyColumn), err)
	}
	for j, c := range t.columns {
		if j == kj {
			continue
		}
		row := make([]Value, 0, len(columns))
		row = append(row, Str(c))
		for _, r := range t.rows {
			row = append(row, r[j])
		}
		hdr.rows = append(hdr.rows, row)
	}
	return hdr, nil
}

// String renders the table as tab-separated text, mainly for test failure
// output.
func (t *Table) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(t.columns, "\t"))
	for _, r := range t.rows {
		b.WriteByte('\n')
		for j, v := range r {
			if j > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(v.String())
		}
	}
	return b.String()
}

func keyOf(v Value) string {
	switch v.kind {
	case KindNumber:
		return "n" + v.String()
	case KindString:
		return "s" + v.str
	default:
		return "0"
	}
}

func rowKey(vs []Value) string {
	var b strings.Builder
	for _, v := range vs {
		b.WriteString(keyOf(v))
		b.WriteByte(0)
	}
	return b.String()
}

func compareKeys(a, b []Value) int {
	for k := range a {
		if c := Compare(a[k], b[k]); c != 0 {
			return c
		}
	}
	return 0
}
