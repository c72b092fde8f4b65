package pivot

import (
	"fmt"
	"sort"

	apperrors "bspub/internal/errors"
	"bspub/internal/table"
)

// Subtotals adds totals and subtotals over every combination of the key
// columns. For each subset of keys, those keys are set to Grand_total and
// the table is grouped by all keys and summed. The empty subset comes first,
// followed by subsets of increasing size in column order.
func Subtotals(t *table.Table, keys []string) (*table.Table, error) {
	if err := t.Require(keys...); err != nil {
		return nil, err
	}
	var parts []*table.Table
	for _, subset := range combinations(keys) {
		replaced := t
		for _, c := range subset {
			replaced = replaced.WithConstant(c, table.Str(GrandTotal))
		}
		grouped, err := replaced.GroupSum(keys...)
		if err != nil {
			return nil, err
		}
		parts = append(parts, grouped)
	}
	return table.Concat(parts...), nil
}

// combinations lists every subset of items ordered by size, each size in
// lexicographic index order.
func combinations(items []string) [][]string {
	out := [][]string{{}}
	for size := 1; size <= len(items); size++ {
		idx := make([]int, size)
		for i := range idx {
			idx[i] = i
		}
		for {
			subset := make([]string, size)
			for i, j := range idx {
				subset[i] = items[j]
			}
			out = append(out, subset)

			i := size - 1
			for i >= 0 && idx[i] == len(items)-size+i {
				i--
			}
			if i < 0 {
				break
			}
			idx[i]++
			for j := i + 1; j < size; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
	return out
}

// Spread reshapes t so the distinct values of column become columns holding
// value, keyed by the row columns. Duplicate cells are averaged over their
// non-null values and cells with no value stay null. Rows and columns are
// sorted ascending.
func Spread(t *table.Table, rows []string, column, value string) (*table.Table, error) {
	if err := t.Require(append(append([]string(nil), rows...), column, value)...); err != nil {
		return nil, err
	}
	type acc struct {
		sum float64
		n   int
	}
	cells := make(map[[2]string]*acc)
	rowKeys := make(map[string][]table.Value)
	colKeys := make(map[string]table.Value)

	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		kv := make([]table.Value, len(rows))
		for k, c := range rows {
			kv[k], _ = r.Get(c)
		}
		cv, _ := r.Get(column)
		if cv.IsNull() {
			continue
		}
		rk, ck := encode(kv), cv.String()
		rowKeys[rk] = kv
		colKeys[ck] = cv

		a, ok := cells[[2]string{rk, ck}]
		if !ok {
			a = &acc{}
			cells[[2]string{rk, ck}] = a
		}
		v, _ := r.Get(value)
		switch v.Kind() {
		case table.KindNumber:
			f, _ := v.Float()
			a.sum += f
			a.n++
		case table.KindString:
			return nil, apperrors.NewDataQualityError(
				fmt.Sprintf("cannot average non-numeric value %q in column %s", v.String(), value), nil)
		}
	}

	rk := sortedKeys(rowKeys)
	cols := make([]string, 0, len(colKeys))
	for k := range colKeys {
		cols = append(cols, k)
	}
	sort.Slice(cols, func(a, b int) bool {
		return table.Compare(colKeys[cols[a]], colKeys[cols[b]]) < 0
	})

	out := make([][]table.Value, len(rk))
	for i, k := range rk {
		row := append([]table.Value(nil), rowKeys[k]...)
		for _, c := range cols {
			a, ok := cells[[2]string{k, c}]
			if !ok || a.n == 0 {
				row = append(row, table.Null())
				continue
			}
			row = append(row, table.Num(a.sum/float64(a.n)))
		}
		out[i] = row
	}
	result, err := table.New(append(append([]string(nil), rows...), cols...), out)
	if err != nil {
		return nil, apperrors.NewConfigError("spread column values collide with row columns", err)
	}
	return result, nil
}

// Melt turns the value columns of t into rows keyed by the id columns. Each
// output row holds the ids, the former column name in variable and its cell
// in value. Rows keep input order, with one block per input row in column
// order. Without explicit value columns every non-id column is melted.
func Melt(t *table.Table, ids []string, variable, value string, columns []string) (*table.Table, error) {
	if err := t.Require(ids...); err != nil {
		return nil, err
	}
	if columns == nil {
		isID := make(map[string]bool, len(ids))
		for _, c := range ids {
			isID[c] = true
		}
		for _, c := range t.Columns() {
			if !isID[c] {
				columns = append(columns, c)
			}
		}
	} else if err := t.Require(columns...); err != nil {
		return nil, err
	}

	out := make([][]table.Value, 0, t.Len()*len(columns))
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		key := make([]table.Value, len(ids))
		for k, c := range ids {
			key[k], _ = r.Get(c)
		}
		for _, c := range columns {
			v, _ := r.Get(c)
			row := append(append(make([]table.Value, 0, len(ids)+2), key...), table.Str(c), v)
			out = append(out, row)
		}
	}
	result, err := table.New(append(append([]string(nil), ids...), variable, value), out)
	if err != nil {
		return nil, apperrors.NewConfigError("melt output columns collide with id columns", err)
	}
	return result, nil
}
