// Package pivot builds summed crosstabs from long-format records.
package pivot

import (
	"fmt"
	"sort"
	"strings"

	apperrors "bspub/internal/errors"
	"bspub/internal/table"
)

// GrandTotal labels margin rows and columns.
const GrandTotal = "Grand_total"

// DefaultValue is the value column used when Options.Value is empty.
const DefaultValue = "Value"

// Options configures Sum.
type Options struct {
	// Rows are the row key columns. At least one is required.
	Rows []string
	// Column is the optional column dimension. Its distinct values become
	// output columns.
	Column string
	// Value is the summed column.
	Value string
	// Margins adds a Grand_total row and, with a column dimension, a
	// Grand_total column.
	Margins bool
}

// Sum groups t by the row keys and column value and sums the value column.
// Row keys and column values are sorted ascending with margins last. Cells
// with no contributing records are 0. Without a column dimension the result
// has one summed column named after the value column.
func Sum(t *table.Table, opts Options) (*table.Table, error) {
	value := opts.Value
	if value == "" {
		value = DefaultValue
	}
	if len(opts.Rows) == 0 {
		return nil, apperrors.NewConfigError("pivot needs at least one row column", nil)
	}
	need := append(append([]string(nil), opts.Rows...), value)
	if opts.Column != "" {
		need = append(need, opts.Column)
	}
	if err := t.Require(need...); err != nil {
		return nil, err
	}

	type cellKey struct{ row, col string }
	sums := make(map[cellKey]float64)
	rowKeys := make(map[string][]table.Value)
	colKeys := make(map[string]table.Value)
	rowTotals := make(map[string]float64)
	colTotals := make(map[string]float64)
	var grand float64

	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		kv := make([]table.Value, len(opts.Rows))
		for k, c := range opts.Rows {
			kv[k], _ = r.Get(c)
		}
		rk := encode(kv)
		rowKeys[rk] = kv

		ck := ""
		if opts.Column != "" {
			cv, _ := r.Get(opts.Column)
			if cv.IsNull() {
				continue
			}
			ck = cv.String()
			colKeys[ck] = cv
		}

		v, _ := r.Get(value)
		var f float64
		switch v.Kind() {
		case table.KindNumber:
			f, _ = v.Float()
		case table.KindString:
			return nil, apperrors.NewDataQualityError(
				fmt.Sprintf("cannot sum non-numeric value %q in column %s", v.String(), value), nil)
		}
		sums[cellKey{rk, ck}] += f
		rowTotals[rk] += f
		colTotals[ck] += f
		grand += f
	}

	rows := sortedKeys(rowKeys)
	var cols []string
	if opts.Column != "" {
		cols = make([]string, 0, len(colKeys))
		for k := range colKeys {
			cols = append(cols, k)
		}
		sort.Slice(cols, func(a, b int) bool {
			return table.Compare(colKeys[cols[a]], colKeys[cols[b]]) < 0
		})
	}

	columns := append([]string(nil), opts.Rows...)
	if opts.Column == "" {
		columns = append(columns, value)
	} else {
		columns = append(columns, cols...)
		if opts.Margins {
			columns = append(columns, GrandTotal)
		}
	}

	out := make([][]table.Value, 0, len(rows)+1)
	for _, rk := range rows {
		row := append([]table.Value(nil), rowKeys[rk]...)
		if opts.Column == "" {
			row = append(row, table.Num(rowTotals[rk]))
		} else {
			for _, ck := range cols {
				row = append(row, table.Num(sums[cellKey{rk, ck}]))
			}
			if opts.Margins {
				row = append(row, table.Num(rowTotals[rk]))
			}
		}
		out = append(out, row)
	}
	if opts.Margins {
		row := make([]table.Value, len(opts.Rows))
		row[0] = table.Str(GrandTotal)
		for k := 1; k < len(row); k++ {
			row[k] = table.Str("")
		}
		if opts.Column == "" {
			row = append(row, table.Num(grand))
		} else {
			for _, ck := range cols {
				row = append(row, table.Num(colTotals[ck]))
			}
			row = append(row, table.Num(grand))
		}
		out = append(out, row)
	}
	result, err := table.New(columns, out)
	if err != nil {
		return nil, apperrors.NewConfigError("pivot column values collide with row columns", err)
	}
	return result, nil
}

func encode(kv []table.Value) string {
	var b strings.Builder
	for _, v := range kv {
		fmt.Fprintf(&b, "%d:%s\x00", v.Kind(), v.String())
	}
	return b.String()
}

func sortedKeys(m map[string][]table.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		ka, kb := m[keys[a]], m[keys[b]]
		for i := range ka {
			if c := table.Compare(ka[i], kb[i]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return keys
}
