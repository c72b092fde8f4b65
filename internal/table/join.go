package table

import (
	"fmt"
	"sort"

	apperrors "bspub/internal/errors"
)

// LeftJoin keeps every row of left in order and appends the non-key columns
// of right. A left row with several matches is repeated once per match; a
// left row without a match gets nulls.
func LeftJoin(left, right *Table, on ...string) (*Table, error) {
	columns, rightCols, err := joinColumns(left, right, on)
	if err != nil {
		return nil, err
	}
	matches := indexRows(right, on)
	var rows [][]Value
	for _, r := range left.rows {
		hits := matches[rowKey(pick(left, r, on))]
		if len(hits) == 0 {
			rows = append(rows, joinRow(r, nil, rightCols))
			continue
		}
		for _, h := range hits {
			rows = append(rows, joinRow(r, right.rows[h], rightCols))
		}
	}
	return build(columns, rows), nil
}

// OuterJoin returns the union of keys from both tables, sorted ascending by
// key, with the non-key columns of each side. Keys present on one side only
// get nulls for the other side's columns.
func OuterJoin(left, right *Table, on ...string) (*Table, error) {
	columns, rightCols, err := joinColumns(left, right, on)
	if err != nil {
		return nil, err
	}
	type bucket struct {
		key   []Value
		left  []int
		right []int
	}
	buckets := make(map[string]*bucket)
	var order []*bucket
	add := func(t *Table, i int, isLeft bool) {
		kv := pick(t, t.rows[i], on)
		id := rowKey(kv)
		b, ok := buckets[id]
		if !ok {
			b = &bucket{key: kv}
			buckets[id] = b
			order = append(order, b)
		}
		if isLeft {
			b.left = append(b.left, i)
		} else {
			b.right = append(b.right, i)
		}
	}
	for i := range left.rows {
		add(left, i, true)
	}
	for i := range right.rows {
		add(right, i, false)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return compareKeys(order[a].key, order[b].key) < 0
	})

	var rows [][]Value
	for _, b := range order {
		lefts := b.left
		if len(lefts) == 0 {
			lefts = []int{-1}
		}
		rights := b.right
		if len(rights) == 0 {
			rights = []int{-1}
		}
		for _, li := range lefts {
			var lr []Value
			if li >= 0 {
				lr = left.rows[li]
			} else {
				lr = make([]Value, len(left.columns))
				for k, c := range on {
					lr[left.index[c]] = b.key[k]
				}
			}
			for _, ri := range rights {
				var rr []Value
				if ri >= 0 {
					rr = right.rows[ri]
				}
				rows = append(rows, joinRow(lr, rr, rightCols))
			}
		}
	}
	return build(columns, rows), nil
}

// OrderBy keeps the rows whose column value is one of order and arranges
// them in that order. An order entry absent from the table yields a row
// holding only that label.
func (t *Table) OrderBy(column string, order []string) (*Table, error) {
	if err := t.Require(column); err != nil {
		return nil, err
	}
	keys := make([][]Value, len(order))
	for i, o := range order {
		keys[i] = []Value{Str(o)}
	}
	dummy := build([]string{column}, keys)
	joined, err := LeftJoin(dummy, t, column)
	if err != nil {
		return nil, err
	}
	return joined.Select(t.columns...)
}

func joinColumns(left, right *Table, on []string) ([]string, []int, error) {
	if err := left.Require(on...); err != nil {
		return nil, nil, err
	}
	if err := right.Require(on...); err != nil {
		return nil, nil, err
	}
	isKey := make(map[string]bool, len(on))
	for _, c := range on {
		isKey[c] = true
	}
	columns := append([]string(nil), left.columns...)
	var rightCols []int
	for j, c := range right.columns {
		if isKey[c] {
			continue
		}
		if left.Has(c) {
			return nil, nil, apperrors.NewConfigError(fmt.Sprintf("column %s is present on both sides of the join", c), nil)
		}
		columns = append(columns, c)
		rightCols = append(rightCols, j)
	}
	return columns, rightCols, nil
}

func indexRows(t *Table, on []string) map[string][]int {
	out := make(map[string][]int, len(t.rows))
	for i, r := range t.rows {
		k := rowKey(pick(t, r, on))
		out[k] = append(out[k], i)
	}
	return out
}

func pick(t *Table, r []Value, columns []string) []Value {
	out := make([]Value, len(columns))
	for k, c := range columns {
		out[k] = r[t.index[c]]
	}
	return out
}

func joinRow(left, right []Value, rightCols []int) []Value {
	row := make([]Value, 0, len(left)+len(rightCols))
	row = append(row, left...)
	for _, j := range rightCols {
		if right == nil {
			row = append(row, Null())
		} else {
			row = append(row, right[j])
		}
	}
	return row
}
