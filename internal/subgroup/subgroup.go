// Package subgroup adds summed categories alongside the granular ones they
// are built from.
package subgroup

import (
	"fmt"

	apperrors "bspub/internal/errors"
	"bspub/internal/table"
)

// Spec adds a row category Label to the Target column, summing the rows
// whose Target value is one of Sources.
type Spec struct {
	Target  string   `yaml:"target" validate:"required"`
	Label   string   `yaml:"label" validate:"required"`
	Sources []string `yaml:"sources" validate:"required,min=1"`
}

// ColumnSpec adds a column Name holding the row-wise sum of Sources.
type ColumnSpec struct {
	Name    string   `yaml:"name" validate:"required"`
	Sources []string `yaml:"sources" validate:"required,min=1"`
}

// AddRows appends one block of summed rows per spec, in spec order. Each
// block is grouped by the full breakdown, so every other breakdown key is
// held fixed. Existing rows are kept unchanged. Every column outside the
// breakdown is summed. A spec sees the rows added by the specs before it,
// so a later subgroup on another column also splits earlier subgroups.
func AddRows(t *table.Table, breakdown []string, specs []Spec) (*table.Table, error) {
	if len(specs) == 0 {
		return t, nil
	}
	if err := t.Require(breakdown...); err != nil {
		return nil, err
	}
	out := t
	for _, s := range specs {
		if !contains(breakdown, s.Target) {
			return nil, apperrors.NewConfigError(
				fmt.Sprintf("subgroup target %s is not part of the breakdown %v", s.Target, breakdown), nil)
		}
		selected, err := out.In(s.Target, s.Sources)
		if err != nil {
			return nil, err
		}
		if selected.Len() == 0 {
			continue
		}
		summed, err := selected.WithConstant(s.Target, table.Str(s.Label)).GroupSum(breakdown...)
		if err != nil {
			return nil, fmt.Errorf("subgroup %s: %w", s.Label, err)
		}
		out = table.Concat(out, summed)
	}
	return out, nil
}

// AddColumns appends one summed column per spec, in spec order. Null cells
// count as zero.
func AddColumns(t *table.Table, specs []ColumnSpec) (*table.Table, error) {
	out := t
	for _, s := range specs {
		if err := out.Require(s.Sources...); err != nil {
			return nil, err
		}
		sources := s.Sources
		next, err := out.WithColumnErr(s.Name, func(r table.Row) (table.Value, error) {
			var sum float64
			for _, c := range sources {
				v, _ := r.Get(c)
				switch v.Kind() {
				case table.KindNumber:
					f, _ := v.Float()
					sum += f
				case table.KindString:
					return table.Null(), apperrors.NewDataQualityError(
						fmt.Sprintf("cannot sum non-numeric value %q in column %s", v.String(), c), nil)
				}
			}
			return table.Num(sum), nil
		})
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
