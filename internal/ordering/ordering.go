// Package ordering puts finished tables into their published row order and
// applies the final visibility filter and column renames.
package ordering

import (
	apperrors "bspub/internal/errors"
	"bspub/internal/filter"
	"bspub/internal/table"
)

// GrandTotal labels margin rows removed by sorting.
const GrandTotal = "Grand_total"

// Options selects the ordering mode. SortKeys and RowOrder are mutually
// exclusive; with neither, only Grand_total rows are removed.
type Options struct {
	// SortKeys sorts ascending by these columns after removing every row
	// holding Grand_total.
	SortKeys []string
	// DropColumns are removed after sorting. They hold keys used only for
	// sorting.
	DropColumns []string
	// RowColumn is the column matched against RowOrder.
	RowColumn string
	// RowOrder keeps exactly these RowColumn values in this order. A value
	// absent from the table yields a row of nulls carrying the label.
	RowOrder []string
	// Visible is an optional predicate over source column names. Rows for
	// which it is false are hidden.
	Visible string
	// Rename maps source column names to published names.
	Rename map[string]string
}

// Validate reports conflicting options.
func (o Options) Validate() error {
	if len(o.SortKeys) > 0 && o.RowOrder != nil {
		return apperrors.NewConfigError("sort keys and an explicit row order cannot both be set", nil)
	}
	if o.RowOrder != nil && o.RowColumn == "" {
		return apperrors.NewConfigError("an explicit row order needs a row column", nil)
	}
	return nil
}

// Apply orders t, hides invisible rows and renames columns, in that order.
func Apply(t *table.Table, opts Options) (*table.Table, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	out, err := arrange(t, opts)
	if err != nil {
		return nil, err
	}
	if opts.Visible != "" {
		if out, err = filter.Where(out, opts.Visible); err != nil {
			return nil, err
		}
	}
	if len(opts.Rename) > 0 {
		if out, err = out.Rename(opts.Rename); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func arrange(t *table.Table, opts Options) (*table.Table, error) {
	switch {
	case len(opts.SortKeys) > 0:
		sorted, err := t.WithoutLabel(GrandTotal).SortBy(opts.SortKeys...)
		if err != nil {
			return nil, err
		}
		return sorted.Drop(opts.DropColumns...), nil
	case opts.RowOrder != nil:
		listed, err := t.In(opts.RowColumn, opts.RowOrder)
		if err != nil {
			return nil, err
		}
		return listed.OrderBy(opts.RowColumn, opts.RowOrder)
	default:
		return t.WithoutLabel(GrandTotal), nil
	}
}
