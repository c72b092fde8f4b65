package measures

import (
	"fmt"
	"strings"

	apperrors "bspub/internal/errors"
	"bspub/internal/table"
)

// Defaults for the low-numerator warning.
const (
	DefaultLowNumerator = 25
	DefaultFlag         = "!"
	WarningSuffix       = "_warning"
	ofTotalSuffix       = "_of_total"
	grandTotal          = "Grand_total"
)

// Deriver appends derived measure columns to wide tables.
type Deriver struct {
	// LowNumerator is the numerator value below which a warning is flagged.
	LowNumerator float64
	// Flag is written to warning columns for small numerators.
	Flag string
}

// NewDeriver returns a Deriver with the given warning threshold and flag.
func NewDeriver(low float64, flag string) *Deriver {
	return &Deriver{LowNumerator: low, Flag: flag}
}

var defaultDeriver = NewDeriver(DefaultLowNumerator, DefaultFlag)

// Derive derives the requested measures with the default warning settings.
func Derive(t *table.Table, requested []string) (*table.Table, error) {
	return defaultDeriver.Derive(t, requested)
}

// Derive appends every measure triggered by the requested names. Names that
// are neither registered measures nor percentages of total are ignored, so a
// full output column list can be passed. Measures already present are not
// recomputed. All absent inputs are reported together before any column is
// computed.
func (d *Deriver) Derive(t *table.Table, requested []string) (*table.Table, error) {
	formulas, ofTotal := plan(t, requested)
	if err := checkInputs(t, formulas, ofTotal); err != nil {
		return nil, err
	}

	out := t
	var err error
	for _, f := range formulas {
		if f.Kind == Additive {
			out, err = addAdditive(out, f)
		} else {
			out, err = d.addRatio(out, f)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, name := range ofTotal {
		if out, err = AddPercentOfTotal(out, name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// plan resolves requested names to the formulas to compute, in registry
// order, including absent additive prerequisites.
func plan(t *table.Table, requested []string) ([]Formula, []string) {
	selected := make(map[string]bool)
	var ofTotal []string
	var add func(name string)
	add = func(name string) {
		if selected[name] || t.Has(name) {
			return
		}
		f, ok := Lookup(name)
		if !ok {
			return
		}
		selected[name] = true
		for _, in := range f.Inputs() {
			if p, ok := Lookup(in); ok && p.Kind == Additive {
				add(in)
			}
		}
	}
	for _, r := range requested {
		if isOfTotal(r) {
			if !t.Has(r) && !containsString(ofTotal, r) {
				ofTotal = append(ofTotal, r)
			}
			continue
		}
		if names, ok := triggers[r]; ok {
			for _, n := range names {
				add(n)
			}
			continue
		}
		add(r)
	}
	var formulas []Formula
	for _, f := range registry {
		if selected[f.Name] {
			formulas = append(formulas, f)
		}
	}
	return formulas, ofTotal
}

func checkInputs(t *table.Table, formulas []Formula, ofTotal []string) error {
	available := make(map[string]bool)
	for _, c := range t.Columns() {
		available[c] = true
	}
	var missing []apperrors.MissingColumn
	for _, f := range formulas {
		for _, in := range f.Inputs() {
			if !available[in] {
				missing = append(missing, apperrors.MissingColumn{Column: in, Required: f.Name})
			}
		}
		available[f.Name] = true
	}
	for _, name := range ofTotal {
		base := strings.TrimSuffix(name, ofTotalSuffix)
		if !available[base] {
			missing = append(missing, apperrors.MissingColumn{Column: base, Required: name})
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return apperrors.NewMissingColumnsError(missing)
}

func addAdditive(t *table.Table, f Formula) (*table.Table, error) {
	return t.WithColumnErr(f.Name, func(r table.Row) (table.Value, error) {
		var sum float64
		for _, term := range f.Terms {
			v, null, err := operand(r, term.Column, f.Name)
			if err != nil {
				return table.Null(), err
			}
			if null {
				return table.Null(), nil
			}
			sum += term.Sign * v
		}
		return table.Num(sum), nil
	})
}

func (d *Deriver) addRatio(t *table.Table, f Formula) (*table.Table, error) {
	out, err := AddPercentOrRate(t, f.Name, f.Numerator, f.Denominator, f.Multiplier)
	if err != nil {
		return nil, err
	}
	if !f.Warning {
		return out, nil
	}
	return d.AddWarning(out, f.Name, f.Numerator)
}

// AddPercentOrRate sets name to numerator / denominator * multiplier. A
// zero or null denominator yields null.
func AddPercentOrRate(t *table.Table, name, numerator, denominator string, multiplier float64) (*table.Table, error) {
	if missing := t.Missing(numerator, denominator); len(missing) > 0 {
		list := make([]apperrors.MissingColumn, len(missing))
		for i, c := range missing {
			list[i] = apperrors.MissingColumn{Column: c, Required: name}
		}
		return nil, apperrors.NewMissingColumnsError(list)
	}
	return t.WithColumnErr(name, func(r table.Row) (table.Value, error) {
		num, numNull, err := operand(r, numerator, name)
		if err != nil {
			return table.Null(), err
		}
		den, denNull, err := operand(r, denominator, name)
		if err != nil {
			return table.Null(), err
		}
		if numNull || denNull || den == 0 {
			return table.Null(), nil
		}
		return table.Num(num / den * multiplier), nil
	})
}

// AddWarning adds <measure>_warning holding the flag where the numerator is
// below the threshold and the empty string elsewhere.
func (d *Deriver) AddWarning(t *table.Table, measure, numerator string) (*table.Table, error) {
	if err := t.Require(numerator); err != nil {
		return nil, err
	}
	return t.WithColumn(measure+WarningSuffix, func(r table.Row) table.Value {
		v, _ := r.Get(numerator)
		if f, ok := v.Float(); ok && f < d.LowNumerator {
			return table.Str(d.Flag)
		}
		return table.Str("")
	}), nil
}

// AddPercentOfTotal adds name, which must end in _of_total, as the
// percentage each row's base column contributes to the base value on the
// Grand_total row.
func AddPercentOfTotal(t *table.Table, name string) (*table.Table, error) {
	base := strings.TrimSuffix(name, ofTotalSuffix)
	if err := t.Require(base); err != nil {
		return nil, err
	}
	totals := t.Filter(func(r table.Row) bool { return r.Contains(grandTotal) })
	if totals.Len() != 1 {
		return nil, apperrors.NewDataQualityError(
			fmt.Sprintf("%s needs exactly one %s row, found %d", name, grandTotal, totals.Len()), nil)
	}
	total, _ := totals.Value(0, base)
	return t.WithColumnErr(name, func(r table.Row) (table.Value, error) {
		num, null, err := operand(r, base, name)
		if err != nil {
			return table.Null(), err
		}
		den, ok := total.Float()
		if null || !ok || den == 0 {
			return table.Null(), nil
		}
		return table.Num(num / den * 100), nil
	})
}

func operand(r table.Row, column, measure string) (float64, bool, error) {
	v, _ := r.Get(column)
	switch v.Kind() {
	case table.KindNumber:
		f, _ := v.Float()
		return f, false, nil
	case table.KindString:
		return 0, false, apperrors.NewDataQualityError(
			fmt.Sprintf("cannot derive %s from non-numeric value %q in column %s", measure, v.String(), column), nil).
			WithContext("column", column)
	default:
		return 0, true, nil
	}
}

func isOfTotal(name string) bool {
	return strings.HasSuffix(name, ofTotalSuffix) && len(name) > len(ofTotalSuffix)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
