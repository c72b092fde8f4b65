package validation

import (
	"fmt"
	"math"
	"strconv"

	apperrors "bspub/internal/errors"
	"bspub/internal/table"
	"bspub/internal/years"
)

// Stage names, in the fixed order they are applied.
const (
	YoYChange        = "YoY_change"
	YoYPercentChange = "YoY_percent_change"
	AvgColumns       = "Avg_columns"
	AvgChange        = "Avg_change"
	AvgPercentChange = "Avg_percent_change"
	YoYBreach        = "YoY_breach"
	AvgBreach        = "Avg_breach"
)

// RollingAverageColumn holds the output of the Avg_columns stage.
const RollingAverageColumn = "Rolling_avg"

// Pass is written to breach columns when the change is within threshold.
const Pass = "Pass"

var stageOrder = []string{YoYChange, YoYPercentChange, AvgColumns, AvgChange, AvgPercentChange, YoYBreach, AvgBreach}

// Thresholds are the breach limits for one family. Values are percentages,
// or percentage points for point-change families.
type Thresholds struct {
	YoY float64 `yaml:"yoy" envconfig:"YOY" validate:"gte=0"`
	Avg float64 `yaml:"avg" envconfig:"AVG" validate:"gte=0"`
}

// Config holds the years compared and the breach limits.
type Config struct {
	ToYear       string
	FromYear     string
	RollingYears int
	Thresholds   map[Family]Thresholds
}

// Engine appends change and breach columns to time-series tables whose
// year columns are financial-year labels.
type Engine struct {
	cfg Config
}

// NewEngine returns an Engine for cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Apply runs the named stages in their fixed order. Stage values are
// computed from the year columns directly, so a breach stage does not need
// its change stage to be selected. Unknown stage names, absent year columns
// and measures without a family are configuration errors.
func (e *Engine) Apply(t *table.Table, names []string, measures []string) (*table.Table, error) {
	selected := make(map[string]bool, len(names))
	for _, n := range names {
		if !isStage(n) {
			return nil, apperrors.NewInvalidValueError("validations", n, stageOrder)
		}
		selected[n] = true
	}
	if len(selected) == 0 {
		return t, nil
	}

	needYoY := selected[YoYChange] || selected[YoYPercentChange] || selected[YoYBreach]
	needAvg := selected[AvgColumns] || selected[AvgChange] || selected[AvgPercentChange] || selected[AvgBreach]
	var required []string
	if needYoY {
		required = append(required, e.cfg.FromYear, e.cfg.ToYear)
	}
	var avgYears []string
	if needAvg {
		var err error
		if avgYears, err = e.rollingYears(); err != nil {
			return nil, err
		}
		required = append(required, avgYears...)
		required = append(required, e.cfg.ToYear)
	}
	if err := t.Require(required...); err != nil {
		return nil, err
	}

	var family Family
	var limits Thresholds
	if selected[YoYBreach] || selected[AvgBreach] {
		var err error
		if family, err = ResolveFamily(measures); err != nil {
			return nil, err
		}
		var ok bool
		if limits, ok = e.cfg.Thresholds[family]; !ok {
			return nil, apperrors.NewConfigError(fmt.Sprintf("no breach thresholds configured for %s", family), nil)
		}
	}

	out := t
	var err error
	for _, stage := range stageOrder {
		if !selected[stage] {
			continue
		}
		out, err = out.WithColumnErr(stage, func(r table.Row) (table.Value, error) {
			return e.compute(stage, r, avgYears, family, limits)
		})
		if err != nil {
			return nil, fmt.Errorf("validation stage %s: %w", stage, err)
		}
	}
	if selected[AvgColumns] {
		if out, err = out.Rename(map[string]string{AvgColumns: RollingAverageColumn}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// rollingYears returns the RollingYears labels immediately before ToYear.
func (e *Engine) rollingYears() ([]string, error) {
	if e.cfg.RollingYears < 1 {
		return nil, apperrors.NewConfigError("rolling average needs at least one year", nil)
	}
	prev, err := years.Previous(e.cfg.ToYear)
	if err != nil {
		return nil, err
	}
	return years.Range(prev, e.cfg.RollingYears)
}

func (e *Engine) compute(stage string, r table.Row, avgYears []string, family Family, limits Thresholds) (table.Value, error) {
	to, err := cell(r, e.cfg.ToYear)
	if err != nil {
		return table.Null(), err
	}
	switch stage {
	case YoYChange, YoYPercentChange, YoYBreach:
		from, err := cell(r, e.cfg.FromYear)
		if err != nil {
			return table.Null(), err
		}
		switch stage {
		case YoYChange:
			return difference(to, from), nil
		case YoYPercentChange:
			return percentChange(to, from), nil
		}
		return breach("Year on year", to, from, e.cfg.ToYear, e.cfg.FromYear, family, limits.YoY), nil
	}

	avg, err := average(r, avgYears)
	if err != nil {
		return table.Null(), err
	}
	switch stage {
	case AvgColumns:
		return avg, nil
	case AvgChange:
		return difference(to, avg), nil
	case AvgPercentChange:
		return percentChange(to, avg), nil
	}
	return breach("Rolling average", to, avg, e.cfg.ToYear, "rolling average", family, limits.Avg), nil
}

func cell(r table.Row, column string) (table.Value, error) {
	v, _ := r.Get(column)
	if v.Kind() == table.KindString {
		return table.Null(), apperrors.NewDataQualityError(
			fmt.Sprintf("cannot validate non-numeric value %q in column %s", v.String(), column), nil)
	}
	return v, nil
}

// average is the mean of the non-null values in the year columns, or null
// when none has a value.
func average(r table.Row, cols []string) (table.Value, error) {
	var sum float64
	var n int
	for _, c := range cols {
		v, err := cell(r, c)
		if err != nil {
			return table.Null(), err
		}
		if f, ok := v.Float(); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return table.Null(), nil
	}
	return table.Num(sum / float64(n)), nil
}

func difference(to, from table.Value) table.Value {
	a, okA := to.Float()
	b, okB := from.Float()
	if !okA || !okB {
		return table.Null()
	}
	return table.Num(a - b)
}

func percentChange(to, from table.Value) table.Value {
	a, okA := to.Float()
	b, okB := from.Float()
	if !okA || !okB || b == 0 {
		return table.Null()
	}
	return table.Num((a - b) / b * 100)
}

func breach(label string, to, from table.Value, toName, fromName string, family Family, limit float64) table.Value {
	a, okA := to.Float()
	b, okB := from.Float()
	switch {
	case !okA:
		return table.Str(fmt.Sprintf("Unable to compare: missing %s value", toName))
	case !okB:
		return table.Str(fmt.Sprintf("Unable to compare: missing %s value", fromName))
	}
	if family.PointChange() {
		diff := a - b
		if math.Abs(diff) > limit {
			return table.Str(fmt.Sprintf("%s breach: %s percentage point change exceeds %s",
				label, format(diff), format(limit)))
		}
		return table.Str(Pass)
	}
	if b == 0 {
		return table.Str(fmt.Sprintf("Unable to compare: %s value is zero", fromName))
	}
	pct := (a - b) / b * 100
	if math.Abs(pct) > limit {
		return table.Str(fmt.Sprintf("%s breach: %s%% change exceeds %s%%", label, format(pct), format(limit)))
	}
	return table.Str(Pass)
}

func format(f float64) string {
	return strconv.FormatFloat(math.Round(f*10)/10, 'f', -1, 64)
}

func isStage(name string) bool {
	for _, s := range stageOrder {
		if s == name {
			return true
		}
	}
	return false
}
