package measures

import (
	"fmt"
	"sort"
	"time"

	apperrors "bspub/internal/errors"
	"bspub/internal/table"
	"bspub/internal/years"
)

// ExpectedLabel is the measure name of the injected expected-count rows.
const ExpectedLabel = "SDR_expected"

// Long-format record columns read by SDRExpected.
const (
	MeasureColumn = "Col_Def"
	RowColumn     = "Row_Def"
	ValueColumn   = "Value"
)

// Multiplier is one row of the SDR reference table: per age band expected
// invasive cancers per 1000 women screened for each table family, valid
// from Start until End. A zero End is open-ended.
type Multiplier struct {
	AgeBand  string
	Start    time.Time
	End      time.Time
	TablesAB float64
	TablesC  float64
}

// Open reports whether the multiplier has no end date.
func (m Multiplier) Open() bool {
	return m.End.IsZero()
}

// MultipliersForYear returns the multipliers valid for the financial year:
// those starting on or before 1 April and, when any of those is open-ended,
// only the open-ended ones, otherwise those ending on or after 31 March.
// Two rows for the same age band is a data-quality error.
func MultipliersForYear(all []Multiplier, year string) (map[string]Multiplier, error) {
	start, end, err := years.Bounds(year)
	if err != nil {
		return nil, err
	}
	var started []Multiplier
	anyOpen := false
	for _, m := range all {
		if !m.Start.After(start) {
			started = append(started, m)
			anyOpen = anyOpen || m.Open()
		}
	}
	out := make(map[string]Multiplier)
	var dup []string
	for _, m := range started {
		if anyOpen && !m.Open() {
			continue
		}
		if !anyOpen && m.End.Before(end) {
			continue
		}
		if _, seen := out[m.AgeBand]; seen {
			dup = append(dup, m.AgeBand)
			continue
		}
		out[m.AgeBand] = m
	}
	if len(dup) > 0 {
		sort.Strings(dup)
		return nil, apperrors.NewDataQualityError(
			fmt.Sprintf("SDR multipliers cover overlapping periods for %s (age bands %v)", year, dup), nil).
			WithContext("year", year)
	}
	return out, nil
}

// SDRExpected appends SDR_expected rows to long-format records: every
// Screened row whose Row_Def matches an age band is copied with Value set to
// Screened * multiplier / 1000. Table codes select the multiplier family and
// must be exactly [A B] or [C1 C2].
func SDRExpected(t *table.Table, tableCodes []string, year string, multipliers []Multiplier) (*table.Table, error) {
	family, err := tableFamily(tableCodes)
	if err != nil {
		return nil, err
	}
	if err := t.Require(MeasureColumn, RowColumn, ValueColumn); err != nil {
		return nil, err
	}
	valid, err := MultipliersForYear(multipliers, year)
	if err != nil {
		return nil, err
	}

	screened := t.Filter(func(r table.Row) bool {
		v, _ := r.Get(MeasureColumn)
		if !v.IsLabel("Screened") {
			return false
		}
		band, _ := r.Get(RowColumn)
		s, _ := band.Text()
		_, ok := valid[s]
		return ok
	})
	expected, err := screened.WithColumnErr(ValueColumn, func(r table.Row) (table.Value, error) {
		band, _ := r.Get(RowColumn)
		s, _ := band.Text()
		m := valid[s]
		factor := m.TablesAB
		if family == familyC {
			factor = m.TablesC
		}
		v, null, err := operand(r, ValueColumn, ExpectedLabel)
		if err != nil || null {
			return table.Null(), err
		}
		return table.Num(v * factor / 1000), nil
	})
	if err != nil {
		return nil, err
	}
	expected = expected.WithConstant(MeasureColumn, table.Str(ExpectedLabel))
	return table.Concat(t, expected), nil
}

type sdrFamily int

const (
	familyAB sdrFamily = iota
	familyC
)

func tableFamily(codes []string) (sdrFamily, error) {
	switch {
	case len(codes) == 2 && codes[0] == "A" && codes[1] == "B":
		return familyAB, nil
	case len(codes) == 2 && codes[0] == "C1" && codes[1] == "C2":
		return familyC, nil
	}
	return 0, apperrors.NewInvalidValueError("table_code", fmt.Sprint(codes), []string{"[A B]", "[C1 C2]"})
}
