package preprocess

import (
	"fmt"

	"bspub/internal/config"
	"bspub/internal/measures"
	"bspub/internal/pivot"
	"bspub/internal/table"
)

// countMeasures are the additive measures stored as Col_Def rows so every
// output can aggregate them like raw counts.
var countMeasures = map[string][]string{
	config.KC62: {"Small_invasive", "Invasive_15mmplus", "Non_or_micro_invasive", "Benign_biopsy", "Cancers_diagnosed"},
	config.KC63: {"Women_eligible", "Women_never_screened"},
}

// AddMeasureCounts adds the collection's additive measures to the record
// feed. Records are widened to one column per Col_Def value, missing cells
// count as zero, the measures are summed and the table is melted back to
// one Value per row.
func AddMeasureCounts(t *table.Table, collection string) (*table.Table, error) {
	names := countMeasures[collection]
	if len(names) == 0 {
		return t, nil
	}
	if err := t.Require(measures.MeasureColumn, measures.ValueColumn); err != nil {
		return nil, err
	}
	var keys []string
	for _, c := range t.Columns() {
		if c != measures.MeasureColumn && c != measures.ValueColumn {
			keys = append(keys, c)
		}
	}
	if len(keys) == 0 || t.Len() == 0 {
		return t, nil
	}

	wide, err := pivot.Sum(t, pivot.Options{Rows: keys, Column: measures.MeasureColumn, Value: measures.ValueColumn})
	if err != nil {
		return nil, err
	}
	if wide, err = measures.Derive(wide, names); err != nil {
		return nil, fmt.Errorf("adding %s counts: %w", collection, err)
	}
	return pivot.Melt(wide, keys, measures.MeasureColumn, measures.ValueColumn, nil)
}
