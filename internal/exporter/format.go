package exporter

import (
	"bspub/internal/table"
)

// formatValue renders a cell for CSV output. Nulls are empty.
func formatValue(v table.Value) string {
	return v.String()
}

// formatRecords renders every row of t.
func formatRecords(t *table.Table) [][]string {
	out := make([][]string, 0, t.Len())
	for _, row := range t.Records() {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = formatValue(v)
		}
		out = append(out, rec)
	}
	return out
}

// cellValue converts a cell for excelize: numbers stay numeric so the
// template's number formats apply. Nulls leave the cell empty.
func cellValue(v table.Value) interface{} {
	if f, ok := v.Float(); ok {
		return f
	}
	if s, ok := v.Text(); ok {
		return s
	}
	return nil
}

// rowValues converts one table row for excelize.
func rowValues(row []table.Value) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = cellValue(v)
	}
	return out
}
