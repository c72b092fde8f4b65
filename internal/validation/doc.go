// Package validation adds year-over-year and rolling-average change
// columns to a time-series table and flags changes that breach the
// configured thresholds.
//
// Stages run in a fixed order (YoY_change, YoY_percent_change,
// Avg_columns, Avg_change, Avg_percent_change, YoY_breach, Avg_breach) and
// only the requested ones are kept. Thresholds are chosen by the measure
// Family, resolved once from the measures present in the table.
//
// The package also holds the FileValidator used to check templates, feed
// files and reference files before a run starts.
package validation
