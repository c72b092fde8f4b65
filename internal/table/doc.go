// Package table provides the immutable tabular value that every stage of the
// publication pipeline consumes and produces.
//
// # Cells
//
// A Value is null, a number or a string. NaN and infinite numbers are stored
// as null so that a zero denominator surfaces as a missing value rather than
// a misleading number.
//
// # Copy on write
//
// Table methods never modify the receiver. Filters, projections, joins and
// reshapes all return a new Table, so a record set can be handed to several
// outputs in turn without defensive copies:
//
//	filtered := records.Filter(func(r table.Row) bool {
//	    v, _ := r.Get("Part")
//	    return v.IsLabel("1")
//	})
//
// # Column access
//
// Columns are looked up by name. Lookups return a second boolean result and
// Require reports every absent column in a single configuration error.
//
// # Ordering
//
// Group and join results are sorted ascending by key: nulls, then numbers,
// then strings in byte order.
package table
