// Package operations runs a publication: every output of the catalog is
// built by the engine and written to its destination.
//
// # Destinations
//
// Groups are planned into destinations before anything is written. Groups
// naming the same workbook share one destination, in the order the first
// of them appears in the catalog; each CSV group is a destination of its
// own. A workbook destination is opened once from its template, every
// output of every group sharing it is written, footnote references are
// added and the filled copy is saved to the output directory. Only one
// workbook is open at a time.
//
// # Failure
//
// Runs are fail-fast. The first output that fails to build or write stops
// the run with an *OperationError naming the group and output; the
// workbook being written is closed without saving.
//
// # Usage
//
//	tracer, _ := operations.NewOutputTracer(providers)
//	m := operations.NewManager(eng, operations.Options{Paths: paths, Footnotes: refs.Footnotes, Tracer: tracer}, logger)
//	res, err := m.Run(ctx, cat, map[string]*table.Table{catalog.KC62: kc62, catalog.KC63: kc63})
package operations
