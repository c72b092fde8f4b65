// Package feed reads the screening records and the reference files a
// publication run is built from.
//
// # Architecture
//
// Records come from one of three sources selected by configuration:
//
//   - csv: one file per collection, header row first
//   - xlsx: one workbook per collection, read with excelize
//   - sql: a query run through database/sql with the pgx, sqlite or duckdb
//     driver, taking the collection name as its only argument
//
// Every source yields a table.Table whose Value column is numeric and whose
// other columns are labels. Empty cells are null.
//
// Reference files (SDR multipliers, LA region history and footnote
// references) are independent of each other and are read concurrently by
// LoadReferences before any output is built.
//
// # Usage
//
//	src, err := feed.NewSource(ctx, cfg.Feed, paths, logger)
//	if err != nil {
//		return err
//	}
//	defer src.Close()
//
//	records, err := src.Records(ctx, catalog.KC62)
//	refs, err := feed.LoadReferences(ctx, paths, logger)
package feed
