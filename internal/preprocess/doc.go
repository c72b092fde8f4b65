// Package preprocess prepares raw collection records before any output is
// built from them.
//
// # Steps
//
// Records pass through a fixed sequence, each step enabled by the
// collection's configuration:
//
//  1. Drop 2012-13 local authority rows (KC63 carries both PCT and LA rows
//     for that year).
//  2. Re-parent local authorities from the dated LA region history.
//  3. Replace retired region codes, region names and organisation names.
//  4. Fold small local authorities into a neighbour, matching codes and
//     names case-insensitively.
//  5. Add the Parent_Org_Order sort column from the region order lookup.
//  6. Add the additive count measures as extra Col_Def rows.
//
// # Usage
//
//	p := preprocess.New(catalog.KC63, cfg.Collections[catalog.KC63], refs.RegionUpdates, logger)
//	records, err := p.Apply(raw)
package preprocess
