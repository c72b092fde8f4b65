// Package app wires a publication run together: configuration, logging,
// telemetry, the output catalog, the record feed and the reference files.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, the YAML file and BSPUB_* variables
//  2. Resolve paths and initialise logging and OpenTelemetry
//  3. Load the output catalog
//  4. Check templates, feed files and reference files (Prepare)
//  5. Load reference data and records, then pre-process each collection
//  6. Run the catalog or preview one output
//
// # Usage
//
//	a, err := app.NewApplication(app.Options{ConfigPath: "configs/bspub.yaml"})
//	if err != nil {
//		return err
//	}
//	defer a.Stop(ctx)
//	if err := a.Prepare(ctx); err != nil {
//		return err
//	}
//	res, err := a.Run(ctx)
package app
