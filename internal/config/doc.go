// Package config provides centralized configuration management for the
// publication pipeline. It loads settings from several sources, validates
// them and exposes a typed API to the rest of the application.
//
// # Configuration Sources
//
// Configuration is built in the following order, later sources winning:
//
//	1. Default values
//	2. The YAML file (bspub.yaml or configs/bspub.yaml)
//	3. Environment variables (highest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern BSPUB_* for namespacing:
//
//	BSPUB_PUBLICATION_YEAR=2022-23
//	BSPUB_LOGGING_LEVEL=debug
//	BSPUB_FEED_KIND=sql
//	BSPUB_FEED_DSN=postgres://...
//	BSPUB_VALIDATION_THRESHOLDS_COVERAGE_YOY=1.5
//
// # Collections
//
// Each data collection (KC62 and KC63) carries its pre-processing lookups:
// region code and name updates, organisation name updates, small local
// authority merges, the region sort order and the named flag sets used by
// check_list_flag updates. Built-in values match the 2021-22 publication
// and a collection declared in the YAML file replaces them wholesale.
//
// # Path Management
//
// Paths are resolved through the Paths type. Relative entries are joined
// to the base directory, which defaults to the executable location:
//
//	paths, err := config.ResolvePaths(cfg.Paths)
//	template := paths.TemplatePath("tables.xlsx")
//	out := paths.WorkbookPath("tables.xlsx")
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing
//
// Default returns a complete configuration that needs no environment
// variables or files, which tests adjust field by field.
package config
