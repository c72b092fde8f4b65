package config

// Application constants for the breast screening publication pipeline
const (
	// Application Info
	AppName    = "bspub"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment override, e.g.
	// BSPUB_PUBLICATION_YEAR=2022-23.
	EnvPrefix = "BSPUB"

	// Reporting defaults
	DefaultYear         = "2021-22"
	DefaultTSYears      = 13
	DefaultRollingYears = 5

	// Tokens written in place of missing values
	NotApplicable     = "z"
	CSVNotIncluded    = "not included"
	LowNumeratorFlag  = "!"
	LowNumeratorBelow = 25
	NationalCode      = "E92000001"
	NationalName      = "England"
	NationalOrgType   = "National"
	RegionalOrgType   = "Region"

	// File Paths (relative to the base directory)
	DefaultInputDir     = "inputs"
	DefaultTemplatesDir = "templates"
	DefaultOutputDir    = "outputs"
	DefaultLogsDir      = "logs"
	DefaultCatalogDir   = "configs/catalog"
	DefaultSDRFile      = "inputs/breast_screening_sdr.csv"
	DefaultLAFile       = "inputs/CANS_LA_REGION.csv"
	DefaultFootnoteFile = "inputs/breast_screening_footnote_refs.csv"

	// Feed kinds
	FeedCSV  = "csv"
	FeedXLSX = "xlsx"
	FeedSQL  = "sql"

	// Collections
	KC62 = "KC62"
	KC63 = "KC63"
)
