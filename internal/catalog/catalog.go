package catalog

import (
	"bspub/internal/subgroup"
)

// Kind tags a recipe with the engine routine that interprets it.
type Kind string

const (
	KindCrosstab      Kind = "crosstab"
	KindSingleMeasure Kind = "single_measure"
	KindTidy          Kind = "tidy_csv"
	KindValidation    Kind = "validation"
)

// Kinds lists every recipe kind the engine understands.
var Kinds = []string{string(KindCrosstab), string(KindSingleMeasure), string(KindTidy), string(KindValidation)}

// Write types accepted by the sink.
const (
	WriteCSV           = "csv"
	WriteExcelStatic   = "excel_static"
	WriteExcelVariable = "excel_variable"
	WriteExcelSheet    = "excel_sheet"
)

// WriteTypes lists every supported write type.
var WriteTypes = []string{WriteCSV, WriteExcelStatic, WriteExcelVariable, WriteExcelSheet}

// Organisation levels for tidy outputs.
const (
	OrgNational = "national"
	OrgRegional = "regional"
	OrgLocal    = "local"
)

// OrgLevels lists the valid tidy organisation levels.
var OrgLevels = []string{OrgNational, OrgRegional, OrgLocal}

// Output-level update kinds.
const (
	UpdateColumnDifference   = "column_difference"
	UpdateDashboardTranspose = "dashboard_transpose"
	UpdateCheckListFlag      = "check_list_flag"
)

// UpdateKinds lists every output-level update.
var UpdateKinds = []string{UpdateColumnDifference, UpdateDashboardTranspose, UpdateCheckListFlag}

// Collections the catalog can target.
const (
	KC62 = "KC62"
	KC63 = "KC63"
)

// Catalog is the full set of output groups for a run.
type Catalog struct {
	Groups []Group `yaml:"groups" validate:"dive"`
}

// Group is a set of outputs written to the same destination: one Excel
// workbook, or one directory of CSV files.
type Group struct {
	Name       string `yaml:"name" validate:"required"`
	Collection string `yaml:"collection" validate:"required,oneof=KC62 KC63"`
	// Workbook is the Excel template path. Groups without one write CSV
	// files into Dir.
	Workbook      string   `yaml:"workbook"`
	Dir           string   `yaml:"dir"`
	NotApplicable string   `yaml:"not_applicable"`
	Outputs       []Output `yaml:"outputs" validate:"required,min=1,dive"`
	// Footnotes are applied after every output of the group is written.
	Footnotes []Footnote `yaml:"footnotes" validate:"dive"`
}

// Footnote appends superscript references to organisation names already
// written to a sheet. Names are read down from StartCell in OrgColumn until
// the first empty cell; RegionColumn, when set, must also match the
// reference row.
type Footnote struct {
	Sheet        string `yaml:"sheet" validate:"required"`
	StartCell    string `yaml:"start_cell" validate:"required,cell"`
	OrgColumn    string `yaml:"org_column" validate:"required,column"`
	RegionColumn string `yaml:"region_column" validate:"omitempty,column"`
}

// Output is one finished table: the concatenation of its contents, after
// updates, written to a sheet or CSV file called Name.
type Output struct {
	Name      string   `yaml:"name" validate:"required"`
	WriteType string   `yaml:"write_type" validate:"required"`
	WriteCell string   `yaml:"write_cell" validate:"omitempty,cell"`
	EmptyCols []string `yaml:"empty_cols" validate:"dive,column"`
	Contents  []Recipe `yaml:"contents" validate:"required,min=1,dive"`
	Updates   []Update `yaml:"updates" validate:"dive"`
}

// Update is a transformation applied to an assembled output.
type Update struct {
	Kind string `yaml:"kind" validate:"required"`
	// Column names the difference column or the column checked against
	// the flag set.
	Column    string   `yaml:"column"`
	Breakdown []string `yaml:"breakdown"`
	FlagSet   string   `yaml:"flag_set"`
	IfTrue    string   `yaml:"if_true"`
	IfFalse   string   `yaml:"if_false"`
}

// Recipe is the declarative description of one content table.
type Recipe struct {
	Name string `yaml:"name" validate:"required"`
	Kind Kind   `yaml:"kind" validate:"required"`

	Rows    []string `yaml:"rows"`
	Columns string   `yaml:"columns"`

	MeasureColumn string   `yaml:"measure_column"`
	Measure       string   `yaml:"measure"`
	Measures      []string `yaml:"measures"`

	Parts      []string `yaml:"part"`
	TableCodes []string `yaml:"table_code"`
	Filter     string   `yaml:"filter"`
	Visible    string   `yaml:"visible"`
	TSYears    int      `yaml:"ts_years" validate:"gte=0"`

	SortOn      []string          `yaml:"sort_on"`
	RowOrder    []string          `yaml:"row_order"`
	ColumnOrder []string          `yaml:"column_order"`
	Rename      map[string]string `yaml:"column_rename"`

	RowSubgroups    []subgroup.Spec       `yaml:"row_subgroups" validate:"dive"`
	ColumnSubgroups []subgroup.ColumnSpec `yaml:"column_subgroups" validate:"dive"`

	IncludeRowLabels *bool `yaml:"include_row_labels"`
	MeasureAsRows    bool  `yaml:"measure_as_rows"`

	// Tidy outputs.
	Collection string   `yaml:"collection"`
	OrgLevel   string   `yaml:"org_level"`
	Breakdown  []string `yaml:"breakdown"`

	Validations []string `yaml:"validations"`
}

// Years returns the time-series span, defaulting to the reporting year only.
func (r Recipe) Years() int {
	if r.TSYears < 1 {
		return 1
	}
	return r.TSYears
}

// RowLabels reports whether row label columns are kept in the output.
func (r Recipe) RowLabels() bool {
	return r.IncludeRowLabels == nil || *r.IncludeRowLabels
}

// IsCSV reports whether the group writes CSV files.
func (g Group) IsCSV() bool {
	return g.Workbook == ""
}

// Outputs returns every output in the catalog, in group order, with the
// group it belongs to.
func (c *Catalog) Outputs() []GroupOutput {
	var out []GroupOutput
	for gi := range c.Groups {
		for _, o := range c.Groups[gi].Outputs {
			out = append(out, GroupOutput{Group: &c.Groups[gi], Output: o})
		}
	}
	return out
}

// GroupOutput pairs an output with its group.
type GroupOutput struct {
	Group  *Group
	Output Output
}

// Find returns the group with the given name.
func (c *Catalog) Find(name string) (*Group, bool) {
	for i := range c.Groups {
		if c.Groups[i].Name == name {
			return &c.Groups[i], true
		}
	}
	return nil, false
}
