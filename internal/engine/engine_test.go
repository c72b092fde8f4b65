package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bspub/internal/errors"
	"bspub/internal/catalog"
	"bspub/internal/measures"
	"bspub/internal/subgroup"
	"bspub/internal/table"
	"bspub/internal/validation"
)

var recordColumns = []string{
	"CollectionYearRange", "Parent_Org_Code", "Parent_Org_Name", "Org_Name", "Org_Code",
	"Org_Type", "Age_Band", "Col_Def", "Value",
}

func record(year, region, regionName, unit, code, band, measure string, value float64) []table.Value {
	return []table.Value{
		table.Str(year), table.Str(region), table.Str(regionName), table.Str(unit), table.Str(code),
		table.Str("BSU"), table.Str(band), table.Str(measure), table.Num(value),
	}
}

// screeningRecords holds two units in two regions over two years. In
// 2021-22 uptake is 75 in R1 and 50 in R2; in 2020-21 fewer women were
// invited.
func screeningRecords() *table.Table {
	var rows [][]table.Value
	for _, y := range []struct {
		year    string
		invited float64
	}{{"2020-21", 80}, {"2021-22", 100}} {
		rows = append(rows,
			record(y.year, "R1", "North", "Unit A", "AGA", "50-52", "Invited", y.invited),
			record(y.year, "R1", "North", "Unit A", "AGA", "50-52", "Screened", 50),
			record(y.year, "R1", "North", "Unit A", "AGA", "53-70", "Invited", y.invited),
			record(y.year, "R1", "North", "Unit A", "AGA", "53-70", "Screened", 100),
			record(y.year, "R2", "South", "Unit B", "XYZ", "50-52", "Invited", y.invited),
			record(y.year, "R2", "South", "Unit B", "XYZ", "50-52", "Screened", 25),
			record(y.year, "R2", "South", "Unit B", "XYZ", "53-70", "Invited", y.invited),
			record(y.year, "R2", "South", "Unit B", "XYZ", "53-70", "Screened", 75),
		)
	}
	return table.MustNew(recordColumns, rows...)
}

func newEngine() *Engine {
	return New(Options{
		Year:          "2021-22",
		LowNumerator:  measures.DefaultLowNumerator,
		NotApplicable: "z",
		Validation: validation.Config{
			ToYear:       "2021-22",
			FromYear:     "2020-21",
			RollingYears: 1,
			Thresholds: map[validation.Family]validation.Thresholds{
				validation.ReferralCount: {YoY: 10, Avg: 10},
			},
		},
		FlagSets: map[string]map[string][]measures.Flag{
			catalog.KC62: {"bsu_flagged": {{Name: "Flagged", Values: []string{"AGA"}}}},
		},
	}, nil)
}

func grid(t *table.Table) [][]string {
	out := [][]string{t.Columns()}
	for _, r := range t.Records() {
		row := make([]string, len(r))
		for j, v := range r {
			row[j] = v.String()
		}
		out = append(out, row)
	}
	return out
}

func boolPtr(b bool) *bool { return &b }

func TestCrosstab(t *testing.T) {
	tests := []struct {
		name   string
		recipe catalog.Recipe
		want   [][]string
	}{
		{
			name: "derived column after counts",
			recipe: catalog.Recipe{
				Name: "uptake", Kind: catalog.KindCrosstab,
				Rows: []string{"Parent_Org_Code"}, Columns: "Col_Def",
				ColumnOrder: []string{"Invited", "Screened", "Uptake"},
			},
			want: [][]string{
				{"Parent_Org_Code", "Invited", "Screened", "Uptake"},
				{"R1", "200", "150", "75"},
				{"R2", "200", "100", "50"},
			},
		},
		{
			name: "explicit row order keeps the total",
			recipe: catalog.Recipe{
				Name: "ordered", Kind: catalog.KindCrosstab,
				Rows: []string{"Parent_Org_Code"}, Columns: "Col_Def",
				ColumnOrder: []string{"Uptake"},
				RowOrder:    []string{"R2", "R1", "Grand_total"},
			},
			want: [][]string{
				{"Parent_Org_Code", "Uptake"},
				{"R2", "50"},
				{"R1", "75"},
				{"Grand_total", "62.5"},
			},
		},
		{
			name: "years become suffixed columns",
			recipe: catalog.Recipe{
				Name: "series", Kind: catalog.KindCrosstab,
				Rows: []string{"Parent_Org_Code"}, Filter: `Col_Def == "Invited"`, TSYears: 2,
			},
			want: [][]string{
				{"Parent_Org_Code", "Value 2020-21", "Value 2021-22"},
				{"R1", "160", "200"},
				{"R2", "160", "200"},
			},
		},
		{
			name: "year as a row stacks the years",
			recipe: catalog.Recipe{
				Name: "stacked", Kind: catalog.KindCrosstab,
				Rows: []string{"CollectionYearRange"}, Columns: "Col_Def",
				ColumnOrder: []string{"Invited"}, TSYears: 2,
			},
			want: [][]string{
				{"CollectionYearRange", "Invited"},
				{"2020-21", "320"},
				{"2021-22", "400"},
			},
		},
		{
			name: "measures as rows",
			recipe: catalog.Recipe{
				Name: "transposed", Kind: catalog.KindCrosstab,
				Rows: []string{"Col_Def"}, Columns: "Parent_Org_Code",
				ColumnOrder:   []string{"R1", "R2"},
				RowOrder:      []string{"Invited", "Screened", "Uptake"},
				MeasureAsRows: true,
			},
			want: [][]string{
				{"Col_Def", "R1", "R2"},
				{"Invited", "200", "200"},
				{"Screened", "150", "100"},
				{"Uptake", "75", "50"},
			},
		},
		{
			name: "row labels dropped after rename",
			recipe: catalog.Recipe{
				Name: "unlabelled", Kind: catalog.KindCrosstab,
				Rows: []string{"Parent_Org_Code"}, Columns: "Col_Def",
				ColumnOrder:      []string{"Invited"},
				Rename:           map[string]string{"Parent_Org_Code": "Region"},
				IncludeRowLabels: boolPtr(false),
			},
			want: [][]string{
				{"Invited"},
				{"200"},
				{"200"},
			},
		},
		{
			name: "row subgroup sorted away from the total",
			recipe: catalog.Recipe{
				Name: "grouped", Kind: catalog.KindCrosstab,
				Rows: []string{"Age_Band"}, Columns: "Col_Def",
				ColumnOrder: []string{"Screened"},
				SortOn:      []string{"Age_Band"},
				RowSubgroups: []subgroup.Spec{
					{Target: "Age_Band", Label: "All", Sources: []string{"50-52", "53-70"}},
				},
			},
			want: [][]string{
				{"Age_Band", "Screened"},
				{"50-52", "75"},
				{"53-70", "175"},
				{"All", "250"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newEngine().Build(screeningRecords(), tt.recipe)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, grid(got)); diff != "" {
				t.Errorf("Crosstab() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCrosstab_MeasuresAsRowsNeedsOneRow(t *testing.T) {
	_, err := newEngine().Crosstab(screeningRecords(), catalog.Recipe{
		Name: "bad", Kind: catalog.KindCrosstab,
		Rows: []string{"Col_Def", "Age_Band"}, Columns: "Parent_Org_Code", MeasureAsRows: true,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestCrosstab_NoMatchingRecords(t *testing.T) {
	got, err := newEngine().Crosstab(screeningRecords(), catalog.Recipe{
		Name: "empty", Kind: catalog.KindCrosstab,
		Rows: []string{"Parent_Org_Code"}, Columns: "Col_Def",
		ColumnOrder: []string{"Invited"}, Filter: `Col_Def == "Referred"`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Parent_Org_Code", "Invited"}, got.Columns())
	assert.Equal(t, 0, got.Len())
}

func TestSingleMeasure(t *testing.T) {
	got, err := newEngine().Build(screeningRecords(), catalog.Recipe{
		Name: "uptake_by_age", Kind: catalog.KindSingleMeasure,
		Rows: []string{"Parent_Org_Code"}, Columns: "Age_Band",
		MeasureColumn: "Col_Def", Measure: "Uptake",
		ColumnOrder: []string{"50-52", "53-70", "Grand_total"},
	})
	require.NoError(t, err)

	want := [][]string{
		{"Parent_Org_Code", "50-52", "53-70", "Grand_total"},
		{"R1", "50", "100", "75"},
		{"R2", "25", "75", "50"},
	}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("SingleMeasure() mismatch (-want +got):\n%s", diff)
	}
}

func TestSingleMeasure_NeedsColumns(t *testing.T) {
	_, err := newEngine().SingleMeasure(screeningRecords(), catalog.Recipe{
		Name: "bad", Kind: catalog.KindSingleMeasure, Rows: []string{"Parent_Org_Code"}, Measure: "Uptake",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestTidy(t *testing.T) {
	base := catalog.Recipe{
		Name: "tidy", Kind: catalog.KindTidy, Collection: catalog.KC62,
		MeasureColumn: "Col_Def", Measures: []string{"Invited", "Screened", "Uptake"},
	}
	tests := []struct {
		name  string
		level string
		want  [][]string
	}{
		{
			name:  "national",
			level: catalog.OrgNational,
			want: [][]string{
				{"CollectionYearRange", "Parent_Org_Code", "Parent_Org_Name", "Org_Name", "Org_Type", "Invited", "Screened", "Uptake"},
				{"2021-22", NationalCode, NationalName, NationalName, NationalOrgType, "400", "250", "62.5"},
			},
		},
		{
			name:  "regional",
			level: catalog.OrgRegional,
			want: [][]string{
				{"CollectionYearRange", "Parent_Org_Code", "Parent_Org_Name", "Org_Name", "Org_Type", "Invited", "Screened", "Uptake"},
				{"2021-22", "R1", "North", "North", RegionalOrgType, "200", "150", "75"},
				{"2021-22", "R2", "South", "South", RegionalOrgType, "200", "100", "50"},
			},
		},
		{
			name:  "local",
			level: catalog.OrgLocal,
			want: [][]string{
				{"CollectionYearRange", "Parent_Org_Code", "Parent_Org_Name", "Org_Name", "Org_Type", "Invited", "Screened", "Uptake"},
				{"2021-22", "R1", "North", "Unit A", "BSU", "200", "150", "75"},
				{"2021-22", "R2", "South", "Unit B", "BSU", "200", "100", "50"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			r.OrgLevel = tt.level
			got, err := newEngine().Build(screeningRecords(), r)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, grid(got)); diff != "" {
				t.Errorf("Tidy() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTidy_NonOperativeRatesHiddenAboveLocal(t *testing.T) {
	records := table.MustNew(recordColumns,
		record("2021-22", "R1", "North", "Unit A", "AGA", "50-52", "Non-op_diag_rate_invasive", 3),
	)
	got, err := newEngine().Tidy(records, catalog.Recipe{
		Name: "non_op", Kind: catalog.KindTidy, Collection: catalog.KC62, OrgLevel: catalog.OrgNational,
		MeasureColumn: "Col_Def", Measures: []string{"Non-op_diag_rate_invasive"},
	})
	require.NoError(t, err)
	v, ok := got.Value(0, "Non-op_diag_rate_invasive")
	require.True(t, ok)
	assert.Equal(t, ":", v.String())
}

func TestTidy_InvalidOrgLevel(t *testing.T) {
	_, err := newEngine().Tidy(screeningRecords(), catalog.Recipe{
		Name: "bad", Kind: catalog.KindTidy, OrgLevel: "county",
		MeasureColumn: "Col_Def", Measures: []string{"Invited"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	assert.Contains(t, err.Error(), `an invalid value "county" has been entered in the org_level input`)
}

func TestValidationCounts(t *testing.T) {
	got, err := newEngine().Build(screeningRecords(), catalog.Recipe{
		Name: "invited_check", Kind: catalog.KindValidation,
		Rows: []string{"Parent_Org_Code"}, Measures: []string{"Invited"}, TSYears: 2,
		Validations: []string{validation.YoYChange, validation.YoYBreach},
	})
	require.NoError(t, err)

	want := [][]string{
		{"Parent_Org_Code", "2020-21", "2021-22", "YoY_change", "YoY_breach"},
		{"R1", "160", "200", "40", "Year on year breach: 25% change exceeds 10%"},
		{"R2", "160", "200", "40", "Year on year breach: 25% change exceeds 10%"},
	}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("ValidationCounts() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidationMeasure(t *testing.T) {
	got, err := newEngine().Build(screeningRecords(), catalog.Recipe{
		Name: "uptake_check", Kind: catalog.KindValidation,
		Rows: []string{"Parent_Org_Code"}, Measure: "Uptake", TSYears: 2,
		Validations: []string{validation.YoYChange},
	})
	require.NoError(t, err)

	want := [][]string{
		{"Parent_Org_Code", "2020-21", "2021-22", "YoY_change"},
		{"Grand_total", "78.125", "62.5", "-15.625"},
		{"R1", "93.75", "75", "-18.75"},
		{"R2", "62.5", "50", "-12.5"},
	}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("ValidationMeasure() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidationMeasure_SortDropsTotal(t *testing.T) {
	got, err := newEngine().ValidationMeasure(screeningRecords(), catalog.Recipe{
		Name: "uptake_sorted", Kind: catalog.KindValidation,
		Rows: []string{"Parent_Org_Code"}, Measure: "Uptake", TSYears: 2,
		SortOn: []string{"Parent_Org_Code"}, Validations: []string{validation.YoYChange},
	})
	require.NoError(t, err)
	values, _ := got.Column("Parent_Org_Code")
	require.Len(t, values, 2)
	assert.Equal(t, "R1", values[0].String())
	assert.True(t, got.Has(validation.YoYChange))
}

func TestBuild_UnknownKind(t *testing.T) {
	_, err := newEngine().Build(screeningRecords(), catalog.Recipe{Name: "x", Kind: "chart"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestOutput(t *testing.T) {
	invited := catalog.Recipe{
		Name: "invited", Kind: catalog.KindCrosstab,
		Rows: []string{"Parent_Org_Code"}, Columns: "Col_Def", ColumnOrder: []string{"Invited"},
	}
	screened := invited
	screened.Name = "screened"
	screened.ColumnOrder = []string{"Screened"}

	tests := []struct {
		name  string
		group catalog.Group
		want  [][]string
	}{
		{
			name:  "group token fills gaps",
			group: catalog.Group{Name: "csvs", Collection: catalog.KC62, NotApplicable: "not included"},
			want: [][]string{
				{"Parent_Org_Code", "Invited", "Screened"},
				{"R1", "200", "not included"},
				{"R2", "200", "not included"},
				{"R1", "not included", "150"},
				{"R2", "not included", "100"},
			},
		},
		{
			name:  "engine default token",
			group: catalog.Group{Name: "tables", Collection: catalog.KC62, Workbook: "tables.xlsx"},
			want: [][]string{
				{"Parent_Org_Code", "Invited", "Screened"},
				{"R1", "200", "z"},
				{"R2", "200", "z"},
				{"R1", "z", "150"},
				{"R2", "z", "100"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := catalog.Output{Name: "out", WriteType: catalog.WriteCSV, Contents: []catalog.Recipe{invited, screened}}
			got, err := newEngine().Output(screeningRecords(), &tt.group, o)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, grid(got)); diff != "" {
				t.Errorf("Output() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOutput_ColumnDifference(t *testing.T) {
	series := catalog.Recipe{
		Name: "series", Kind: catalog.KindCrosstab,
		Rows: []string{"Parent_Org_Code"}, Filter: `Col_Def == "Invited"`, TSYears: 2,
	}
	o := catalog.Output{
		Name: "change", WriteType: catalog.WriteExcelStatic,
		Contents: []catalog.Recipe{series},
		Updates:  []catalog.Update{{Kind: catalog.UpdateColumnDifference}},
	}
	got, err := newEngine().Output(screeningRecords(), &catalog.Group{Collection: catalog.KC62}, o)
	require.NoError(t, err)

	want := [][]string{
		{"Parent_Org_Code", "Value 2020-21", "Value 2021-22", "Difference"},
		{"R1", "160", "200", "40"},
		{"R2", "160", "200", "40"},
	}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("Output() mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdate_CheckListFlag(t *testing.T) {
	in := table.MustNew([]string{"Org_Code"}, []table.Value{table.Str("AGA")}, []table.Value{table.Str("XYZ")})
	e := newEngine()

	got, err := e.Update(in, catalog.KC62, catalog.Update{
		Kind: catalog.UpdateCheckListFlag, Column: "Org_Code", FlagSet: "bsu_flagged", IfTrue: "Yes", IfFalse: "No",
	})
	require.NoError(t, err)
	want := [][]string{{"Org_Code", "Flagged"}, {"AGA", "Yes"}, {"XYZ", "No"}}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("Update() mismatch (-want +got):\n%s", diff)
	}

	_, err = e.Update(in, catalog.KC63, catalog.Update{Kind: catalog.UpdateCheckListFlag, Column: "Org_Code", FlagSet: "bsu_flagged"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))

	_, err = e.Update(in, catalog.KC62, catalog.Update{Kind: "pivot_longer"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestDashboardTranspose(t *testing.T) {
	n := table.Null()
	in := table.MustNew(
		[]string{"CollectionYearRange", "Parent_Org_Code", "Org_Name", "Uptake", "REG_Uptake", "ENG_Uptake"},
		[]table.Value{table.Str("2021-22"), table.Str("R1"), table.Str("Unit A"), table.Num(75), n, n},
		[]table.Value{table.Str("2021-22"), table.Str("R2"), table.Str("Unit B"), table.Num(50), n, n},
		[]table.Value{table.Str("2021-22"), table.Str("R1"), n, n, table.Num(75), n},
		[]table.Value{table.Str("2021-22"), table.Str("R2"), n, n, table.Num(50), n},
		[]table.Value{table.Str("2021-22"), n, n, n, n, table.Num(62.5)},
	)

	got, err := DashboardTranspose(in, nil)
	require.NoError(t, err)

	want := [][]string{
		{"CollectionYearRange", "Parent_Org_Code", "Org_Name", "Uptake", "REG_Uptake", "ENG_Uptake"},
		{"2021-22", "R1", "Unit A", "75", "75", "62.5"},
		{"2021-22", "R2", "Unit B", "50", "50", "62.5"},
	}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("DashboardTranspose() mismatch (-want +got):\n%s", diff)
	}
}

func TestDashboardTranspose_MissingColumns(t *testing.T) {
	in := table.MustNew([]string{"CollectionYearRange"}, []table.Value{table.Str("2021-22")})
	_, err := DashboardTranspose(in, []string{"Age_Band"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}
