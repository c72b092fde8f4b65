package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bspub/internal/catalog"
	"bspub/internal/config"
	apperrors "bspub/internal/errors"
	"bspub/internal/infrastructure"
	"bspub/internal/measures"
)

const testCatalogYAML = `groups:
  - name: kc62_tables
    collection: KC62
    workbook: tables.xlsx
    outputs:
      - name: Table 1
        write_type: excel_static
        write_cell: B5
        contents:
          - name: uptake_by_region
            kind: crosstab
            rows: [Parent_Org_Code]
            columns: Col_Def
            column_order: [Invited, Screened, Uptake]
  - name: kc62_csv
    collection: KC62
    dir: csv
    not_applicable: not included
    outputs:
      - name: kc62_uptake
        write_type: csv
        contents:
          - name: uptake_csv
            kind: crosstab
            rows: [Parent_Org_Code]
            columns: Col_Def
            column_order: [Invited, Screened, Uptake]
`

// countInputs are the record measures the KC62 count step sums.
var countInputs = []string{
	"Invasive_lessthan10mm", "Invasive_10mmto15mm", "Invasive_15mmto20mm", "Invasive_20mmto50mm",
	"Invasive_50mmplus", "Cancer_non_microinvasive", "Cancer_microinvasive", "Open_biop_RR",
	"Open_biop_STR", "Cyt_bio_cancer", "Open_biop_cancer",
}

// newWorkspace lays out a base directory with a config file, a catalog, a
// template and a KC62 feed, and returns the config path.
func newWorkspace(t *testing.T, withTemplate bool) (string, string) {
	t.Helper()
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	base := t.TempDir()
	for _, dir := range []string{"inputs", "templates", "configs/catalog"} {
		require.NoError(t, os.MkdirAll(filepath.Join(base, dir), 0755))
	}

	cfg := fmt.Sprintf(`logging:
  level: debug
  output: file
  file_path: bspub.log
paths:
  base_dir: %s
  sdr_file: ""
  la_file: ""
  footnote_file: ""
feed:
  kind: csv
  files:
    KC62: kc62.csv
collections:
  KC62:
    ts_years: 1
`, base)
	cfgPath := filepath.Join(base, "bspub.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "configs/catalog/kc62.yaml"), []byte(testCatalogYAML), 0644))

	var feed strings.Builder
	feed.WriteString("CollectionYearRange,Parent_Org_Code,Org_Code,Org_Name,Row_Def,Col_Def,Value\n")
	feed.WriteString("2021-22,R1,AGA,Unit A,50-52,Invited,100\n")
	feed.WriteString("2021-22,R1,AGA,Unit A,50-52,Screened,75\n")
	for _, m := range countInputs {
		fmt.Fprintf(&feed, "2021-22,R1,AGA,Unit A,50-52,%s,1\n", m)
	}
	require.NoError(t, os.WriteFile(filepath.Join(base, "inputs/kc62.csv"), []byte(feed.String()), 0644))

	if withTemplate {
		f := excelize.NewFile()
		defer f.Close()
		require.NoError(t, f.SetSheetName("Sheet1", "Table 1"))
		require.NoError(t, f.SaveAs(filepath.Join(base, "templates/tables.xlsx")))
	}
	return base, cfgPath
}

func TestApplication_Run(t *testing.T) {
	base, cfgPath := newWorkspace(t, true)
	ctx := context.Background()

	a, err := NewApplication(Options{ConfigPath: cfgPath})
	require.NoError(t, err)
	defer a.Stop(ctx)

	assert.Equal(t, []string{catalog.KC62}, a.Collections())
	require.NoError(t, a.Start(ctx))
	require.NoError(t, a.Prepare(ctx))

	res, err := a.Run(ctx)
	require.NoError(t, err)
	require.Len(t, res.Outputs, 2)

	workbook := filepath.Join(base, "outputs", "tables.xlsx")
	uptake := filepath.Join(base, "outputs", "csv", "kc62_uptake.csv")
	assert.Equal(t, []string{workbook, uptake}, res.Files)

	f, err := excelize.OpenFile(workbook)
	require.NoError(t, err)
	defer f.Close()
	for cell, want := range map[string]string{"B5": "R1", "C5": "100", "D5": "75", "E5": "75"} {
		got, err := f.GetCellValue("Table 1", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}

	content, err := os.ReadFile(uptake)
	require.NoError(t, err)
	assert.Equal(t, "Parent_Org_Code,Invited,Screened,Uptake\nR1,100,75,75\n", string(content))

	preview, err := a.Preview("", "Table 1")
	require.NoError(t, err)
	assert.Equal(t, 1, preview.Len())

	assert.FileExists(t, filepath.Join(base, "logs", "bspub.log"))
}

func TestApplication_PrepareReportsMissingFiles(t *testing.T) {
	base, cfgPath := newWorkspace(t, false)
	require.NoError(t, os.Remove(filepath.Join(base, "inputs/kc62.csv")))

	a, err := NewApplication(Options{ConfigPath: cfgPath})
	require.NoError(t, err)
	defer a.Stop(context.Background())

	err = a.Prepare(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	assert.ErrorContains(t, err, "template for kc62_tables")
	assert.ErrorContains(t, err, "KC62 feed")

	_, err = a.Run(context.Background())
	assert.ErrorContains(t, err, "not prepared")
	_, err = a.Preview("", "Table 1")
	assert.ErrorContains(t, err, "not prepared")
}

func TestApplication_MetricsAddr(t *testing.T) {
	_, cfgPath := newWorkspace(t, true)

	a, err := NewApplication(Options{ConfigPath: cfgPath, MetricsAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	defer a.Stop(context.Background())

	assert.True(t, a.Config.Telemetry.Enabled)
	require.NotNil(t, a.MetricsServer)
	assert.NotNil(t, a.OTelProviders.PrometheusHTTP)
	require.NoError(t, a.Start(context.Background()))
}

func TestNewApplication_BadConfig(t *testing.T) {
	infrastructure.ResetLoggerForTesting()
	defer infrastructure.ResetLoggerForTesting()

	_, err := NewApplication(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestFlagSets(t *testing.T) {
	got := FlagSets(map[string]config.CollectionConfig{
		config.KC62: {FlagSets: map[string]map[string][]string{
			"bsu_flagged": {
				"Flag_b": {"DCB"},
				"Flag_a": {"AGA", "LED"},
			},
		}},
		config.KC63: {},
	})

	assert.Equal(t, map[string]map[string][]measures.Flag{
		config.KC62: {"bsu_flagged": {
			{Name: "Flag_a", Values: []string{"AGA", "LED"}},
			{Name: "Flag_b", Values: []string{"DCB"}},
		}},
	}, got)
}
