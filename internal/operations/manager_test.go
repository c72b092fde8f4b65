package operations_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bspub/internal/catalog"
	"bspub/internal/config"
	apperrors "bspub/internal/errors"
	"bspub/internal/infrastructure"
	"bspub/internal/operations"
	"bspub/internal/shared/testutil"
	"bspub/internal/table"
)

// fakeBuilder returns a canned table per output name and records the
// outputs it was asked for.
type fakeBuilder struct {
	tables map[string]*table.Table
	fail   map[string]error
	built  []string
}

func (b *fakeBuilder) Output(records *table.Table, g *catalog.Group, o catalog.Output) (*table.Table, error) {
	b.built = append(b.built, o.Name)
	if err := b.fail[o.Name]; err != nil {
		return nil, err
	}
	if t, ok := b.tables[o.Name]; ok {
		return t, nil
	}
	return records, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testPaths creates templates/kc62.xlsx with sheets Table 1 and Data.
func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	base := t.TempDir()
	paths := &config.Paths{
		BaseDir:      base,
		TemplatesDir: filepath.Join(base, "templates"),
		OutputDir:    filepath.Join(base, "outputs"),
	}
	require.NoError(t, os.MkdirAll(paths.TemplatesDir, 0755))

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Table 1"))
	require.NoError(t, f.SetCellValue("Table 1", "A1", "Table 1: Coverage"))
	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	require.NoError(t, f.SaveAs(paths.TemplatePath("kc62.xlsx")))
	return paths
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{Groups: []catalog.Group{
		{
			Name: "kc62_tables", Collection: catalog.KC62, Workbook: "kc62.xlsx",
			Outputs: []catalog.Output{{Name: "Table 1", WriteType: catalog.WriteExcelStatic, WriteCell: "B3"}},
		},
		{
			Name: "kc62_csv", Collection: catalog.KC62, Dir: "csv",
			Outputs: []catalog.Output{{Name: "kc62_tidy", WriteType: catalog.WriteCSV}},
		},
		{
			Name: "kc62_data", Collection: catalog.KC62, Workbook: "kc62.xlsx",
			Outputs: []catalog.Output{{Name: "Data", WriteType: catalog.WriteExcelSheet}},
		},
	}}
}

func testRecords() map[string]*table.Table {
	return map[string]*table.Table{
		catalog.KC62: table.MustNew([]string{"Row_Def", "Value"},
			[]table.Value{table.Str("50-52"), table.Num(30)},
			[]table.Value{table.Str("53-54"), table.Num(20)},
		),
	}
}

func TestManagerRun(t *testing.T) {
	paths := testPaths(t)
	builder := &fakeBuilder{tables: map[string]*table.Table{
		"Table 1": table.MustNew([]string{"Screened", "Coverage"},
			[]table.Value{table.Num(120), table.Num(75.5)},
		),
	}}
	logger, logs := testutil.NewTestLogger(t)
	m := operations.NewManager(builder, operations.Options{Paths: paths}, logger)

	res, err := m.Run(context.Background(), testCatalog(), testRecords())
	require.NoError(t, err)
	testutil.AssertNoErrors(t, logs)
	testutil.AssertLogAttr(t, logs, "destination_saved", "destination", "workbook:kc62.xlsx")
	testutil.AssertLogAttr(t, logs, "run_complete", "component", "operations")

	assert.Equal(t, []string{"Table 1", "Data", "kc62_tidy"}, builder.built)
	require.Len(t, res.Outputs, 3)
	assert.Equal(t, 1, res.Outputs[0].Rows)
	assert.Equal(t, 2, res.Outputs[2].Rows)

	workbook := filepath.Join(paths.OutputDir, "kc62.xlsx")
	tidy := filepath.Join(paths.OutputDir, "csv", "kc62_tidy.csv")
	assert.Equal(t, []string{workbook, tidy}, res.Files)

	f, err := excelize.OpenFile(workbook)
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetCellValue("Table 1", "C3")
	require.NoError(t, err)
	assert.Equal(t, "75.5", got)
	got, err = f.GetCellValue("Data", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Row_Def", got)

	content, err := os.ReadFile(tidy)
	require.NoError(t, err)
	assert.Equal(t, "Row_Def,Value\n50-52,30\n53-54,20\n", string(content))

	template, err := excelize.OpenFile(paths.TemplatePath("kc62.xlsx"))
	require.NoError(t, err)
	defer template.Close()
	got, err = template.GetCellValue("Table 1", "C3")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestManagerRun_FailFast(t *testing.T) {
	paths := testPaths(t)
	missing := apperrors.NewConfigError("missing columns: Screened", nil)
	builder := &fakeBuilder{fail: map[string]error{"Data": missing}}
	logger, logs := testutil.NewTestLogger(t)
	m := operations.NewManager(builder, operations.Options{Paths: paths}, logger)

	res, err := m.Run(context.Background(), testCatalog(), testRecords())
	require.Error(t, err)
	testutil.AssertLogAttr(t, logs, "run_error", "error_type", "build")
	testutil.AssertLogAttr(t, logs, "run_complete", "status", "failed")

	var opErr *operations.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, operations.ErrorTypeBuild, opErr.Type)
	assert.Equal(t, "kc62_data", opErr.Group)
	assert.Equal(t, "Data", opErr.Output)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))

	assert.Equal(t, []string{"Table 1", "Data"}, builder.built)
	assert.Len(t, res.Outputs, 1)
	assert.Empty(t, res.Files)
	assert.NoFileExists(t, filepath.Join(paths.OutputDir, "kc62.xlsx"))
}

func TestManagerRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		ctx      func() context.Context
		catalog  func() *catalog.Catalog
		records  map[string]*table.Table
		wantType operations.ErrorType
		validate func(t *testing.T, err error, built []string)
	}{
		{
			name:     "no records for collection",
			ctx:      context.Background,
			catalog:  testCatalog,
			records:  map[string]*table.Table{},
			wantType: operations.ErrorTypeValidation,
			validate: func(t *testing.T, err error, built []string) {
				assert.ErrorContains(t, err, "no records loaded for KC62")
				assert.Empty(t, built)
			},
		},
		{
			name: "cancelled",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			catalog:  testCatalog,
			records:  testRecords(),
			wantType: operations.ErrorTypeCancellation,
			validate: func(t *testing.T, err error, built []string) {
				assert.ErrorIs(t, err, context.Canceled)
				assert.Empty(t, built)
			},
		},
		{
			name: "missing template",
			ctx:  context.Background,
			catalog: func() *catalog.Catalog {
				c := testCatalog()
				c.Groups[0].Workbook = "kc63.xlsx"
				return c
			},
			records:  testRecords(),
			wantType: operations.ErrorTypeWrite,
			validate: func(t *testing.T, err error, built []string) {
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
				assert.Empty(t, built)
			},
		},
		{
			name: "missing sheet",
			ctx:  context.Background,
			catalog: func() *catalog.Catalog {
				c := testCatalog()
				c.Groups[0].Outputs[0].Name = "Table 2"
				return c
			},
			records:  testRecords(),
			wantType: operations.ErrorTypeWrite,
			validate: func(t *testing.T, err error, built []string) {
				assert.ErrorContains(t, err, "Table 2")
				assert.Equal(t, []string{"Table 2"}, built)
			},
		},
		{
			name: "footnotes without reference file",
			ctx:  context.Background,
			catalog: func() *catalog.Catalog {
				c := testCatalog()
				c.Groups[0].Footnotes = []catalog.Footnote{{Sheet: "Table 1", StartCell: "A5", OrgColumn: "A"}}
				return c
			},
			records:  testRecords(),
			wantType: operations.ErrorTypeWrite,
			validate: func(t *testing.T, err error, built []string) {
				assert.ErrorContains(t, err, "adding footnotes")
				assert.Equal(t, []string{"Table 1", "Data"}, built)
			},
		},
		{
			name: "duplicate group",
			ctx:  context.Background,
			catalog: func() *catalog.Catalog {
				c := testCatalog()
				c.Groups[2].Name = "kc62_tables"
				return c
			},
			records:  testRecords(),
			wantType: operations.ErrorTypeValidation,
			validate: func(t *testing.T, err error, built []string) {
				assert.ErrorContains(t, err, "already registered")
				assert.Empty(t, built)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := &fakeBuilder{}
			m := operations.NewManager(builder, operations.Options{Paths: testPaths(t)}, quietLogger())

			_, err := m.Run(tt.ctx(), tt.catalog(), tt.records)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, operations.GetErrorType(err))
			tt.validate(t, err, builder.built)
		})
	}
}

func TestManagerPreview(t *testing.T) {
	builder := &fakeBuilder{}
	m := operations.NewManager(builder, operations.Options{Paths: testPaths(t)}, quietLogger())
	cat := testCatalog()

	got, err := m.Preview(cat, testRecords(), "", "kc62_tidy")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())

	_, err = m.Preview(cat, testRecords(), "kc62_tables", "kc62_tidy")
	assert.ErrorIs(t, err, operations.ErrOutputNotFound)

	builder.fail = map[string]error{"Data": errors.New("boom")}
	_, err = m.Preview(cat, testRecords(), "kc62_data", "Data")
	assert.Equal(t, operations.ErrorTypeBuild, operations.GetErrorType(err))
}

func TestManagerRun_Metrics(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    infrastructure.ServiceName,
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		SampleRatio:    1,
	}, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	tracer, err := operations.NewOutputTracer(providers)
	require.NoError(t, err)
	m := operations.NewManager(&fakeBuilder{}, operations.Options{Paths: testPaths(t), Tracer: tracer}, quietLogger())

	_, err = m.Run(context.Background(), testCatalog(), testRecords())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "publication_outputs_total")
	assert.Contains(t, body, "publication_workbooks_saved_total")
	assert.Contains(t, body, "publication_runs_total")
	assert.Contains(t, body, `write_type="excel_sheet"`)
}
