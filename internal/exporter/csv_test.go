package exporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bspub/internal/config"
	"bspub/internal/table"
)

func setupTestEnv(t *testing.T) (*CSVWriter, string) {
	t.Helper()
	tempDir := t.TempDir()
	writer := NewCSVWriter(&config.Paths{OutputDir: filepath.Join(tempDir, "output")}, nil)
	return writer, tempDir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, fullPath string)
	}{
		{
			name:     "basic write with headers",
			filePath: "basic.csv",
			options: WriteOptions{
				Headers: []string{"Org_Code", "Value"},
				Records: [][]string{{"AGA", "12"}, {"XYZ", "7.5"}},
			},
			validate: func(t *testing.T, fullPath string) {
				assert.Equal(t, [][]string{{"Org_Code", "Value"}, {"AGA", "12"}, {"XYZ", "7.5"}}, readCSV(t, fullPath))
			},
		},
		{
			name:     "fields needing quotes",
			filePath: "nested/quoted.csv",
			options: WriteOptions{
				Headers: []string{"Org_Name"},
				Records: [][]string{{"Bath, North East Somerset"}},
			},
			validate: func(t *testing.T, fullPath string) {
				data, err := os.ReadFile(fullPath)
				require.NoError(t, err)
				assert.Contains(t, string(data), `"Bath, North East Somerset"`)
			},
		},
		{
			name:     "no header",
			filePath: "values.csv",
			options:  WriteOptions{Records: [][]string{{"1"}}},
			validate: func(t *testing.T, fullPath string) {
				assert.Equal(t, [][]string{{"1"}}, readCSV(t, fullPath))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, writer.WriteCSV(tt.filePath, tt.options))
			tt.validate(t, filepath.Join(tempDir, "output", tt.filePath))
		})
	}
}

func TestCSVWriter_WriteCSVReplacesFile(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	require.NoError(t, writer.WriteCSV("out.csv", WriteOptions{Records: [][]string{{"a"}, {"b"}}}))
	require.NoError(t, writer.WriteCSV("out.csv", WriteOptions{Records: [][]string{{"c"}}}))

	assert.Equal(t, [][]string{{"c"}}, readCSV(t, filepath.Join(tempDir, "output", "out.csv")))
}

func TestCSVWriter_WriteTable(t *testing.T) {
	writer, tempDir := setupTestEnv(t)
	tbl := table.MustNew([]string{"Org_Code", "Value", "Flag"},
		[]table.Value{table.Str("AGA"), table.Num(12.5), table.Null()},
		[]table.Value{table.Str("XYZ"), table.Num(3), table.Str("z")},
	)

	path, err := writer.WriteTable("csv", "kc62_bsu", tbl)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "output", "csv", "kc62_bsu.csv"), path)
	assert.Equal(t, [][]string{
		{"Org_Code", "Value", "Flag"},
		{"AGA", "12.5", ""},
		{"XYZ", "3", "z"},
	}, readCSV(t, path))
}
