package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "bspub/internal/errors"
	"bspub/internal/measures"
	"bspub/internal/table"
)

// ReadCSV reads a header row followed by records. Columns named in numeric
// are parsed as numbers; every other column is kept as text.
func ReadCSV(r io.Reader, numeric ...string) (*table.Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read CSV", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewParsingError("CSV has no header row", nil)
	}
	header := records[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	return fromStrings(header, records[1:], numeric)
}

// LoadCSVFile reads a CSV file with ReadCSV.
func LoadCSVFile(path string, numeric ...string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(path)
		}
		return nil, apperrors.NewStorageError("failed to open CSV "+path, err)
	}
	defer f.Close()

	t, err := ReadCSV(f, numeric...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadRecords reads a record file in CSV format.
func LoadRecords(path string) (*table.Table, error) {
	return LoadCSVFile(path, measures.ValueColumn)
}

// fromStrings builds a table from raw text rows. Short rows are padded
// with nulls.
func fromStrings(header []string, rows [][]string, numeric []string) (*table.Table, error) {
	isNumeric := make([]bool, len(header))
	for i, c := range header {
		for _, n := range numeric {
			if c == n {
				isNumeric[i] = true
			}
		}
	}

	out := make([][]table.Value, 0, len(rows))
	for r, raw := range rows {
		row := make([]table.Value, len(header))
		for i := range header {
			if i >= len(raw) {
				row[i] = table.Null()
				continue
			}
			if !isNumeric[i] {
				row[i] = table.ParseLabel(strings.TrimSpace(raw[i]))
				continue
			}
			v, err := table.ParseNumber(raw[i])
			if err != nil {
				return nil, apperrors.NewParsingError(fmt.Sprintf("non-numeric %s %q", header[i], raw[i]), err).
					WithContext("row", r+2)
			}
			row[i] = v
		}
		out = append(out, row)
	}

	t, err := table.New(header, out)
	if err != nil {
		return nil, apperrors.NewParsingError("invalid header", err)
	}
	return t, nil
}
