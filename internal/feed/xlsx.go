package feed

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	apperrors "bspub/internal/errors"
	"bspub/internal/measures"
	"bspub/internal/table"
)

// LoadXLSX reads a sheet whose first row is the header. An empty sheet
// name reads the first sheet of the workbook.
func LoadXLSX(path, sheet string, numeric ...string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open workbook "+path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewParsingError("workbook has no sheets", nil).WithContext("path", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("sheet %q in %s", sheet, path))
	}
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError("sheet has no header row", nil).WithContext("sheet", sheet)
	}

	t, err := fromStrings(rows[0], rows[1:], numeric)
	if err != nil {
		return nil, fmt.Errorf("%s[%s]: %w", path, sheet, err)
	}
	return t, nil
}

// LoadRecordsXLSX reads a record sheet.
func LoadRecordsXLSX(path, sheet string) (*table.Table, error) {
	return LoadXLSX(path, sheet, measures.ValueColumn)
}
