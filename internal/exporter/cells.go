package exporter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "bspub/internal/errors"
)

// CellRow returns the row number of a cell reference: C23 is 23.
func CellRow(cell string) (int, error) {
	_, row, err := excelize.CellNameToCoordinates(strings.ToUpper(cell))
	if err != nil {
		return 0, apperrors.NewConfigError(fmt.Sprintf("invalid cell %q", cell), err)
	}
	return row, nil
}

// CellColumn returns the column number of a cell reference: C23 is 3.
func CellColumn(cell string) (int, error) {
	col, _, err := excelize.CellNameToCoordinates(strings.ToUpper(cell))
	if err != nil {
		return 0, apperrors.NewConfigError(fmt.Sprintf("invalid cell %q", cell), err)
	}
	return col, nil
}

// ColumnNumber returns the number of a column letter: D is 4, AA is 27.
func ColumnNumber(letter string) (int, error) {
	n, err := excelize.ColumnNameToNumber(letter)
	if err != nil {
		return 0, apperrors.NewConfigError(fmt.Sprintf("invalid column %q", letter), err)
	}
	return n, nil
}

// ColumnOffset returns the zero-based table column that lands in the
// column letter when the table is written at writeCell. With writeCell B10,
// column D is offset 2.
func ColumnOffset(letter, writeCell string) (int, error) {
	n, err := ColumnNumber(letter)
	if err != nil {
		return 0, err
	}
	start, err := CellColumn(writeCell)
	if err != nil {
		return 0, err
	}
	if n < start {
		return 0, apperrors.NewConfigError(fmt.Sprintf("column %s is left of write cell %s", letter, writeCell), nil)
	}
	return n - start, nil
}

// cellName joins a column number and row number.
func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
