package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"bspub/internal/catalog"
	apperrors "bspub/internal/errors"
	"bspub/internal/table"
)

// Workbook is an Excel template opened for writing. Outputs are written
// into sheets named after them and the result is saved to a separate path
// so the template is never modified.
type Workbook struct {
	f      *excelize.File
	path   string
	logger *slog.Logger
}

// OpenWorkbook opens the template. Save writes the filled workbook to out.
func OpenWorkbook(template, out string, logger *slog.Logger) (*Workbook, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := excelize.OpenFile(template)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("workbook template " + template)
		}
		return nil, apperrors.NewStorageError("failed to open workbook template "+template, err)
	}
	logger.Info("Opened workbook template", slog.String("template", template), slog.String("output", out))
	return &Workbook{f: f, path: out, logger: logger}, nil
}

// Path returns where the workbook is saved.
func (w *Workbook) Path() string {
	return w.path
}

// Write writes an output with its write type.
func (w *Workbook) Write(o catalog.Output, t *table.Table) error {
	switch o.WriteType {
	case catalog.WriteExcelStatic:
		return w.WriteStatic(o.Name, o.WriteCell, t, o.EmptyCols)
	case catalog.WriteExcelVariable:
		return w.WriteVariable(o.Name, o.WriteCell, t, o.EmptyCols)
	case catalog.WriteExcelSheet:
		return w.WriteSheet(o.Name, t)
	default:
		return apperrors.NewInvalidValueError("write_type", o.WriteType,
			[]string{catalog.WriteExcelStatic, catalog.WriteExcelVariable, catalog.WriteExcelSheet})
	}
}

// WriteStatic writes the values of t, without headers, with the top left
// value at writeCell. The template block is assumed to have the same
// size as t.
func (w *Workbook) WriteStatic(sheet, writeCell string, t *table.Table, emptyCols []string) error {
	if err := w.requireSheet(sheet); err != nil {
		return err
	}
	t, err := InsertEmptyColumns(t, emptyCols, writeCell)
	if err != nil {
		return err
	}
	w.logger.Info("Writing data to sheet", slog.String("sheet", sheet), slog.String("write_cell", writeCell), slog.Int("rows", t.Len()))
	return w.writeValues(sheet, writeCell, t)
}

// WriteVariable replaces a block whose length changes between years. The
// rows from writeCell down to the last non-empty cell below it are
// deleted, len(t) rows are inserted in their place, and the values of t
// are written at writeCell.
func (w *Workbook) WriteVariable(sheet, writeCell string, t *table.Table, emptyCols []string) error {
	if err := w.requireSheet(sheet); err != nil {
		return err
	}
	t, err := InsertEmptyColumns(t, emptyCols, writeCell)
	if err != nil {
		return err
	}
	first, err := CellRow(writeCell)
	if err != nil {
		return err
	}
	col, err := CellColumn(writeCell)
	if err != nil {
		return err
	}

	last, err := w.lastFilledRow(sheet, col, first)
	if err != nil {
		return err
	}
	for r := first; r <= last; r++ {
		if err := w.f.RemoveRow(sheet, first); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to delete row %d of %s", first, sheet), err)
		}
	}
	if t.Len() > 0 {
		if err := w.f.InsertRows(sheet, first, t.Len()); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to insert rows into %s", sheet), err)
		}
	}

	w.logger.Info("Writing data to sheet",
		slog.String("sheet", sheet),
		slog.String("write_cell", writeCell),
		slog.Int("rows_deleted", last-first+1),
		slog.Int("rows", t.Len()))
	return w.writeValues(sheet, writeCell, t)
}

// WriteSheet clears every value on the sheet and writes t with its header
// at A1.
func (w *Workbook) WriteSheet(sheet string, t *table.Table) error {
	if err := w.requireSheet(sheet); err != nil {
		return err
	}
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return apperrors.NewStorageError("failed to read sheet "+sheet, err)
	}
	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			if err := w.f.SetCellValue(sheet, cellName(c+1, r+1), nil); err != nil {
				return apperrors.NewStorageError("failed to clear sheet "+sheet, err)
			}
		}
	}

	w.logger.Info("Writing data to sheet", slog.String("sheet", sheet), slog.String("write_cell", "A1"), slog.Int("rows", t.Len()))
	header := make([]interface{}, t.Width())
	for i, c := range t.Columns() {
		header[i] = c
	}
	if err := w.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return apperrors.NewStorageError("failed to write header to "+sheet, err)
	}
	return w.writeValues(sheet, "A2", t)
}

// Save writes the workbook to its output path.
func (w *Workbook) Save() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err)
	}
	if err := w.f.SaveAs(w.path); err != nil {
		return apperrors.NewStorageError("failed to save workbook "+w.path, err)
	}
	w.logger.Info("Saved workbook", slog.String("path", w.path))
	return nil
}

// Close releases the workbook without saving.
func (w *Workbook) Close() error {
	return w.f.Close()
}

func (w *Workbook) requireSheet(sheet string) error {
	idx, err := w.f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("sheet %q", sheet))
	}
	return nil
}

func (w *Workbook) writeValues(sheet, writeCell string, t *table.Table) error {
	row, err := CellRow(writeCell)
	if err != nil {
		return err
	}
	col, err := CellColumn(writeCell)
	if err != nil {
		return err
	}
	for i, r := range t.Records() {
		values := rowValues(r)
		if err := w.f.SetSheetRow(sheet, cellName(col, row+i), &values); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write row %d to %s", row+i, sheet), err)
		}
	}
	return nil
}

// lastFilledRow returns the last row of the contiguous non-empty cells in
// col starting at row first, or first-1 when the first cell is empty.
func (w *Workbook) lastFilledRow(sheet string, col, first int) (int, error) {
	last := first - 1
	for r := first; ; r++ {
		v, err := w.f.GetCellValue(sheet, cellName(col, r))
		if err != nil {
			return 0, apperrors.NewStorageError("failed to read "+sheet, err)
		}
		if v == "" {
			return last, nil
		}
		last = r
	}
}

// InsertEmptyColumns adds a blank column for each separator column letter
// of the template, positioned relative to writeCell. Letters are applied in
// order so later letters see the columns already inserted.
func InsertEmptyColumns(t *table.Table, letters []string, writeCell string) (*table.Table, error) {
	out := t
	for _, letter := range letters {
		pos, err := ColumnOffset(letter, writeCell)
		if err != nil {
			return nil, err
		}
		if pos > out.Width() {
			return nil, apperrors.NewConfigError(
				fmt.Sprintf("empty column %s is beyond the %d columns written at %s", letter, out.Width(), writeCell), nil)
		}
		if out, err = out.InsertColumn(pos, "empty_"+letter, table.Str("")); err != nil {
			return nil, err
		}
	}
	return out, nil
}
