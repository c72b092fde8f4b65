package exporter

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"bspub/internal/catalog"
	apperrors "bspub/internal/errors"
	"bspub/internal/table"
)

// Footnote reference file columns.
const (
	FootnoteSheetColumn = "sheetname"
	FootnoteRefColumn   = "footnote_ref"
)

// AddFootnoteRefs appends footnote references to the organisation names of
// a sheet. Names are read from fn.StartCell down to the first empty cell.
// A reference row matches when any of its cells equals the organisation
// name and, when fn.RegionColumn is set, any cell equals the region too.
// The reference is written as a superscript run after the name. It returns
// the number of cells updated.
func (w *Workbook) AddFootnoteRefs(fn catalog.Footnote, refs *table.Table) (int, error) {
	if refs == nil {
		return 0, apperrors.NewNotFoundError("footnote reference data")
	}
	if err := refs.Require(FootnoteSheetColumn, FootnoteRefColumn); err != nil {
		return 0, err
	}
	if err := w.requireSheet(fn.Sheet); err != nil {
		return 0, err
	}
	rows := refs.Filter(func(r table.Row) bool {
		v, _ := r.Get(FootnoteSheetColumn)
		return v.IsLabel(fn.Sheet)
	})

	orgCol, err := ColumnNumber(fn.OrgColumn)
	if err != nil {
		return 0, err
	}
	regionCol := 0
	if fn.RegionColumn != "" {
		if regionCol, err = ColumnNumber(fn.RegionColumn); err != nil {
			return 0, err
		}
	}
	first, err := CellRow(fn.StartCell)
	if err != nil {
		return 0, err
	}
	last, err := w.lastFilledRow(fn.Sheet, orgCol, first)
	if err != nil {
		return 0, err
	}

	updated := 0
	for r := first; r <= last; r++ {
		cell := cellName(orgCol, r)
		org, err := w.f.GetCellValue(fn.Sheet, cell)
		if err != nil {
			return updated, apperrors.NewStorageError("failed to read "+cell, err)
		}
		region := org
		if regionCol > 0 {
			if region, err = w.f.GetCellValue(fn.Sheet, cellName(regionCol, r)); err != nil {
				return updated, apperrors.NewStorageError("failed to read region of row "+fmt.Sprint(r), err)
			}
		}

		ref, ok := matchFootnote(rows, org, region)
		if !ok {
			continue
		}
		runs := []excelize.RichTextRun{
			{Text: org},
			{Text: ref, Font: &excelize.Font{VertAlign: "superscript"}},
		}
		if err := w.f.SetCellRichText(fn.Sheet, cell, runs); err != nil {
			return updated, apperrors.NewStorageError("failed to write footnote to "+cell, err)
		}
		updated++
	}

	w.logger.Info("Updated footnote references",
		slog.String("sheet", fn.Sheet),
		slog.Int("rows_checked", last-first+1),
		slog.Int("updated", updated))
	return updated, nil
}

// matchFootnote returns the reference of the first row containing both
// values.
func matchFootnote(refs *table.Table, org, region string) (string, bool) {
	for i := 0; i < refs.Len(); i++ {
		row := refs.Row(i)
		if !row.Contains(org) || !row.Contains(region) {
			continue
		}
		v, _ := row.Get(FootnoteRefColumn)
		if s, ok := v.Text(); ok {
			return s, true
		}
		if !v.IsNull() {
			return v.String(), true
		}
	}
	return "", false
}
