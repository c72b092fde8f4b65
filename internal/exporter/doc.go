// Package exporter writes finished outputs to CSV files and Excel
// templates.
//
// This package contains two main components:
//
// CSVWriter: writes a table with its header to <dir>/<name>.csv under the
// output directory.
//
// Workbook: an Excel template opened with excelize. Each output is written
// to the sheet named after it using one of three write types:
//
//   - excel_static: values only, at the write cell, over a block of fixed size
//   - excel_variable: the existing block below the write cell is deleted and
//     rows are inserted to fit the new table
//   - excel_sheet: the sheet is cleared and the table is written with its
//     header at A1
//
// Separator columns in the template are listed as column letters and are
// filled with blanks before writing. After a group's outputs are written,
// footnote references can be appended to organisation names as superscript.
// The filled workbook is saved to the output directory; the template is
// never modified.
//
// Example usage:
//
//	wb, err := exporter.OpenWorkbook(paths.TemplatePath("tables.xlsx"), paths.WorkbookPath("tables.xlsx"), logger)
//	if err != nil {
//		return err
//	}
//	defer wb.Close()
//
//	if err := wb.Write(output, finished); err != nil {
//		return err
//	}
//	return wb.Save()
package exporter
