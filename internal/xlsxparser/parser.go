// =============================================================================
// Academic Bulk Importer - XLSX Decoder
// =============================================================================
//
// This module reads an import workbook into raw rows.
//
// WORKBOOK LAYOUT:
//   - One sheet (the first, unless a sheet name is configured)
//   - One header row (row 1 unless configured) holding the template headers
//   - Data rows below it; fully blank rows are skipped
//
// Every RawRow carries the visible spreadsheet row number so that messages in
// the validation report point at the line the user sees in Excel.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/evalify/evalify-sub003/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options selects the sheet and header row of the workbook.
type Options struct {
	// SheetName is the sheet to read. Empty means the first sheet.
	SheetName string

	// HeaderRow is the 1-based row holding the column headers.
	// Default: 1
	HeaderRow int
}

// DefaultOptions returns the options matching the import template.
func DefaultOptions() Options {
	return Options{HeaderRow: 1}
}

// Result is a decoded workbook.
type Result struct {
	// Sheet is the name of the sheet that was read.
	Sheet string

	// Headers are the trimmed header cells in column order.
	Headers []string

	// Rows are the non-blank data rows in file order.
	Rows []types.RawRow
}

// =============================================================================
// MAIN PARSING FUNCTIONS
// =============================================================================

// ParseFile opens and decodes the workbook at path.
func ParseFile(path string, opts Options) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return parse(f, opts)
}

// Parse decodes a workbook from r.
//
// PARAMETERS:
//   - r: The workbook bytes.
//   - opts: Sheet and header row selection.
//
// RETURNS:
//   - The decoded headers and rows.
//   - An error if the workbook cannot be read or has no header row.
func Parse(r io.Reader, opts Options) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return parse(f, opts)
}

func parse(f *excelize.File, opts Options) (*Result, error) {
	if opts.HeaderRow <= 0 {
		opts.HeaderRow = 1
	}

	sheet := opts.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < opts.HeaderRow {
		return nil, fmt.Errorf("sheet %q has no header row", sheet)
	}

	headers := cleanHeaders(rows[opts.HeaderRow-1])
	res := &Result{Sheet: sheet, Headers: headers}

	for i := opts.HeaderRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}
		res.Rows = append(res.Rows, types.RawRow{
			Number: i + 1,
			Fields: zipRow(headers, row),
		})
	}
	return res, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// zipRow pairs cells with their headers. Cells without a header are dropped;
// missing trailing cells become empty strings.
func zipRow(headers, row []string) map[string]string {
	fields := make(map[string]string, len(headers))
	for col, h := range headers {
		if h == "" {
			continue
		}
		if col < len(row) {
			fields[h] = row[col]
		} else {
			fields[h] = ""
		}
	}
	return fields
}

func cleanHeaders(row []string) []string {
	out := make([]string, len(row))
	for i, h := range row {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
