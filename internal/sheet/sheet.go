// =============================================================================
// Academic Bulk Importer - Import File Decoding
// =============================================================================
//
// This module turns an uploaded import file into raw rows.
//
// DECODING STEPS:
//   1. Pick the decoder from the file extension (.xlsx or .csv)
//   2. Decode the header row and every non-blank data row
//   3. Check that the required template columns are present
//
// =============================================================================

package sheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/evalify/evalify-sub003/internal/converter"
	"github.com/evalify/evalify-sub003/internal/csvparser"
	"github.com/evalify/evalify-sub003/internal/types"
	"github.com/evalify/evalify-sub003/internal/xlsxparser"
)

// ErrUnsupportedFormat is returned for files that are neither XLSX nor CSV.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrMissingColumns is returned when required template columns are absent.
var ErrMissingColumns = errors.New("missing required columns")

// RequiredHeaders are the template columns a file must carry. Course
// Description is optional.
var RequiredHeaders = []string{
	types.HeaderSemesterName,
	types.HeaderCourseName,
	types.HeaderCourseCode,
	types.HeaderCourseType,
	types.HeaderInstructors,
	types.HeaderBatches,
}

// Options configures decoding.
type Options struct {
	SheetName    string
	HeaderRow    int
	CSVDelimiter string
}

// Decode reads r as the format implied by name's extension.
func Decode(name string, r io.Reader, opts Options) ([]types.RawRow, error) {
	var (
		headers []string
		rows    []types.RawRow
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		res, err := xlsxparser.Parse(r, xlsxparser.Options{SheetName: opts.SheetName, HeaderRow: opts.HeaderRow})
		if err != nil {
			return nil, err
		}
		headers, rows = res.Headers, res.Rows
	case ".csv", ".txt":
		res, err := csvparser.Parse(r, csvparser.Options{Delimiter: opts.CSVDelimiter})
		if err != nil {
			return nil, err
		}
		headers, rows = res.Headers, res.Rows
	default:
		return nil, fmt.Errorf("%w: %q (expected .xlsx or .csv)", ErrUnsupportedFormat, ext)
	}

	if err := CheckHeaders(headers); err != nil {
		return nil, err
	}
	return rows, nil
}

// CheckHeaders reports every required column missing from headers. Matching
// ignores case and repeated whitespace.
func CheckHeaders(headers []string) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[converter.HeaderKey(h)] = true
	}
	var missing []string
	for _, h := range RequiredHeaders {
		if !present[converter.HeaderKey(h)] {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}
