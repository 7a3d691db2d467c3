// =============================================================================
// Academic Bulk Importer - CSV Decoder
// =============================================================================
//
// This module reads a CSV export of the import template into raw rows.
//
// PARSING PROCESS:
//   1. Strip a UTF-8 byte order mark (spreadsheet exports add one)
//   2. Configure the CSV reader with the delimiter
//   3. Read the single header row
//   4. Convert each non-blank data row to a map of header -> value
//
// Row numbers are the 1-based line of the record in the file, so they match
// the row a user sees after opening the CSV in a spreadsheet program.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/evalify/evalify-sub003/internal/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options contains CSV parsing settings.
type Options struct {
	// Delimiter is the field separator: ",", ";", "tab" or "|".
	// Default: ","
	Delimiter string
}

// Result is a decoded CSV file.
type Result struct {
	Headers []string
	Rows    []types.RawRow
}

// =============================================================================
// MAIN PARSING FUNCTIONS
// =============================================================================

// ParseFile opens and decodes the CSV file at path.
func ParseFile(path string, opts Options) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return Parse(file, opts)
}

// Parse decodes CSV records from r.
//
// RETURNS:
//   - The header row and the non-blank data rows.
//   - An error if the input is not valid CSV or is empty.
func Parse(r io.Reader, opts Options) (*Result, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	configureReader(reader, opts)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("CSV file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	res := &Result{Headers: cleanHeaders(header)}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		if isRowEmpty(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		res.Rows = append(res.Rows, types.RawRow{
			Number: line,
			Fields: zipRow(res.Headers, record),
		})
	}
	return res, nil
}

// configureReader applies the delimiter and the lenient settings spreadsheet
// exports need.
func configureReader(reader *csv.Reader, opts Options) {
	switch opts.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case ";", "semicolon":
		reader.Comma = ';'
	case "pipe", "PIPE":
		reader.Comma = '|'
	default:
		if len(opts.Delimiter) > 0 {
			reader.Comma = rune(opts.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func cleanHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func zipRow(headers, record []string) map[string]string {
	fields := make(map[string]string, len(headers))
	for col, h := range headers {
		if h == "" {
			continue
		}
		if col < len(record) {
			fields[h] = record[col]
		} else {
			fields[h] = ""
		}
	}
	return fields
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
