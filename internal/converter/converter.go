// =============================================================================
// Academic Bulk Importer - Row Parser
// =============================================================================
//
// This module turns decoded spreadsheet rows into typed candidate rows.
//
// PARSING PIPELINE (per row):
//   1. Locate each template column (header match ignores case and spacing)
//   2. Normalize the cell with the column's transformation chain
//   3. Split the pipe-delimited instructor and batch columns
//   4. Recognise the course type literal
//
// The parser has no network access and never fails. Missing or unusable
// cells become empty strings or empty lists and are reported by the field
// checks in the validation package.
//
// =============================================================================

package converter

import (
	"sort"
	"strings"

	"github.com/evalify/evalify-sub003/internal/types"
)

// HeaderRowOffset is added to a zero-based data index to obtain the visible
// spreadsheet row when the decoder did not supply one (row 1 is the header).
const HeaderRowOffset = 2

// =============================================================================
// PARSING FUNCTIONS
// =============================================================================

// ParseRows converts every raw row, preserving order.
func ParseRows(raw []types.RawRow) []*types.CandidateRow {
	rows := make([]*types.CandidateRow, 0, len(raw))
	for i, r := range raw {
		number := r.Number
		if number <= 0 {
			number = i + HeaderRowOffset
		}
		rows = append(rows, ParseRow(r, number))
	}
	return rows
}

// ParseRow converts one raw row.
//
// PARAMETERS:
//   - raw: The decoded spreadsheet row.
//   - rowNumber: The 1-based visible spreadsheet row.
//
// RETURNS:
//   - A CandidateRow with normalized strings and no resolved references.
func ParseRow(raw types.RawRow, rowNumber int) *types.CandidateRow {
	cells := indexCells(raw.Fields)
	get := func(header string) string {
		return Transform(header, cells[headerKey(header)])
	}

	row := &types.CandidateRow{
		RowNumber:         rowNumber,
		SemesterName:      get(types.HeaderSemesterName),
		CourseName:        get(types.HeaderCourseName),
		CourseCode:        get(types.HeaderCourseCode),
		CourseDescription: get(types.HeaderCourseDescription),
		CourseTypeRaw:     get(types.HeaderCourseType),
		InstructorRefs:    SplitPipe(get(types.HeaderInstructors)),
		BatchRefs:         SplitPipe(get(types.HeaderBatches)),
	}
	if t, ok := types.ParseCourseType(row.CourseTypeRaw); ok {
		row.CourseType = t
	}
	return row
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// indexCells re-keys the row by normalized header so that "course code" and
// " Course  Code " both find the Course Code column. When two headers collide
// the first non-empty value in sorted header order wins.
func indexCells(fields map[string]string) map[string]string {
	headers := make([]string, 0, len(fields))
	for header := range fields {
		headers = append(headers, header)
	}
	sort.Strings(headers)

	out := make(map[string]string, len(fields))
	for _, header := range headers {
		value := fields[header]
		key := headerKey(header)
		if existing, ok := out[key]; ok && strings.TrimSpace(existing) != "" {
			continue
		}
		out[key] = value
	}
	return out
}

// headerKey lower-cases a header and collapses its whitespace.
func headerKey(header string) string {
	return strings.ToLower(strings.Join(strings.Fields(header), " "))
}

// HeaderKey exposes the header normalization used by the parser so decoders
// can check for required columns the same way.
func HeaderKey(header string) string { return headerKey(header) }
