// =============================================================================
// Academic Bulk Importer - Validation Report
// =============================================================================
//
// This module aggregates a validated import into the report shown to the user
// before they confirm the commit.
//
// REPORT CONTENTS:
//   - One entry per input row: pass/fail and the ordered error messages
//   - Summary counts: total, valid, invalid, semesters to create
//   - The semesters the commit would create
//
// OUTPUT FORMATS:
//   - Text table for the terminal
//   - JSON (HTTP responses and report files)
//   - XLSX workbook with invalid rows highlighted
//
// =============================================================================

package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/evalify/evalify-sub003/internal/types"
)

// =============================================================================
// REPORT STRUCTURE
// =============================================================================

// RowResult is the outcome of one row.
type RowResult struct {
	RowNumber             int      `json:"row_number"`
	SemesterName          string   `json:"semester_name"`
	CourseCode            string   `json:"course_code"`
	CourseName            string   `json:"course_name"`
	Valid                 bool     `json:"valid"`
	NeedsSemesterCreation bool     `json:"needs_semester_creation"`
	Errors                []string `json:"errors"`
}

// Summary holds the report counts.
type Summary struct {
	TotalRows        int                     `json:"total_rows"`
	ValidRows        int                     `json:"valid_rows"`
	InvalidRows      int                     `json:"invalid_rows"`
	SemestersToAdd   int                     `json:"semesters_to_create"`
	ErrorsByCategory map[types.ErrorKind]int `json:"errors_by_category"`
}

// Report is the validation report of one import.
type Report struct {
	ImportID    string                  `json:"import_id"`
	Source      string                  `json:"source"`
	GeneratedAt time.Time               `json:"generated_at"`
	Summary     Summary                 `json:"summary"`
	Rows        []RowResult             `json:"rows"`
	Pending     []types.PendingSemester `json:"pending_semesters"`
}

// Build creates a report from the validated rows.
//
// PARAMETERS:
//   - importID, source: Identify the import in the output.
//   - rows: The validated rows in spreadsheet order.
//   - pending: The semesters the commit would create.
//   - now: The report timestamp.
func Build(importID, source string, rows []*types.CandidateRow, pending []types.PendingSemester, now time.Time) *Report {
	rep := &Report{
		ImportID:    importID,
		Source:      source,
		GeneratedAt: now,
		Rows:        make([]RowResult, 0, len(rows)),
		Pending:     append([]types.PendingSemester{}, pending...),
		Summary: Summary{
			TotalRows:        len(rows),
			SemestersToAdd:   len(pending),
			ErrorsByCategory: map[types.ErrorKind]int{},
		},
	}

	for _, row := range rows {
		res := RowResult{
			RowNumber:             row.RowNumber,
			SemesterName:          row.SemesterName,
			CourseCode:            row.CourseCode,
			CourseName:            row.CourseName,
			Valid:                 row.IsValid(),
			NeedsSemesterCreation: row.NeedsSemesterCreation,
			Errors:                row.ErrorMessages(),
		}
		if res.Valid {
			rep.Summary.ValidRows++
		} else {
			rep.Summary.InvalidRows++
		}
		for _, e := range row.Errors {
			rep.Summary.ErrorsByCategory[e.Kind]++
		}
		rep.Rows = append(rep.Rows, res)
	}
	return rep
}

// HasErrors reports whether any row failed validation.
func (r *Report) HasErrors() bool { return r.Summary.InvalidRows > 0 }

// =============================================================================
// TEXT OUTPUT
// =============================================================================

// FormatText renders the report for a terminal. Valid rows are listed only
// when verbose is set.
func FormatText(r *Report, verbose bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Import %s (%s)\n", r.ImportID, r.Source)
	fmt.Fprintf(&b, "  Rows:                %d\n", r.Summary.TotalRows)
	fmt.Fprintf(&b, "  Valid:               %d\n", r.Summary.ValidRows)
	fmt.Fprintf(&b, "  Invalid:             %d\n", r.Summary.InvalidRows)
	fmt.Fprintf(&b, "  Semesters to create: %d\n", r.Summary.SemestersToAdd)

	if len(r.Pending) > 0 {
		b.WriteString("\nNew semesters:\n")
		for _, p := range r.Pending {
			fmt.Fprintf(&b, "  - %s (%d)\n", p.Name, p.Year)
		}
	}

	if !r.HasErrors() && !verbose {
		b.WriteString("\nNo validation errors.\n")
		return b.String()
	}

	b.WriteString("\n")
	for _, row := range r.Rows {
		if row.Valid {
			if verbose {
				fmt.Fprintf(&b, "Row %d  OK     %s %s\n", row.RowNumber, row.SemesterName, row.CourseCode)
			}
			continue
		}
		fmt.Fprintf(&b, "Row %d  ERROR  %s %s\n", row.RowNumber, row.SemesterName, row.CourseCode)
		for i, msg := range row.Errors {
			fmt.Fprintf(&b, "        %d. %s\n", i+1, msg)
		}
	}
	return b.String()
}
