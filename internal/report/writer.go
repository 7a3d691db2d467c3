package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/evalify/evalify-sub003/internal/types"
)

// Sheet names of the generated workbooks.
const (
	ReportSheet   = "Validation"
	PendingSheet  = "New Semesters"
	TemplateSheet = "Courses"
)

// templateRows bounds the course-type drop-down of the template.
const templateRows = 1000

var reportHeaders = []string{"Row", "Status", "Semester Name", "Course Code", "Course Name", "New Semester", "Errors"}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteXLSX writes the report as a workbook with one line per input row.
// Invalid rows are filled red; errors are joined one per line in the last
// column.
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	invalid, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeRow(f, ReportSheet, 1, toCells(reportHeaders)); err != nil {
		return err
	}
	if err := f.SetRowStyle(ReportSheet, 1, 1, header); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range r.Rows {
		line := i + 2
		status := "OK"
		if !row.Valid {
			status = "ERROR"
		}
		cells := []interface{}{
			row.RowNumber,
			status,
			row.SemesterName,
			row.CourseCode,
			row.CourseName,
			yesNo(row.NeedsSemesterCreation),
			strings.Join(row.Errors, "\n"),
		}
		if err := writeRow(f, ReportSheet, line, cells); err != nil {
			return err
		}
		if !row.Valid {
			last, _ := excelize.CoordinatesToCellName(len(reportHeaders), line)
			if err := f.SetCellStyle(ReportSheet, fmt.Sprintf("A%d", line), last, invalid); err != nil {
				return fmt.Errorf("failed to style row %d: %w", line, err)
			}
		}
	}
	_ = f.SetColWidth(ReportSheet, "C", "E", 24)
	_ = f.SetColWidth(ReportSheet, "G", "G", 70)

	if len(r.Pending) > 0 {
		if _, err := f.NewSheet(PendingSheet); err != nil {
			return fmt.Errorf("failed to add sheet: %w", err)
		}
		if err := writeRow(f, PendingSheet, 1, []interface{}{"Semester Name", "Year", "Org Unit ID"}); err != nil {
			return err
		}
		_ = f.SetRowStyle(PendingSheet, 1, 1, header)
		for i, p := range r.Pending {
			if err := writeRow(f, PendingSheet, i+2, []interface{}{p.Name, p.Year, p.OrgUnitID}); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteTemplate writes the import template: the header row, one example row
// and a drop-down for the course type column.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TemplateSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeRow(f, TemplateSheet, 1, toCells(types.Headers)); err != nil {
		return err
	}
	example := []interface{}{
		"S2-AID-2024",
		"Data Structures",
		"AID203",
		"Linear and non-linear data structures",
		string(types.CourseTypeCore),
		"ramkumar|priya",
		"2025AIDA|2025AIDB",
	}
	if err := writeRow(f, TemplateSheet, 2, example); err != nil {
		return err
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	_ = f.SetRowStyle(TemplateSheet, 1, 1, header)
	_ = f.SetColWidth(TemplateSheet, "A", "G", 28)

	typeCol, _ := excelize.ColumnNumberToName(indexOf(types.Headers, types.HeaderCourseType) + 1)
	dv := excelize.NewDataValidation(true)
	dv.Sqref = fmt.Sprintf("%s2:%s%d", typeCol, typeCol, templateRows)
	names := make([]string, len(types.CourseTypes))
	for i, t := range types.CourseTypes {
		names[i] = string(t)
	}
	if err := dv.SetDropList(names); err != nil {
		return fmt.Errorf("failed to build course type list: %w", err)
	}
	if err := f.AddDataValidation(TemplateSheet, dv); err != nil {
		return fmt.Errorf("failed to add course type list: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func writeRow(f *excelize.File, sheet string, line int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", line, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func indexOf(values []string, v string) int {
	for i, s := range values {
		if s == v {
			return i
		}
	}
	return -1
}
