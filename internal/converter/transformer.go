// =============================================================================
// Academic Bulk Importer - Cell Normalization
// =============================================================================
//
// This module provides the cell-level transformations used by the Row Parser.
// Each template column has a fixed chain of actions applied in order:
//
//   Semester Name                 trim
//   Course Name                   trim, collapse_whitespace, title_case
//   Course Code                   trim, uppercase
//   Course Description            trim
//   Course Type                   trim, uppercase
//   Instructors (Pipe Separated)  trim (then split_pipe)
//   Batches (Pipe Separated)      trim (then split_pipe)
//
// Transformations never fail: anything unusable becomes an empty string and
// is reported later by the field checks.
//
// =============================================================================

package converter

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/evalify/evalify-sub003/internal/types"
)

// =============================================================================
// TRANSFORMATION ACTIONS
// =============================================================================

// Action is a single named cell transformation.
type Action string

const (
	ActionTrim               Action = "trim"
	ActionUppercase          Action = "uppercase"
	ActionTitleCase          Action = "title_case"
	ActionCollapseWhitespace Action = "collapse_whitespace"
)

// PipeSeparator splits multi-valued cells.
const PipeSeparator = "|"

// titleCaser keeps already-upper-case letters so acronyms such as "AI" or
// "IoT" survive the capitalization.
var titleCaser = cases.Title(language.Und, cases.NoLower)

// fieldActions is the normalization chain for each template column.
var fieldActions = map[string][]Action{
	types.HeaderSemesterName:      {ActionTrim},
	types.HeaderCourseName:        {ActionTrim, ActionCollapseWhitespace, ActionTitleCase},
	types.HeaderCourseCode:        {ActionTrim, ActionUppercase},
	types.HeaderCourseDescription: {ActionTrim},
	types.HeaderCourseType:        {ActionTrim, ActionUppercase},
	types.HeaderInstructors:       {ActionTrim},
	types.HeaderBatches:           {ActionTrim},
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// Transform applies the column's action chain to value. Columns outside the
// template are returned trimmed.
func Transform(header, value string) string {
	actions, ok := fieldActions[header]
	if !ok {
		return strings.TrimSpace(value)
	}
	for _, action := range actions {
		value = ApplyTransformation(value, action)
	}
	return value
}

// ApplyTransformation applies a single action. Unknown actions leave the
// value untouched.
func ApplyTransformation(value string, action Action) string {
	switch action {
	case ActionTrim:
		return strings.TrimSpace(value)

	case ActionUppercase:
		return strings.ToUpper(value)

	case ActionTitleCase:
		// EXAMPLE:
		//   "data structures and AI" -> "Data Structures And AI"
		return titleCaser.String(value)

	case ActionCollapseWhitespace:
		return strings.Join(strings.Fields(value), " ")

	default:
		return value
	}
}

// SplitPipe splits a pipe-delimited cell, trimming every segment and dropping
// empty ones. The result is never nil.
//
// EXAMPLE:
//
//	" ramkumar | | priya|" -> ["ramkumar", "priya"]
func SplitPipe(value string) []string {
	parts := strings.Split(value, PipeSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
