// =============================================================================
// Academic Bulk Importer - Validation Engine
// =============================================================================
//
// This module validates candidate rows before anything is written.
//
// VALIDATION STAGES (per import):
//   1. Field checks      required cells present, course type literal matched
//   2. Semester name     shape, sequence range, year window
//   3. References        org-unit, semester, instructors, batches
//   4. Intra-batch       duplicate rows within the same file
//   5. Cross-persistence duplicates of already committed courses
//
// ERROR HANDLING:
//   - Row problems are collected on the row, never returned as Go errors
//   - A row with any error is excluded from the commit
//   - Only infrastructure failures (the duplicate query) are returned
//
// =============================================================================

package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/evalify/evalify-sub003/internal/types"
)

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator runs the per-row stages against one LookupIndex.
type Validator struct {
	index   *LookupIndex
	options Options
}

// Options contains options for validation.
type Options struct {
	// CurrentYear anchors the semester year window. Zero means "now".
	CurrentYear int

	// Logger receives debug output. Defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

// DefaultOptions returns the default validation options.
func DefaultOptions() Options {
	return Options{
		CurrentYear: time.Now().Year(),
		Logger:      logrus.StandardLogger(),
	}
}

// NewValidator creates a validator over idx.
func NewValidator(idx *LookupIndex, options Options) *Validator {
	if options.CurrentYear == 0 {
		options.CurrentYear = time.Now().Year()
	}
	if options.Logger == nil {
		options.Logger = logrus.StandardLogger()
	}
	return &Validator{index: idx, options: options}
}

// =============================================================================
// MAIN VALIDATION FUNCTIONS
// =============================================================================

// ValidateRows runs the field, semester-name and reference stages on every
// row, then the intra-batch duplicate stage. Rows are modified in place.
func (v *Validator) ValidateRows(rows []*types.CandidateRow) {
	for _, row := range rows {
		v.ValidateRow(row)
	}
	DetectIntraBatchDuplicates(rows)
}

// ValidateRow runs the per-row stages on a single row.
func (v *Validator) ValidateRow(row *types.CandidateRow) {
	CheckFields(row)

	var sem SemesterName
	if row.SemesterName != "" {
		sem = ResolveSemesterName(row.SemesterName, v.options.CurrentYear)
		for _, msg := range sem.Errors {
			kind := types.ErrorKindRange
			if !sem.Matched {
				kind = types.ErrorKindField
			}
			row.Errors = append(row.Errors, types.RowError{Kind: kind, Message: msg})
		}
		row.SequenceNumber = sem.SequenceNumber
		row.OrgUnitCode = sem.OrgUnitCode
		row.Year = sem.Year
	}

	ResolveReferences(row, sem, v.index)

	if !row.IsValid() {
		v.options.Logger.WithFields(logrus.Fields{
			"row":    row.RowNumber,
			"errors": len(row.Errors),
		}).Debug("row failed validation")
	}
}

// CheckFields reports missing required cells and an unrecognised course type.
func CheckFields(row *types.CandidateRow) {
	if row.SemesterName == "" {
		row.AddError(types.ErrorKindField, "%s is required", types.HeaderSemesterName)
	}
	if row.CourseName == "" {
		row.AddError(types.ErrorKindField, "%s is required", types.HeaderCourseName)
	}
	if row.CourseCode == "" {
		row.AddError(types.ErrorKindField, "%s is required", types.HeaderCourseCode)
	}
	switch {
	case row.CourseTypeRaw == "":
		row.AddError(types.ErrorKindField, "%s is required", types.HeaderCourseType)
	case row.CourseType == "":
		row.AddError(types.ErrorKindField, "Invalid course type %q: must be one of %s",
			row.CourseTypeRaw, courseTypeList())
	}
	if len(row.InstructorRefs) == 0 {
		row.AddError(types.ErrorKindField, "At least one instructor is required")
	}
	if len(row.BatchRefs) == 0 {
		row.AddError(types.ErrorKindField, "At least one batch is required")
	}
}

func courseTypeList() string {
	names := make([]string, len(types.CourseTypes))
	for i, t := range types.CourseTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// =============================================================================
// DUPLICATE DETECTION
// =============================================================================

// DetectIntraBatchDuplicates flags every row whose DuplicateKey was already
// produced by an earlier row. The first occurrence is left untouched. Rows with
// unresolved references take no part; rows with other errors still register
// their key.
func DetectIntraBatchDuplicates(rows []*types.CandidateRow) {
	seen := make(map[string]int, len(rows))
	for _, row := range rows {
		if !row.ReferencesResolved() {
			continue
		}
		key := row.DuplicateKey()
		if first, ok := seen[key]; ok {
			row.AddError(types.ErrorKindDuplicate, "Duplicate of row %d", first)
			continue
		}
		seen[key] = row.RowNumber
	}
}

// DuplicateChecker answers the batched existence query for course
// definitions. Results are parallel to the candidates.
type DuplicateChecker interface {
	CheckDuplicateCourses(ctx context.Context, candidates []types.CourseCandidate) ([]types.DuplicateResult, error)
}

// CrossCheckEligible returns the rows that take part in the cross-persistence
// check: no errors other than intra-batch duplicates, and a persisted semester.
func CrossCheckEligible(rows []*types.CandidateRow) []*types.CandidateRow {
	var out []*types.CandidateRow
	for _, row := range rows {
		if _, ok := row.Semester.PersistedID(); !ok {
			continue
		}
		if hasErrorsExcept(row, types.ErrorKindDuplicate) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func hasErrorsExcept(row *types.CandidateRow, kind types.ErrorKind) bool {
	for _, e := range row.Errors {
		if e.Kind != kind {
			return true
		}
	}
	return false
}

// DetectPersistedDuplicates issues one batched query for the eligible rows and
// flags each row that matches a committed course. No query is made when no
// row is eligible. It returns the number of rows flagged.
func DetectPersistedDuplicates(ctx context.Context, checker DuplicateChecker, rows []*types.CandidateRow) (int, error) {
	eligible := CrossCheckEligible(rows)
	if len(eligible) == 0 {
		return 0, nil
	}

	candidates := make([]types.CourseCandidate, len(eligible))
	for i, row := range eligible {
		semesterID, _ := row.Semester.PersistedID()
		candidates[i] = types.CourseCandidate{
			SemesterID:    semesterID,
			Code:          row.CourseCode,
			BatchIDs:      append([]string(nil), row.BatchIDs...),
			InstructorIDs: append([]string(nil), row.InstructorIDs...),
		}
	}

	results, err := checker.CheckDuplicateCourses(ctx, candidates)
	if err != nil {
		return 0, fmt.Errorf("duplicate course check: %w", err)
	}
	if len(results) != len(candidates) {
		return 0, fmt.Errorf("duplicate course check: got %d results for %d candidates", len(results), len(candidates))
	}

	flagged := 0
	for i, res := range results {
		if !res.IsDuplicate {
			continue
		}
		row := eligible[i]
		name := res.ExistingCourseName
		if name == "" {
			name = row.CourseCode
		}
		row.AddError(types.ErrorKindDuplicate, "Course already exists: %s (%s)", name, row.CourseCode)
		flagged++
	}
	return flagged, nil
}
