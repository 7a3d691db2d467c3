// =============================================================================
// Academic Bulk Importer - Shared Types
// =============================================================================
//
// This package contains the types shared by every stage of an import so that
// the parsing, validation, commit and reporting packages do not import each
// other. Types defined here are used by:
//   - converter   (RawRow -> CandidateRow)
//   - validation  (LookupIndex, duplicate detection)
//   - importer    (engine and two-phase commit)
//   - report      (validation report builders)
//   - catalog/*   (persistence adapters)
//
// =============================================================================

package types

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// COLUMN CONTRACT
// =============================================================================
// The header names of the import template. They are authoritative: decoders
// match them case-insensitively, and the template writer emits them verbatim.

const (
	HeaderSemesterName      = "Semester Name"
	HeaderCourseName        = "Course Name"
	HeaderCourseCode        = "Course Code"
	HeaderCourseDescription = "Course Description"
	HeaderCourseType        = "Course Type"
	HeaderInstructors       = "Instructors (Pipe Separated)"
	HeaderBatches           = "Batches (Pipe Separated)"
)

// Headers lists the template columns in template order.
var Headers = []string{
	HeaderSemesterName,
	HeaderCourseName,
	HeaderCourseCode,
	HeaderCourseDescription,
	HeaderCourseType,
	HeaderInstructors,
	HeaderBatches,
}

// =============================================================================
// RAW INPUT
// =============================================================================

// RawRow is one decoded spreadsheet line: column header -> raw cell text.
type RawRow struct {
	// Number is the visible spreadsheet row (header offset already applied).
	// Zero means the decoder did not know it; the Row Parser then derives it
	// from the row's position.
	Number int `json:"row_number,omitempty"`

	// Fields maps the header text, as it appeared in the file, to the cell value.
	Fields map[string]string `json:"fields"`
}

// =============================================================================
// COURSE TYPE
// =============================================================================

// CourseType is the course category. The zero value means "not recognised".
type CourseType string

const (
	CourseTypeCore            CourseType = "CORE"
	CourseTypeElective        CourseType = "ELECTIVE"
	CourseTypeMicroCredential CourseType = "MICRO_CREDENTIAL"
)

// CourseTypes lists the accepted literals in display order.
var CourseTypes = []CourseType{CourseTypeCore, CourseTypeElective, CourseTypeMicroCredential}

// ParseCourseType matches value exactly against the accepted literals.
// Callers upper-case the input first; no other normalization is applied.
func ParseCourseType(value string) (CourseType, bool) {
	for _, t := range CourseTypes {
		if string(t) == value {
			return t, true
		}
	}
	return "", false
}

// =============================================================================
// PERSISTED RECORDS
// =============================================================================

// OrgUnit is an academic department or administrative unit.
type OrgUnit struct {
	ID   string `json:"id" yaml:"id" bson:"_id"`
	Name string `json:"name" yaml:"name" bson:"name"`
}

// Code derives the three-letter org-unit code: the first three letters of the
// full name, upper-cased. Non-letters are skipped.
func (o OrgUnit) Code() string {
	var b strings.Builder
	n := 0
	for _, r := range o.Name {
		if n == 3 {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
			n++
		}
	}
	return strings.ToUpper(b.String())
}

// Semester is a named academic term scoped to one org-unit and year.
type Semester struct {
	ID        string `json:"id" yaml:"id" bson:"_id"`
	Name      string `json:"name" yaml:"name" bson:"name"`
	Year      int    `json:"year" yaml:"year" bson:"year"`
	OrgUnitID string `json:"org_unit_id" yaml:"org_unit_id" bson:"org_unit_id"`
}

// Batch is a cohort of students.
type Batch struct {
	ID             string `json:"id" yaml:"id" bson:"_id"`
	Name           string `json:"name" yaml:"name" bson:"name"`
	Section        string `json:"section" yaml:"section" bson:"section"`
	GraduationYear int    `json:"graduation_year" yaml:"graduation_year" bson:"graduation_year"`
	OrgUnitID      string `json:"org_unit_id,omitempty" yaml:"org_unit_id" bson:"org_unit_id,omitempty"`
}

// RoleFaculty is the only role accepted as an instructor.
const RoleFaculty = "FACULTY"

// Faculty is a user addressable by a human-chosen profile id.
type Faculty struct {
	ID        string `json:"id" yaml:"id" bson:"_id"`
	ProfileID string `json:"profile_id" yaml:"profile_id" bson:"profile_id"`
	Name      string `json:"name" yaml:"name" bson:"name"`
	Role      string `json:"role" yaml:"role" bson:"role"`
	OrgUnitID string `json:"org_unit_id,omitempty" yaml:"org_unit_id" bson:"org_unit_id,omitempty"`
}

// Course is a persisted course definition.
type Course struct {
	ID            string     `json:"id" yaml:"id" bson:"_id"`
	Name          string     `json:"name" yaml:"name" bson:"name"`
	Code          string     `json:"code" yaml:"code" bson:"code"`
	Description   string     `json:"description,omitempty" yaml:"description" bson:"description,omitempty"`
	Type          CourseType `json:"type" yaml:"type" bson:"type"`
	SemesterID    string     `json:"semester_id" yaml:"semester_id" bson:"semester_id"`
	InstructorIDs []string   `json:"instructor_ids" yaml:"instructor_ids" bson:"instructor_ids"`
	BatchIDs      []string   `json:"batch_ids" yaml:"batch_ids" bson:"batch_ids"`
}

// =============================================================================
// PERSISTENCE PAYLOADS
// =============================================================================

// CourseCandidate is one entry of the batched duplicate-check query.
type CourseCandidate struct {
	SemesterID    string   `json:"semester_id"`
	Code          string   `json:"code"`
	BatchIDs      []string `json:"batch_ids"`
	InstructorIDs []string `json:"instructor_ids"`
}

// Key returns the candidate's DuplicateKey.
func (c CourseCandidate) Key() string {
	return DuplicateKey(c.SemesterID, c.Code, c.BatchIDs, c.InstructorIDs)
}

// DuplicateResult is one entry of the duplicate-check response. Responses are
// parallel to the request.
type DuplicateResult struct {
	IsDuplicate        bool   `json:"is_duplicate"`
	Code               string `json:"code"`
	ExistingCourseName string `json:"existing_course_name,omitempty"`
}

// NewSemester is one entry of the semester bulk insert.
type NewSemester struct {
	Name      string `json:"name"`
	Year      int    `json:"year"`
	OrgUnitID string `json:"org_unit_id"`
}

// NewCourse is one entry of the course bulk insert.
type NewCourse struct {
	Name          string     `json:"name"`
	Code          string     `json:"code"`
	Description   string     `json:"description,omitempty"`
	Type          CourseType `json:"type"`
	SemesterID    string     `json:"semester_id"`
	InstructorIDs []string   `json:"instructor_ids"`
	BatchIDs      []string   `json:"batch_ids"`
}

// =============================================================================
// DUPLICATE KEY
// =============================================================================

// DuplicateKey builds the composite identity of a course definition:
//
//	lower(semester + "-" + code + "-" + sorted(batches) + "-" + sorted(instructors))
//
// The id lists are sorted on copies, so the caller's slices keep their order
// and the key is independent of entry order. Repeated ids count once.
func DuplicateKey(semester, code string, batchIDs, instructorIDs []string) string {
	return strings.ToLower(fmt.Sprintf("%s-%s-%s-%s",
		semester, code, sortedJoin(batchIDs), sortedJoin(instructorIDs)))
}

func sortedJoin(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	unique := sorted[:0]
	for i, id := range sorted {
		if i > 0 && id == sorted[i-1] {
			continue
		}
		unique = append(unique, id)
	}
	return strings.Join(unique, ",")
}
