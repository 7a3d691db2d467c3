package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// SEMESTER REFERENCE
// =============================================================================

// PendingSemesterKey identifies a semester that the import itself will create.
// Rows needing the same new semester share one key.
type PendingSemesterKey struct {
	Name      string // lower-cased semester name
	OrgUnitID string
}

// NewPendingSemesterKey lower-cases name and pairs it with the org-unit.
func NewPendingSemesterKey(name, orgUnitID string) PendingSemesterKey {
	return PendingSemesterKey{Name: strings.ToLower(strings.TrimSpace(name)), OrgUnitID: orgUnitID}
}

func (k PendingSemesterKey) String() string {
	return k.Name + "@" + k.OrgUnitID
}

type semesterRefKind uint8

const (
	semesterRefNone semesterRefKind = iota
	semesterRefPersisted
	semesterRefPending
)

// SemesterRef points at either a persisted semester or one that is pending
// creation. The zero value is "unresolved". A pending reference never yields a
// persisted id.
type SemesterRef struct {
	kind    semesterRefKind
	id      string
	pending PendingSemesterKey
}

// PersistedSemester references an existing semester by id.
func PersistedSemester(id string) SemesterRef {
	return SemesterRef{kind: semesterRefPersisted, id: id}
}

// PendingSemesterRef references a semester that will be created by this import.
func PendingSemesterRef(key PendingSemesterKey) SemesterRef {
	return SemesterRef{kind: semesterRefPending, pending: key}
}

// IsResolved reports whether the reference points anywhere.
func (r SemesterRef) IsResolved() bool { return r.kind != semesterRefNone }

// PersistedID returns the semester id when the reference is persisted.
func (r SemesterRef) PersistedID() (string, bool) {
	if r.kind != semesterRefPersisted {
		return "", false
	}
	return r.id, true
}

// PendingKey returns the creation key when the reference is pending.
func (r SemesterRef) PendingKey() (PendingSemesterKey, bool) {
	if r.kind != semesterRefPending {
		return PendingSemesterKey{}, false
	}
	return r.pending, true
}

// KeyPart renders the reference for DuplicateKey. Pending references carry a
// "pending:" marker so they can never equal a persisted id.
func (r SemesterRef) KeyPart() string {
	switch r.kind {
	case semesterRefPersisted:
		return r.id
	case semesterRefPending:
		return "pending:" + r.pending.String()
	default:
		return ""
	}
}

func (r SemesterRef) String() string {
	if r.kind == semesterRefNone {
		return "<unresolved>"
	}
	return r.KeyPart()
}

// PendingSemester is a semester to be created during commit.
type PendingSemester struct {
	Key       PendingSemesterKey `json:"-"`
	Name      string             `json:"name"`
	Year      int                `json:"year"`
	OrgUnitID string             `json:"org_unit_id"`
}

// =============================================================================
// ROW ERRORS
// =============================================================================

// ErrorKind classifies a row-level problem.
type ErrorKind string

const (
	ErrorKindField     ErrorKind = "field"
	ErrorKindReference ErrorKind = "reference"
	ErrorKindRange     ErrorKind = "range"
	ErrorKindDuplicate ErrorKind = "duplicate"
)

// RowError is one human-readable problem attached to a row.
type RowError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e RowError) String() string { return e.Message }

// =============================================================================
// CANDIDATE ROW
// =============================================================================

// CandidateRow is a RawRow after normalization, enriched in place by each
// validation stage. Validity is derived from Errors and is never stored.
type CandidateRow struct {
	RowNumber int

	SemesterName      string
	CourseName        string
	CourseCode        string
	CourseDescription string

	// CourseTypeRaw is the upper-cased cell text; CourseType is set only when
	// it matched one of the accepted literals.
	CourseTypeRaw string
	CourseType    CourseType

	InstructorRefs []string
	BatchRefs      []string

	// Resolved references.
	Semester      SemesterRef
	OrgUnitID     string
	InstructorIDs []string
	BatchIDs      []string

	// Decomposed semester name.
	SequenceNumber int
	OrgUnitCode    string
	Year           int

	NeedsSemesterCreation bool

	Errors []RowError
}

// IsValid reports whether the row has no errors.
func (r *CandidateRow) IsValid() bool { return len(r.Errors) == 0 }

// AddError appends a formatted error of the given kind.
func (r *CandidateRow) AddError(kind ErrorKind, format string, args ...any) {
	r.Errors = append(r.Errors, RowError{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// ErrorMessages returns the messages in the order they were recorded.
func (r *CandidateRow) ErrorMessages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

// ReferencesResolved reports whether the semester, every instructor and every
// batch resolved to an id. Only such rows take part in duplicate detection.
func (r *CandidateRow) ReferencesResolved() bool {
	return r.Semester.IsResolved() &&
		len(r.InstructorIDs) == len(r.InstructorRefs) &&
		len(r.BatchIDs) == len(r.BatchRefs)
}

// DuplicateKey returns the row's composite identity. Callers check
// ReferencesResolved first.
func (r *CandidateRow) DuplicateKey() string {
	return DuplicateKey(r.Semester.KeyPart(), r.CourseCode, r.BatchIDs, r.InstructorIDs)
}
