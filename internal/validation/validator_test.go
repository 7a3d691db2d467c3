package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalify/evalify-sub003/internal/types"
)

func testSource() LookupSource {
	return LookupSource{
		OrgUnits: []types.OrgUnit{
			{ID: "ou-aid", Name: "AIDS"},
			{ID: "ou-cse", Name: "CSE"},
		},
		Semesters: []types.Semester{
			{ID: "sem-aid-2", Name: "S2-AID-2024", Year: 2024, OrgUnitID: "ou-aid"},
			{ID: "sem-cse-1", Name: "S1-CSE-2024", Year: 2024, OrgUnitID: "ou-cse"},
			{ID: "sem-wrong", Name: "S3-AID-2024", Year: 2024, OrgUnitID: "ou-cse"},
		},
		Batches: []types.Batch{
			{ID: "b-aida", Name: "2025AIDA", Section: "A", GraduationYear: 2025},
			{ID: "b-aidb", Name: "2025AIDB", Section: "B", GraduationYear: 2025},
		},
		Faculty: []types.Faculty{
			{ID: "u-ram", ProfileID: "ramkumar", Name: "Ram Kumar", Role: "FACULTY"},
			{ID: "u-priya", ProfileID: "Priya", Name: "Priya S", Role: "faculty"},
			{ID: "u-stud", ProfileID: "student1", Name: "Student One", Role: "STUDENT"},
		},
	}
}

func testValidator(t *testing.T) *Validator {
	t.Helper()
	logger, _ := test.NewNullLogger()
	idx := NewLookupIndex(testSource(), logger)
	return NewValidator(idx, Options{CurrentYear: testYear, Logger: logger})
}

func candidate(number int, semester, code string, batches, instructors []string) *types.CandidateRow {
	return &types.CandidateRow{
		RowNumber:      number,
		SemesterName:   semester,
		CourseName:     "Course " + code,
		CourseCode:     code,
		CourseTypeRaw:  "CORE",
		CourseType:     types.CourseTypeCore,
		BatchRefs:      batches,
		InstructorRefs: instructors,
	}
}

func TestLookupIndex_CaseInsensitiveAndRoleFiltered(t *testing.T) {
	logger, hook := test.NewNullLogger()
	src := testSource()
	src.Batches = append(src.Batches, types.Batch{ID: "b-dup", Name: "2025aida"})
	idx := NewLookupIndex(src, logger)

	b, ok := idx.Batch(" 2025AidA ")
	require.True(t, ok)
	assert.Equal(t, "b-aida", b.ID, "first record wins on collision")

	_, ok = idx.Faculty("PRIYA")
	assert.True(t, ok)
	_, ok = idx.Faculty("student1")
	assert.False(t, ok, "non-faculty users are not instructors")

	o, ok := idx.OrgUnit("aid")
	require.True(t, ok)
	assert.Equal(t, "ou-aid", o.ID)

	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestValidateRow_ValidPersistedSemester(t *testing.T) {
	v := testValidator(t)
	row := candidate(2, "S2-AID-2024", "AID203", []string{"2025aida"}, []string{"RAMKUMAR", "priya"})

	v.ValidateRow(row)

	require.True(t, row.IsValid(), row.ErrorMessages())
	id, ok := row.Semester.PersistedID()
	require.True(t, ok)
	assert.Equal(t, "sem-aid-2", id)
	assert.False(t, row.NeedsSemesterCreation)
	assert.Equal(t, "ou-aid", row.OrgUnitID)
	assert.Equal(t, []string{"u-ram", "u-priya"}, row.InstructorIDs)
	assert.Equal(t, []string{"b-aida"}, row.BatchIDs)
	assert.Equal(t, 2, row.SequenceNumber)
	assert.Equal(t, "AID", row.OrgUnitCode)
	assert.Equal(t, 2024, row.Year)
}

func TestValidateRow_MissingSemesterBecomesPending(t *testing.T) {
	v := testValidator(t)
	row := candidate(3, "S4-AID-24", "AID401", []string{"2025AIDA"}, []string{"ramkumar"})

	v.ValidateRow(row)

	require.True(t, row.IsValid(), row.ErrorMessages())
	assert.True(t, row.NeedsSemesterCreation)
	_, ok := row.Semester.PersistedID()
	assert.False(t, ok)
	key, ok := row.Semester.PendingKey()
	require.True(t, ok)
	assert.Equal(t, types.PendingSemesterKey{Name: "s4-aid-24", OrgUnitID: "ou-aid"}, key)
	assert.Equal(t, 2024, row.Year)
}

func TestValidateRow_UnknownOrgUnitShortCircuits(t *testing.T) {
	v := testValidator(t)
	row := candidate(2, "S2-ZZZ-2024", "AID203", []string{"2025AIDA"}, []string{"ramkumar"})

	v.ValidateRow(row)

	require.Equal(t, []string{`Org unit not found for code "ZZZ"`}, row.ErrorMessages())
	assert.Equal(t, types.ErrorKindReference, row.Errors[0].Kind)
	assert.False(t, row.Semester.IsResolved())
	assert.False(t, row.NeedsSemesterCreation)
	assert.Empty(t, row.OrgUnitID)
}

func TestValidateRow_SequenceOutOfRangeRegardlessOfOrgUnit(t *testing.T) {
	v := testValidator(t)
	for _, name := range []string{"S11-AID-2024", "S11-ZZZ-2024"} {
		row := candidate(2, name, "AID203", []string{"2025AIDA"}, []string{"ramkumar"})
		v.ValidateRow(row)

		require.False(t, row.IsValid())
		assert.Equal(t, types.ErrorKindRange, row.Errors[0].Kind, name)
		assert.Contains(t, row.Errors[0].Message, "sequence number 11", name)
	}
}

func TestValidateRow_OrgUnitMismatch(t *testing.T) {
	v := testValidator(t)
	row := candidate(2, "S3-AID-2024", "AID301", []string{"2025AIDA"}, []string{"ramkumar"})

	v.ValidateRow(row)

	require.Len(t, row.Errors, 1)
	assert.Contains(t, row.Errors[0].Message, "different org unit")
	assert.False(t, row.NeedsSemesterCreation, "mismatch is not the same as not found")
	assert.False(t, row.Semester.IsResolved())
}

func TestValidateRow_AggregatesMissingReferences(t *testing.T) {
	v := testValidator(t)
	row := candidate(2, "S2-AID-2024", "AID203",
		[]string{"2025AIDA", "NOPE1", "NOPE2"},
		[]string{"ghost", "ramkumar", "student1"})

	v.ValidateRow(row)

	assert.Equal(t, []string{
		"Instructors not found: ghost, student1",
		"Batches not found: NOPE1, NOPE2",
	}, row.ErrorMessages())
	assert.False(t, row.ReferencesResolved())
}

func TestValidateRow_RepeatedReferencesResolveOnce(t *testing.T) {
	v := testValidator(t)
	row := candidate(2, "S2-AID-2024", "AID203",
		[]string{"2025AIDB", "2025AIDA", "2025aidb", "nope", "NOPE"},
		[]string{"ramkumar", "RAMKUMAR", "priya"})

	v.ValidateRow(row)

	assert.Equal(t, []string{"b-aidb", "b-aida"}, row.BatchIDs)
	assert.Equal(t, []string{"u-ram", "u-priya"}, row.InstructorIDs)
	assert.Equal(t, []string{"Batches not found: nope"}, row.ErrorMessages())
}

func TestDetectIntraBatchDuplicates_RepeatedReferencesStillCollide(t *testing.T) {
	v := testValidator(t)
	rows := []*types.CandidateRow{
		candidate(2, "S2-AID-2024", "AID203", []string{"2025AIDA"}, []string{"ramkumar"}),
		candidate(3, "S2-AID-2024", "AID203", []string{"2025AIDA", "2025aida"}, []string{"ramkumar", "RAMKUMAR"}),
	}

	v.ValidateRows(rows)

	assert.True(t, rows[0].IsValid())
	assert.Equal(t, []string{"Duplicate of row 2"}, rows[1].ErrorMessages())
}

func TestCheckFields(t *testing.T) {
	row := &types.CandidateRow{RowNumber: 2, CourseTypeRaw: "CORE COURSE"}
	CheckFields(row)

	assert.Equal(t, []string{
		"Semester Name is required",
		"Course Name is required",
		"Course Code is required",
		`Invalid course type "CORE COURSE": must be one of CORE, ELECTIVE, MICRO_CREDENTIAL`,
		"At least one instructor is required",
		"At least one batch is required",
	}, row.ErrorMessages())

	empty := &types.CandidateRow{RowNumber: 3}
	CheckFields(empty)
	assert.Contains(t, empty.ErrorMessages(), "Course Type is required")
}

func TestValidateRow_InvalidCourseTypeAlwaysInvalid(t *testing.T) {
	v := testValidator(t)
	for _, raw := range []string{"CORES", "ELECTIVES", "MICRO-CREDENTIAL", "OPTIONAL"} {
		row := candidate(2, "S2-AID-2024", "AID203", []string{"2025AIDA"}, []string{"ramkumar"})
		row.CourseTypeRaw = raw
		row.CourseType = ""

		v.ValidateRow(row)
		assert.False(t, row.IsValid(), raw)
	}
}

func TestDetectIntraBatchDuplicates_LaterRowFlagged(t *testing.T) {
	v := testValidator(t)
	rows := []*types.CandidateRow{
		candidate(2, "S2-AID-2024", "AID203", []string{"2025AIDA"}, []string{"ramkumar"}),
		candidate(3, "S2-AID-2024", "AID204", []string{"2025AIDA"}, []string{"ramkumar"}),
		candidate(4, "S1-CSE-2024", "AID203", []string{"2025AIDA"}, []string{"ramkumar"}),
		candidate(5, "S2-AID-2024", "AID203", []string{"2025AIDA"}, []string{"ramkumar"}),
	}

	v.ValidateRows(rows)

	assert.True(t, rows[0].IsValid())
	assert.True(t, rows[1].IsValid())
	assert.True(t, rows[2].IsValid())
	assert.Equal(t, []string{"Duplicate of row 2"}, rows[3].ErrorMessages())
	assert.Equal(t, types.ErrorKindDuplicate, rows[3].Errors[0].Kind)
}

func TestDetectIntraBatchDuplicates_OrderIndependentLists(t *testing.T) {
	v := testValidator(t)
	rows := []*types.CandidateRow{
		candidate(2, "S2-AID-2024", "AID203", []string{"2025AIDA", "2025AIDB"}, []string{"ramkumar", "priya"}),
		candidate(3, "S2-AID-2024", "aid203", []string{"2025AIDB", "2025aida"}, []string{"PRIYA", "ramkumar"}),
	}
	rows[1].CourseCode = "AID203"

	v.ValidateRows(rows)

	assert.True(t, rows[0].IsValid())
	assert.Equal(t, []string{"Duplicate of row 2"}, rows[1].ErrorMessages())
}

func TestDetectIntraBatchDuplicates_PendingSemestersCollide(t *testing.T) {
	v := testValidator(t)
	rows := []*types.CandidateRow{
		candidate(2, "S5-AID-2024", "AID501", []string{"2025AIDA"}, []string{"ramkumar"}),
		candidate(3, "s5-aid-2024", "AID501", []string{"2025AIDA"}, []string{"ramkumar"}),
	}

	v.ValidateRows(rows)

	assert.True(t, rows[0].IsValid())
	assert.Equal(t, []string{"Duplicate of row 2"}, rows[1].ErrorMessages())
}

func TestDetectIntraBatchDuplicates_UnresolvedRowsNeverCollide(t *testing.T) {
	v := testValidator(t)
	rows := []*types.CandidateRow{
		candidate(2, "S2-AID-2024", "AID203", []string{"GHOST"}, []string{"ramkumar"}),
		candidate(3, "S2-AID-2024", "AID203", []string{"GHOST"}, []string{"ramkumar"}),
		candidate(4, "S2-ZZZ-2024", "AID203", []string{"2025AIDA"}, []string{"ramkumar"}),
		candidate(5, "S2-ZZZ-2024", "AID203", []string{"2025AIDA"}, []string{"ramkumar"}),
	}

	v.ValidateRows(rows)

	for _, row := range rows {
		for _, e := range row.Errors {
			assert.NotEqual(t, types.ErrorKindDuplicate, e.Kind, "row %d", row.RowNumber)
		}
	}
}

type fakeChecker struct {
	calls    int
	got      []types.CourseCandidate
	existing map[string]string
	results  []types.DuplicateResult
	err      error
}

func (f *fakeChecker) CheckDuplicateCourses(_ context.Context, candidates []types.CourseCandidate) ([]types.DuplicateResult, error) {
	f.calls++
	f.got = append(f.got, candidates...)
	if f.err != nil {
		return nil, f.err
	}
	if f.results != nil {
		return f.results, nil
	}
	out := make([]types.DuplicateResult, len(candidates))
	for i, c := range candidates {
		name, ok := f.existing[c.Key()]
		out[i] = types.DuplicateResult{IsDuplicate: ok, Code: c.Code, ExistingCourseName: name}
	}
	return out, nil
}

func TestDetectPersistedDuplicates(t *testing.T) {
	v := testValidator(t)
	rows := []*types.CandidateRow{
		candidate(2, "S2-AID-2024", "AID203", []string{"2025AIDA"}, []string{"ramkumar"}),
		candidate(3, "S2-AID-2024", "AID203", []string{"2025AIDA"}, []string{"ramkumar"}),
		candidate(4, "S9-AID-2024", "AID901", []string{"2025AIDA"}, []string{"ramkumar"}),
		candidate(5, "S2-AID-2024", "AID205", []string{"GHOST"}, []string{"ramkumar"}),
		candidate(6, "S2-AID-2024", "AID206", []string{"2025AIDB"}, []string{"priya"}),
	}
	v.ValidateRows(rows)

	checker := &fakeChecker{existing: map[string]string{
		types.DuplicateKey("sem-aid-2", "AID203", []string{"b-aida"}, []string{"u-ram"}): "Data Structures",
	}}
	flagged, err := DetectPersistedDuplicates(context.Background(), checker, rows)
	require.NoError(t, err)

	assert.Equal(t, 1, checker.calls)
	assert.Equal(t, 2, flagged)
	require.Len(t, checker.got, 3, "rows 2, 3 and 6 are eligible")
	assert.Equal(t, "AID203", checker.got[0].Code)
	assert.Equal(t, "AID203", checker.got[1].Code)
	assert.Equal(t, "AID206", checker.got[2].Code)

	assert.Equal(t, []string{"Course already exists: Data Structures (AID203)"}, rows[0].ErrorMessages())
	assert.Equal(t, []string{
		"Duplicate of row 2",
		"Course already exists: Data Structures (AID203)",
	}, rows[1].ErrorMessages(), "intra-batch duplicates accumulate a second error")
	assert.True(t, rows[2].NeedsSemesterCreation)
	assert.True(t, rows[2].IsValid(), "pending-semester rows are exempt")
	assert.True(t, rows[4].IsValid())
}

func TestDetectPersistedDuplicates_NoEligibleRowsNoQuery(t *testing.T) {
	v := testValidator(t)
	rows := []*types.CandidateRow{
		candidate(2, "S9-AID-2024", "AID901", []string{"2025AIDA"}, []string{"ramkumar"}),
		candidate(3, "S2-ZZZ-2024", "X1", []string{"2025AIDA"}, []string{"ramkumar"}),
	}
	v.ValidateRows(rows)

	checker := &fakeChecker{}
	flagged, err := DetectPersistedDuplicates(context.Background(), checker, rows)
	require.NoError(t, err)
	assert.Zero(t, flagged)
	assert.Zero(t, checker.calls)
}

func TestDetectPersistedDuplicates_Failures(t *testing.T) {
	v := testValidator(t)
	rows := []*types.CandidateRow{
		candidate(2, "S2-AID-2024", "AID203", []string{"2025AIDA"}, []string{"ramkumar"}),
	}
	v.ValidateRows(rows)

	boom := errors.New("service unavailable")
	_, err := DetectPersistedDuplicates(context.Background(), &fakeChecker{err: boom}, rows)
	require.ErrorIs(t, err, boom)

	_, err = DetectPersistedDuplicates(context.Background(), &fakeChecker{results: []types.DuplicateResult{}}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 0 results for 1 candidates")
	assert.True(t, rows[0].IsValid())
}
