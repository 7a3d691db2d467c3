package importer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalify/evalify-sub003/internal/catalog/memory"
	"github.com/evalify/evalify-sub003/internal/types"
)

// recordingCatalog wraps the in-memory store, counting calls and injecting
// failures.
type recordingCatalog struct {
	*memory.Store

	mu                sync.Mutex
	calls             map[string]int
	duplicateRequests [][]types.CourseCandidate
	semesterRequests  [][]types.NewSemester
	courseRequests    [][]types.NewCourse

	failList      error
	failSemesters error
	failCourses   error
	dropCreated   bool
}

func newRecordingCatalog() *recordingCatalog {
	return &recordingCatalog{Store: memory.New(seed()), calls: map[string]int{}}
}

func (r *recordingCatalog) count(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[name]++
}

func (r *recordingCatalog) callCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func (r *recordingCatalog) ListSemesters(ctx context.Context) ([]types.Semester, error) {
	r.count("ListSemesters")
	if r.failList != nil {
		return nil, r.failList
	}
	sems, err := r.Store.ListSemesters(ctx)
	if err != nil || !r.dropCreated {
		return sems, err
	}
	return seed().Semesters, nil
}

func (r *recordingCatalog) ListBatches(ctx context.Context) ([]types.Batch, error) {
	r.count("ListBatches")
	return r.Store.ListBatches(ctx)
}

func (r *recordingCatalog) CheckDuplicateCourses(ctx context.Context, c []types.CourseCandidate) ([]types.DuplicateResult, error) {
	r.count("CheckDuplicateCourses")
	r.duplicateRequests = append(r.duplicateRequests, c)
	return r.Store.CheckDuplicateCourses(ctx, c)
}

func (r *recordingCatalog) CreateSemesters(ctx context.Context, e []types.NewSemester) error {
	r.count("CreateSemesters")
	r.semesterRequests = append(r.semesterRequests, e)
	if r.failSemesters != nil {
		return r.failSemesters
	}
	return r.Store.CreateSemesters(ctx, e)
}

func (r *recordingCatalog) CreateCourses(ctx context.Context, e []types.NewCourse) (int, error) {
	r.count("CreateCourses")
	r.courseRequests = append(r.courseRequests, e)
	if r.failCourses != nil {
		return 0, r.failCourses
	}
	return r.Store.CreateCourses(ctx, e)
}

func seed() memory.Fixture {
	return memory.Fixture{
		OrgUnits: []types.OrgUnit{
			{ID: "ou-aid", Name: "AIDS"},
			{ID: "ou-cse", Name: "Computer Science"},
		},
		Semesters: []types.Semester{
			{ID: "sem-aid-2", Name: "S2-AID-2024", Year: 2024, OrgUnitID: "ou-aid"},
		},
		Batches: []types.Batch{
			{ID: "b-aida", Name: "2025AIDA", Section: "A", GraduationYear: 2025},
			{ID: "b-aidb", Name: "2025AIDB", Section: "B", GraduationYear: 2025},
			{ID: "b-csea", Name: "2026CSEA", Section: "A", GraduationYear: 2026},
		},
		Faculty: []types.Faculty{
			{ID: "u-ram", ProfileID: "ramkumar", Name: "Ram Kumar", Role: "FACULTY"},
			{ID: "u-priya", ProfileID: "priya", Name: "Priya S", Role: "FACULTY"},
		},
		Courses: []types.Course{
			{ID: "c-1", Name: "Existing Course", Code: "AID100", Type: types.CourseTypeCore,
				SemesterID: "sem-aid-2", InstructorIDs: []string{"u-priya"}, BatchIDs: []string{"b-aidb"}},
		},
	}
}

func raw(semester, code, courseType, instructors, batches string) types.RawRow {
	return types.RawRow{Fields: map[string]string{
		types.HeaderSemesterName:      semester,
		types.HeaderCourseName:        "course " + code,
		types.HeaderCourseCode:        code,
		types.HeaderCourseDescription: "",
		types.HeaderCourseType:        courseType,
		types.HeaderInstructors:       instructors,
		types.HeaderBatches:           batches,
	}}
}

func newTestEngine(t *testing.T, cat Catalog) *Engine {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return New(cat, Options{
		MaxRows:       100,
		CommitTimeout: 5 * time.Second,
		Now:           func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) },
		Logger:        logger,
	})
}

func TestValidate_DuplicateScenario(t *testing.T) {
	cat := newRecordingCatalog()
	e := newTestEngine(t, cat)

	imp, err := e.Validate(context.Background(), "courses.xlsx", []types.RawRow{
		raw("S2-AID-2024", "AID203", "core", "ramkumar", "2025AIDA"),
		raw("S2-AID-2024", "AID204", "CORE", "ramkumar", "2025AIDA"),
		raw("S2-AID-2024", "AID205", "CORE", "ramkumar", "2025AIDA"),
		raw("S2-AID-2024", "AID206", "CORE", "ramkumar", "2025AIDA"),
		raw("S2-AID-2024", "aid203", "CORE", "ramkumar", "2025AIDA"),
	})
	require.NoError(t, err)
	require.Len(t, imp.Rows, 5)

	assert.Equal(t, 2, imp.Rows[0].RowNumber)
	assert.True(t, imp.Rows[0].IsValid())
	assert.Equal(t, 6, imp.Rows[4].RowNumber)
	assert.Equal(t, []string{"Duplicate of row 2"}, imp.Rows[4].ErrorMessages())
	assert.Equal(t, 1, imp.InvalidCount())
	assert.NotEmpty(t, imp.ID)
}

func TestValidate_FetchesLookupsOnceAndChecksDuplicatesOnce(t *testing.T) {
	cat := newRecordingCatalog()
	e := newTestEngine(t, cat)

	imp, err := e.Validate(context.Background(), "in.csv", []types.RawRow{
		raw("S2-AID-2024", "AID100", "CORE", "priya", "2025AIDB"),
		raw("S2-AID-2024", "AID101", "CORE", "priya", "2025AIDB"),
		raw("S5-AID-2024", "AID500", "ELECTIVE", "priya", "2025AIDB"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, cat.callCount("ListSemesters"))
	assert.Equal(t, 1, cat.callCount("ListBatches"))
	assert.Equal(t, 1, cat.callCount("CheckDuplicateCourses"))
	require.Len(t, cat.duplicateRequests[0], 2, "the pending-semester row is not sent")

	assert.Equal(t, []string{"Course already exists: Existing Course (AID100)"}, imp.Rows[0].ErrorMessages())
	assert.True(t, imp.Rows[1].IsValid())
	assert.True(t, imp.Rows[2].IsValid())
	assert.True(t, imp.Rows[2].NeedsSemesterCreation)
}

func TestValidate_InputLimits(t *testing.T) {
	e := newTestEngine(t, newRecordingCatalog())

	_, err := e.Validate(context.Background(), "empty.csv", nil)
	assert.ErrorIs(t, err, ErrNoRows)

	rows := make([]types.RawRow, 101)
	_, err = e.Validate(context.Background(), "big.csv", rows)
	assert.ErrorIs(t, err, ErrTooManyRows)
}

func TestValidate_CatalogFailure(t *testing.T) {
	cat := newRecordingCatalog()
	cat.failList = errors.New("connection refused")
	e := newTestEngine(t, cat)

	_, err := e.Validate(context.Background(), "in.csv", []types.RawRow{raw("S2-AID-2024", "X1", "CORE", "priya", "2025AIDA")})
	require.Error(t, err)
	assert.ErrorIs(t, err, cat.failList)
	assert.Contains(t, err.Error(), "list semesters")
	assert.Zero(t, cat.callCount("CheckDuplicateCourses"))
}

func TestValidate_YearWindowFollowsClock(t *testing.T) {
	e := newTestEngine(t, newRecordingCatalog())

	imp, err := e.Validate(context.Background(), "in.csv", []types.RawRow{
		raw("S1-AID-2014", "X1", "CORE", "priya", "2025AIDA"),
		raw("S1-AID-15", "X2", "CORE", "priya", "2025AIDA"),
	})
	require.NoError(t, err)
	assert.Contains(t, imp.Rows[0].ErrorMessages(), "Semester year 2014 is out of range (2015-2030)")
	assert.True(t, imp.Rows[1].IsValid(), imp.Rows[1].ErrorMessages())
}
