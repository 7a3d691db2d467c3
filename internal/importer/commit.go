package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/evalify/evalify-sub003/internal/metrics"
	"github.com/evalify/evalify-sub003/internal/types"
)

// CommitState is a state of the two-phase commit.
type CommitState string

const (
	StateCreatingSemesters CommitState = "creating_semesters"
	StateCreatingCourses   CommitState = "creating_courses"
	StateSucceeded         CommitState = "succeeded"
	StateFailed            CommitState = "failed"
)

var (
	// ErrNothingToCommit is returned when an import has no valid rows.
	ErrNothingToCommit = errors.New("no valid rows to commit")

	// ErrAlreadyCommitted is returned when Commit is called twice on an import.
	ErrAlreadyCommitted = errors.New("import already committed")

	// ErrSemesterNotFound means a semester created in phase one was missing
	// from the refreshed list.
	ErrSemesterNotFound = errors.New("created semester not found after refresh")
)

// CommitError reports the phase a commit failed in.
type CommitError struct {
	Phase CommitState
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed while %s: %v", strings.ReplaceAll(string(e.Phase), "_", " "), e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// CommitResult describes what a commit did. CreatedSemesters is filled as soon
// as phase one succeeds, so a course failure still shows which semesters
// stayed committed.
type CommitResult struct {
	ImportID         string              `json:"import_id"`
	State            CommitState         `json:"state"`
	FailedPhase      CommitState         `json:"failed_phase,omitempty"`
	CreatedSemesters []types.NewSemester `json:"created_semesters"`
	CoursesCreated   int                 `json:"courses_created"`
	SkippedRows      int                 `json:"skipped_rows"`
	Error            string              `json:"error,omitempty"`
}

// =============================================================================
// TWO-PHASE COMMIT
// =============================================================================

// Commit creates the pending semesters, resolves their ids, then creates one
// course per valid row.
//
// Once started the commit ignores cancellation of ctx; every persistence call
// is bounded by Options.CommitTimeout instead. A failure while creating
// semesters commits nothing. A failure while creating courses leaves the new
// semesters in place; they are listed in the result. Nothing is retried.
//
// RETURNS:
//   - The CommitResult, also on failure.
//   - A *CommitError on failure.
func (e *Engine) Commit(ctx context.Context, imp *Import) (*CommitResult, error) {
	valid := imp.ValidRows()
	if len(valid) == 0 {
		return nil, ErrNothingToCommit
	}
	if !imp.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyCommitted
	}

	ctx = context.WithoutCancel(ctx)
	log := e.logger.WithField("import_id", imp.ID)
	res := &CommitResult{
		ImportID:         imp.ID,
		State:            StateCreatingSemesters,
		CreatedSemesters: []types.NewSemester{},
		SkippedRows:      len(imp.Rows) - len(valid),
	}

	// Phase one: semesters.
	pending := PendingSemesters(valid)
	if len(pending) > 0 {
		entries := make([]types.NewSemester, len(pending))
		for i, p := range pending {
			entries[i] = types.NewSemester{Name: p.Name, Year: p.Year, OrgUnitID: p.OrgUnitID}
		}

		log.WithField("semesters", len(entries)).Info("creating semesters")
		if err := e.withTimeout(ctx, func(c context.Context) error {
			return e.catalog.CreateSemesters(c, entries)
		}); err != nil {
			return e.fail(log, res, StateCreatingSemesters, "failed_semesters", err)
		}
		res.CreatedSemesters = entries

		if err := e.resolvePending(ctx, valid); err != nil {
			return e.fail(log, res, StateCreatingSemesters, "failed_refresh", err)
		}
	}

	// Phase two: courses.
	res.State = StateCreatingCourses
	courses := make([]types.NewCourse, 0, len(valid))
	for _, row := range valid {
		course, err := BuildCoursePayload(row)
		if err != nil {
			return e.fail(log, res, StateCreatingCourses, "failed_courses", err)
		}
		courses = append(courses, course)
	}

	log.WithField("courses", len(courses)).Info("creating courses")
	var created int
	if err := e.withTimeout(ctx, func(c context.Context) error {
		n, err := e.catalog.CreateCourses(c, courses)
		created = n
		return err
	}); err != nil {
		if len(res.CreatedSemesters) > 0 {
			log.WithField("semesters", len(res.CreatedSemesters)).
				Warn("course creation failed after semesters were committed; semesters remain")
		}
		return e.fail(log, res, StateCreatingCourses, "failed_courses", err)
	}

	res.CoursesCreated = created
	res.State = StateSucceeded
	metrics.ObserveCommit("succeeded", len(res.CreatedSemesters), created)
	log.WithFields(logrus.Fields{
		"semesters_created": len(res.CreatedSemesters),
		"courses_created":   created,
		"skipped_rows":      res.SkippedRows,
	}).Info("import committed")
	return res, nil
}

func (e *Engine) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	c, cancel := context.WithTimeout(ctx, e.options.CommitTimeout)
	defer cancel()
	return fn(c)
}

func (e *Engine) fail(log logrus.FieldLogger, res *CommitResult, phase CommitState, result string, err error) (*CommitResult, error) {
	res.State = StateFailed
	res.FailedPhase = phase
	res.Error = err.Error()
	metrics.ObserveCommit(result, len(res.CreatedSemesters), 0)
	log.WithError(err).WithField("phase", phase).Error("commit failed")
	return res, &CommitError{Phase: phase, Err: err}
}

// resolvePending re-reads the semesters and rewrites every pending reference
// to the id of the semester that was just created.
func (e *Engine) resolvePending(ctx context.Context, rows []*types.CandidateRow) error {
	var semesters []types.Semester
	if err := e.withTimeout(ctx, func(c context.Context) error {
		var err error
		semesters, err = e.catalog.ListSemesters(c)
		return err
	}); err != nil {
		return fmt.Errorf("refresh semesters: %w", err)
	}

	byKey := make(map[types.PendingSemesterKey]string, len(semesters))
	for _, s := range semesters {
		key := types.NewPendingSemesterKey(s.Name, s.OrgUnitID)
		if _, ok := byKey[key]; !ok {
			byKey[key] = s.ID
		}
	}

	for _, row := range rows {
		key, ok := row.Semester.PendingKey()
		if !ok {
			continue
		}
		id, ok := byKey[key]
		if !ok {
			return fmt.Errorf("%w: %s", ErrSemesterNotFound, row.SemesterName)
		}
		row.Semester = types.PersistedSemester(id)
		row.NeedsSemesterCreation = false
	}
	return nil
}

// =============================================================================
// PAYLOADS
// =============================================================================

// PendingSemesters collects the semesters rows are waiting on, one entry per
// (lower-cased name, org-unit) in first-occurrence order.
func PendingSemesters(rows []*types.CandidateRow) []types.PendingSemester {
	seen := make(map[types.PendingSemesterKey]bool)
	var out []types.PendingSemester
	for _, row := range rows {
		key, ok := row.Semester.PendingKey()
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, types.PendingSemester{
			Key:       key,
			Name:      row.SemesterName,
			Year:      row.Year,
			OrgUnitID: row.OrgUnitID,
		})
	}
	return out
}

// BuildCoursePayload turns a row into a course insert. The semester must be
// persisted by now. An unrecognised course type falls back to CORE; valid rows
// always carry a recognised type, so the fallback only shows on rows that are
// never committed.
func BuildCoursePayload(row *types.CandidateRow) (types.NewCourse, error) {
	semesterID, ok := row.Semester.PersistedID()
	if !ok {
		return types.NewCourse{}, fmt.Errorf("row %d: semester %q has no persisted id", row.RowNumber, row.SemesterName)
	}
	courseType := row.CourseType
	if courseType == "" {
		courseType = types.CourseTypeCore
	}
	return types.NewCourse{
		Name:          row.CourseName,
		Code:          row.CourseCode,
		Description:   row.CourseDescription,
		Type:          courseType,
		SemesterID:    semesterID,
		InstructorIDs: append([]string(nil), row.InstructorIDs...),
		BatchIDs:      append([]string(nil), row.BatchIDs...),
	}, nil
}
