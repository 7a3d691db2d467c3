// =============================================================================
// Academic Bulk Importer - PostgreSQL Catalog
// =============================================================================
//
// A catalog backed by PostgreSQL through a pgx connection pool.
//
// TABLES:
//   org_units, semesters, batches, users (faculty are users with role
//   FACULTY), courses, and the course_batches / course_instructors join
//   tables. The schema is embedded and applied by EnsureSchema.
//
// WRITES:
//   Each Create call runs in one transaction, with the inserts queued in a
//   single pgx.Batch. A failed call leaves nothing behind.
//
// =============================================================================

package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evalify/evalify-sub003/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// Store is a PostgreSQL catalog.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return New(pool), nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the catalog tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (s *Store) ListSemesters(ctx context.Context) ([]types.Semester, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, year, org_unit_id FROM semesters ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query semesters: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[types.Semester])
}

func (s *Store) ListBatches(ctx context.Context) ([]types.Batch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, section, graduation_year, COALESCE(org_unit_id, '') FROM batches ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[types.Batch])
}

func (s *Store) ListFaculty(ctx context.Context) ([]types.Faculty, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, profile_id, name, role, COALESCE(org_unit_id, '')
		   FROM users
		  WHERE upper(role) = $1
		  ORDER BY profile_id, id`, types.RoleFaculty)
	if err != nil {
		return nil, fmt.Errorf("query faculty: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[types.Faculty])
}

func (s *Store) ListOrgUnits(ctx context.Context) ([]types.OrgUnit, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM org_units ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query org units: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[types.OrgUnit])
}

// =============================================================================
// DUPLICATE CHECK
// =============================================================================

const existingCoursesSQL = `
SELECT c.semester_id,
       c.code,
       c.name,
       COALESCE(array_agg(DISTINCT cb.batch_id) FILTER (WHERE cb.batch_id IS NOT NULL), '{}') AS batch_ids,
       COALESCE(array_agg(DISTINCT ci.user_id) FILTER (WHERE ci.user_id IS NOT NULL), '{}') AS instructor_ids
  FROM courses c
  LEFT JOIN course_batches cb ON cb.course_id = c.id
  LEFT JOIN course_instructors ci ON ci.course_id = c.id
 WHERE c.semester_id = ANY($1)
 GROUP BY c.id, c.semester_id, c.code, c.name
 ORDER BY c.created_at, c.id`

type existingCourse struct {
	SemesterID    string
	Code          string
	Name          string
	BatchIDs      []string
	InstructorIDs []string
}

// CheckDuplicateCourses loads the courses of every candidate semester in one
// query and matches them by DuplicateKey.
func (s *Store) CheckDuplicateCourses(ctx context.Context, candidates []types.CourseCandidate) ([]types.DuplicateResult, error) {
	if len(candidates) == 0 {
		return []types.DuplicateResult{}, nil
	}

	seen := make(map[string]bool)
	semesterIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !seen[c.SemesterID] {
			seen[c.SemesterID] = true
			semesterIDs = append(semesterIDs, c.SemesterID)
		}
	}

	rows, err := s.pool.Query(ctx, existingCoursesSQL, semesterIDs)
	if err != nil {
		return nil, fmt.Errorf("query existing courses: %w", err)
	}
	existing, err := pgx.CollectRows(rows, pgx.RowToStructByPos[existingCourse])
	if err != nil {
		return nil, fmt.Errorf("scan existing courses: %w", err)
	}
	return matchDuplicates(existing, candidates), nil
}

// matchDuplicates answers each candidate in order. The first existing course
// with the same key names the duplicate.
func matchDuplicates(existing []existingCourse, candidates []types.CourseCandidate) []types.DuplicateResult {
	byKey := make(map[string]string, len(existing))
	for _, c := range existing {
		key := types.DuplicateKey(c.SemesterID, c.Code, c.BatchIDs, c.InstructorIDs)
		if _, ok := byKey[key]; !ok {
			byKey[key] = c.Name
		}
	}

	out := make([]types.DuplicateResult, len(candidates))
	for i, c := range candidates {
		name, ok := byKey[c.Key()]
		out[i] = types.DuplicateResult{IsDuplicate: ok, Code: c.Code, ExistingCourseName: name}
	}
	return out
}

// =============================================================================
// MUTATIONS
// =============================================================================

// CreateSemesters inserts every entry in one transaction.
func (s *Store) CreateSemesters(ctx context.Context, entries []types.NewSemester) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`INSERT INTO semesters (id, name, year, org_unit_id) VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), e.Name, e.Year, e.OrgUnitID)
	}
	return s.runBatch(ctx, batch, "semesters")
}

// CreateCourses inserts every entry, with its batch and instructor links, in
// one transaction and returns the number of courses inserted.
func (s *Store) CreateCourses(ctx context.Context, entries []types.NewCourse) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		id := uuid.NewString()
		batch.Queue(`INSERT INTO courses (id, name, code, description, type, semester_id) VALUES ($1, $2, $3, $4, $5, $6)`,
			id, e.Name, e.Code, e.Description, string(e.Type), e.SemesterID)
		for _, b := range e.BatchIDs {
			batch.Queue(`INSERT INTO course_batches (course_id, batch_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, b)
		}
		for _, u := range e.InstructorIDs {
			batch.Queue(`INSERT INTO course_instructors (course_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, u)
		}
	}
	if err := s.runBatch(ctx, batch, "courses"); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *Store) runBatch(ctx context.Context, batch *pgx.Batch, what string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin %s transaction: %w", what, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert %s: %w", what, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("insert %s: %w", what, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", what, err)
	}
	return nil
}
