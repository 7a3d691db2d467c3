// =============================================================================
// Academic Bulk Importer - In-Memory Catalog
// =============================================================================
//
// An in-process catalog seeded from a YAML fixture. It backs dry runs, demos
// and tests, and behaves like the persistent backends: lookups are full
// lists, the duplicate check compares DuplicateKeys, and bulk inserts are
// all-or-nothing.
//
// FIXTURE FORMAT:
//   org_units: [{id, name}]
//   semesters: [{id, name, year, org_unit_id}]
//   batches:   [{id, name, section, graduation_year}]
//   faculty:   [{id, profile_id, name, role}]
//   courses:   [{id, name, code, type, semester_id, instructor_ids, batch_ids}]
//
// =============================================================================

package memory

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/evalify/evalify-sub003/internal/types"
)

// Fixture is the YAML seed of a Store.
type Fixture struct {
	OrgUnits  []types.OrgUnit  `yaml:"org_units"`
	Semesters []types.Semester `yaml:"semesters"`
	Batches   []types.Batch    `yaml:"batches"`
	Faculty   []types.Faculty  `yaml:"faculty"`
	Courses   []types.Course   `yaml:"courses"`
}

// Store is a mutex-guarded in-memory catalog.
type Store struct {
	mu   sync.RWMutex
	data Fixture
}

// New creates a store holding a copy of the fixture.
func New(f Fixture) *Store {
	return &Store{data: Fixture{
		OrgUnits:  append([]types.OrgUnit(nil), f.OrgUnits...),
		Semesters: append([]types.Semester(nil), f.Semesters...),
		Batches:   append([]types.Batch(nil), f.Batches...),
		Faculty:   append([]types.Faculty(nil), f.Faculty...),
		Courses:   append([]types.Course(nil), f.Courses...),
	}}
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (Fixture, error) {
	var f Fixture
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("failed to read fixture file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("failed to parse fixture file: %w", err)
	}
	return f, nil
}

// Open loads the fixture at path into a new Store. An empty path yields an
// empty store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return New(Fixture{}), nil
	}
	f, err := LoadFixture(path)
	if err != nil {
		return nil, err
	}
	return New(f), nil
}

// Snapshot returns a copy of the current contents.
func (s *Store) Snapshot() Fixture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return New(s.data).data
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (s *Store) ListSemesters(ctx context.Context) ([]types.Semester, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Semester(nil), s.data.Semesters...), nil
}

func (s *Store) ListBatches(ctx context.Context) ([]types.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Batch(nil), s.data.Batches...), nil
}

func (s *Store) ListFaculty(ctx context.Context) ([]types.Faculty, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Faculty(nil), s.data.Faculty...), nil
}

func (s *Store) ListOrgUnits(ctx context.Context) ([]types.OrgUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.OrgUnit(nil), s.data.OrgUnits...), nil
}

// CheckDuplicateCourses matches every candidate against the stored courses by
// DuplicateKey. The response is parallel to candidates.
func (s *Store) CheckDuplicateCourses(ctx context.Context, candidates []types.CourseCandidate) ([]types.DuplicateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing := make(map[string]string, len(s.data.Courses))
	for _, c := range s.data.Courses {
		key := types.DuplicateKey(c.SemesterID, c.Code, c.BatchIDs, c.InstructorIDs)
		if _, ok := existing[key]; !ok {
			existing[key] = c.Name
		}
	}

	out := make([]types.DuplicateResult, len(candidates))
	for i, c := range candidates {
		name, ok := existing[c.Key()]
		out[i] = types.DuplicateResult{IsDuplicate: ok, Code: c.Code, ExistingCourseName: name}
	}
	return out, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// CreateSemesters inserts every entry or none.
func (s *Store) CreateSemesters(ctx context.Context, entries []types.NewSemester) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	orgUnits := make(map[string]bool, len(s.data.OrgUnits))
	for _, o := range s.data.OrgUnits {
		orgUnits[o.ID] = true
	}
	names := make(map[types.PendingSemesterKey]bool, len(s.data.Semesters))
	for _, sem := range s.data.Semesters {
		names[types.NewPendingSemesterKey(sem.Name, sem.OrgUnitID)] = true
	}

	created := make([]types.Semester, 0, len(entries))
	for _, e := range entries {
		if !orgUnits[e.OrgUnitID] {
			return fmt.Errorf("semester %q: unknown org unit %q", e.Name, e.OrgUnitID)
		}
		key := types.NewPendingSemesterKey(e.Name, e.OrgUnitID)
		if names[key] {
			return fmt.Errorf("semester %q already exists", e.Name)
		}
		names[key] = true
		created = append(created, types.Semester{
			ID:        uuid.NewString(),
			Name:      e.Name,
			Year:      e.Year,
			OrgUnitID: e.OrgUnitID,
		})
	}
	s.data.Semesters = append(s.data.Semesters, created...)
	return nil
}

// CreateCourses inserts every entry or none and returns the number inserted.
func (s *Store) CreateCourses(ctx context.Context, entries []types.NewCourse) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	semesters := make(map[string]bool, len(s.data.Semesters))
	for _, sem := range s.data.Semesters {
		semesters[sem.ID] = true
	}

	created := make([]types.Course, 0, len(entries))
	for _, e := range entries {
		if !semesters[e.SemesterID] {
			return 0, fmt.Errorf("course %s: unknown semester %q", e.Code, e.SemesterID)
		}
		created = append(created, types.Course{
			ID:            uuid.NewString(),
			Name:          e.Name,
			Code:          e.Code,
			Description:   e.Description,
			Type:          e.Type,
			SemesterID:    e.SemesterID,
			InstructorIDs: append([]string(nil), e.InstructorIDs...),
			BatchIDs:      append([]string(nil), e.BatchIDs...),
		})
	}
	s.data.Courses = append(s.data.Courses, created...)
	return len(created), nil
}
