// =============================================================================
// Academic Bulk Importer - Import Engine
// =============================================================================
//
// This module orchestrates one import from decoded rows to a validation
// report, and (after confirmation) to a two-phase commit.
//
// VALIDATION PIPELINE:
//   1. Parse raw rows into candidate rows
//   2. Fetch the four lookup lists concurrently and build the LookupIndex
//   3. Field checks, semester-name resolution and reference resolution
//   4. Intra-batch duplicate detection (sequential, first occurrence wins)
//   5. Cross-persistence duplicate detection (one batched query)
//
// The resulting Import is held by the caller until the user confirms or
// abandons it. Abandoning has no side effects.
//
// =============================================================================

package importer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/evalify/evalify-sub003/internal/converter"
	"github.com/evalify/evalify-sub003/internal/metrics"
	"github.com/evalify/evalify-sub003/internal/report"
	"github.com/evalify/evalify-sub003/internal/types"
	"github.com/evalify/evalify-sub003/internal/validation"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Catalog is the persistence service the engine reads from and commits to.
type Catalog interface {
	ListSemesters(ctx context.Context) ([]types.Semester, error)
	ListBatches(ctx context.Context) ([]types.Batch, error)
	ListFaculty(ctx context.Context) ([]types.Faculty, error)
	ListOrgUnits(ctx context.Context) ([]types.OrgUnit, error)

	CheckDuplicateCourses(ctx context.Context, candidates []types.CourseCandidate) ([]types.DuplicateResult, error)

	CreateSemesters(ctx context.Context, entries []types.NewSemester) error
	CreateCourses(ctx context.Context, entries []types.NewCourse) (int, error)
}

// ErrTooManyRows is returned when an input exceeds Options.MaxRows.
var ErrTooManyRows = errors.New("too many rows")

// ErrNoRows is returned for an input without data rows.
var ErrNoRows = errors.New("no data rows")

// =============================================================================
// ENGINE
// =============================================================================

// Options configures an Engine.
type Options struct {
	// MaxRows rejects larger inputs before validation. Zero disables the limit.
	MaxRows int

	// CommitTimeout bounds each persistence call made during commit.
	CommitTimeout time.Duration

	// Now returns the current time; the semester year window is anchored on it.
	Now func() time.Time

	Logger logrus.FieldLogger
}

// Engine validates and commits imports against one Catalog.
type Engine struct {
	catalog Catalog
	options Options
	logger  logrus.FieldLogger
}

// New creates an Engine.
func New(catalog Catalog, options Options) *Engine {
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.CommitTimeout <= 0 {
		options.CommitTimeout = 60 * time.Second
	}
	if options.Logger == nil {
		options.Logger = logrus.StandardLogger()
	}
	return &Engine{catalog: catalog, options: options, logger: options.Logger}
}

// Import is one validated spreadsheet, waiting for confirmation.
type Import struct {
	ID          string
	Source      string
	ValidatedAt time.Time
	Rows        []*types.CandidateRow

	started atomic.Bool
}

// ValidRows returns the rows eligible for commit, in spreadsheet order.
func (imp *Import) ValidRows() []*types.CandidateRow {
	var out []*types.CandidateRow
	for _, row := range imp.Rows {
		if row.IsValid() {
			out = append(out, row)
		}
	}
	return out
}

// InvalidCount returns the number of rows with at least one error.
func (imp *Import) InvalidCount() int {
	n := 0
	for _, row := range imp.Rows {
		if !row.IsValid() {
			n++
		}
	}
	return n
}

// PendingSemesters returns the semesters the commit would create.
func (imp *Import) PendingSemesters() []types.PendingSemester {
	return PendingSemesters(imp.ValidRows())
}

// Report builds the validation report shown before confirmation.
func (imp *Import) Report() *report.Report {
	return report.Build(imp.ID, imp.Source, imp.Rows, imp.PendingSemesters(), imp.ValidatedAt)
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate runs the validation pipeline over decoded rows. Row problems end up
// on the rows; only catalog failures and input-size violations are returned.
//
// PARAMETERS:
//   - ctx: Bounds the lookup and duplicate queries.
//   - source: A label for logs and reports, usually the file name.
//   - raw: The decoded spreadsheet rows in file order.
//
// RETURNS:
//   - The validated Import.
//   - An error if the catalog could not be read.
func (e *Engine) Validate(ctx context.Context, source string, raw []types.RawRow) (*Import, error) {
	if len(raw) == 0 {
		return nil, ErrNoRows
	}
	if e.options.MaxRows > 0 && len(raw) > e.options.MaxRows {
		return nil, fmt.Errorf("%w: %d rows, limit is %d", ErrTooManyRows, len(raw), e.options.MaxRows)
	}

	imp := &Import{
		ID:          uuid.NewString(),
		Source:      source,
		ValidatedAt: e.options.Now(),
	}
	log := e.logger.WithFields(logrus.Fields{"import_id": imp.ID, "source": source})

	imp.Rows = converter.ParseRows(raw)
	log.WithField("rows", len(imp.Rows)).Info("parsed rows")

	idx, err := e.buildIndex(ctx, log)
	if err != nil {
		return nil, err
	}

	v := validation.NewValidator(idx, validation.Options{
		CurrentYear: imp.ValidatedAt.Year(),
		Logger:      log,
	})
	v.ValidateRows(imp.Rows)

	flagged, err := validation.DetectPersistedDuplicates(ctx, e.catalog, imp.Rows)
	if err != nil {
		return nil, err
	}

	invalid := imp.InvalidCount()
	valid := len(imp.Rows) - invalid
	metrics.ObserveValidation(valid, invalid)
	log.WithFields(logrus.Fields{
		"valid":               valid,
		"invalid":             invalid,
		"existing_duplicates": flagged,
		"pending_semesters":   len(imp.PendingSemesters()),
	}).Info("validation finished")

	return imp, nil
}

// buildIndex fetches the four lookup lists concurrently.
func (e *Engine) buildIndex(ctx context.Context, log logrus.FieldLogger) (*validation.LookupIndex, error) {
	var src validation.LookupSource

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := e.catalog.ListSemesters(gctx)
		if err != nil {
			return fmt.Errorf("list semesters: %w", err)
		}
		src.Semesters = s
		return nil
	})
	g.Go(func() error {
		b, err := e.catalog.ListBatches(gctx)
		if err != nil {
			return fmt.Errorf("list batches: %w", err)
		}
		src.Batches = b
		return nil
	})
	g.Go(func() error {
		f, err := e.catalog.ListFaculty(gctx)
		if err != nil {
			return fmt.Errorf("list faculty: %w", err)
		}
		src.Faculty = f
		return nil
	})
	g.Go(func() error {
		o, err := e.catalog.ListOrgUnits(gctx)
		if err != nil {
			return fmt.Errorf("list org units: %w", err)
		}
		src.OrgUnits = o
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := validation.NewLookupIndex(src, log)
	log.WithFields(idx.Counts()).Debug("lookup index built")
	return idx, nil
}
