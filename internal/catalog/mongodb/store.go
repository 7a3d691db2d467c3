// =============================================================================
// Academic Bulk Importer - MongoDB Catalog
// =============================================================================
//
// A catalog backed by MongoDB.
//
// COLLECTIONS:
//   org_units, semesters, batches, users (faculty are users with role
//   FACULTY) and courses. Course documents embed their batch_ids and
//   instructor_ids arrays.
//
// WRITES:
//   Each Create call inserts all of its documents inside one transaction, so
//   the deployment must be a replica set (a single-node set is enough).
//
// =============================================================================

package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/evalify/evalify-sub003/internal/types"
)

// Collection names.
const (
	OrgUnitsCollection  = "org_units"
	SemestersCollection = "semesters"
	BatchesCollection   = "batches"
	UsersCollection     = "users"
	CoursesCollection   = "courses"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
	MaxIdleTime    time.Duration
}

// DefaultConfig returns pool settings suited to a single importer process.
func DefaultConfig(uri, database string) Config {
	return Config{
		URI:            uri,
		Database:       database,
		ConnectTimeout: 20 * time.Second,
		QueryTimeout:   30 * time.Second,
		MaxPoolSize:    20,
		MinPoolSize:    2,
		MaxIdleTime:    30 * time.Second,
	}
}

// Store is a MongoDB catalog.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	queryTimeout time.Duration
}

// Open connects to MongoDB and verifies the connection.
func Open(cfg Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxIdleTime).
		SetServerSelectionTimeout(10 * time.Second).
		SetConnectTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Store{
		client:       client,
		db:           client.Database(cfg.Database),
		queryTimeout: cfg.QueryTimeout,
	}, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// =============================================================================
// LOOKUPS
// =============================================================================

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) ([]T, error) {
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func (s *Store) ListSemesters(ctx context.Context) ([]types.Semester, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return findAll[types.Semester](ctx, s.db.Collection(SemestersCollection), bson.M{})
}

func (s *Store) ListBatches(ctx context.Context) ([]types.Batch, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return findAll[types.Batch](ctx, s.db.Collection(BatchesCollection), bson.M{})
}

func (s *Store) ListFaculty(ctx context.Context) ([]types.Faculty, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"role": bson.M{"$regex": "^" + types.RoleFaculty + "$", "$options": "i"}}
	return findAll[types.Faculty](ctx, s.db.Collection(UsersCollection), filter)
}

func (s *Store) ListOrgUnits(ctx context.Context) ([]types.OrgUnit, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return findAll[types.OrgUnit](ctx, s.db.Collection(OrgUnitsCollection), bson.M{})
}

// CheckDuplicateCourses loads the courses of every candidate semester with one
// $in query and matches them by DuplicateKey.
func (s *Store) CheckDuplicateCourses(ctx context.Context, candidates []types.CourseCandidate) ([]types.DuplicateResult, error) {
	if len(candidates) == 0 {
		return []types.DuplicateResult{}, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	seen := make(map[string]bool)
	semesterIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !seen[c.SemesterID] {
			seen[c.SemesterID] = true
			semesterIDs = append(semesterIDs, c.SemesterID)
		}
	}

	existing, err := findAll[types.Course](ctx, s.db.Collection(CoursesCollection),
		bson.M{"semester_id": bson.M{"$in": semesterIDs}})
	if err != nil {
		return nil, err
	}
	return MatchDuplicates(existing, candidates), nil
}

// MatchDuplicates answers each candidate in order. The first existing course
// with the same key names the duplicate.
func MatchDuplicates(existing []types.Course, candidates []types.CourseCandidate) []types.DuplicateResult {
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
	docs := make([]interface{}, len(entries))
	for i, e := range entries {
		docs[i] = types.Semester{ID: uuid.NewString(), Name: e.Name, Year: e.Year, OrgUnitID: e.OrgUnitID}
	}
	return s.insertAll(ctx, SemestersCollection, docs)
}

// CreateCourses inserts every entry in one transaction and returns the number
// inserted.
func (s *Store) CreateCourses(ctx context.Context, entries []types.NewCourse) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, len(entries))
	for i, e := range entries {
		docs[i] = types.Course{
			ID:            uuid.NewString(),
			Name:          e.Name,
			Code:          e.Code,
			Description:   e.Description,
			Type:          e.Type,
			SemesterID:    e.SemesterID,
			InstructorIDs: e.InstructorIDs,
			BatchIDs:      e.BatchIDs,
		}
	}
	if err := s.insertAll(ctx, CoursesCollection, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *Store) insertAll(ctx context.Context, collection string, docs []interface{}) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return s.db.Collection(collection).InsertMany(sessCtx, docs)
	})
	if err != nil {
		return fmt.Errorf("insert %s: %w", collection, err)
	}
	return nil
}
