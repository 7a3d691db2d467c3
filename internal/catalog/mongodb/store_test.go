package mongodb

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/evalify/evalify-sub003/internal/types"
)

func TestMatchDuplicates(t *testing.T) {
	existing := []types.Course{
		{Name: "Intro", Code: "AID100", SemesterID: "sem-1", BatchIDs: []string{"b1", "b2"}, InstructorIDs: []string{"f2", "f1"}},
	}
	got := MatchDuplicates(existing, []types.CourseCandidate{
		{SemesterID: "sem-1", Code: "AID100", BatchIDs: []string{"b2", "b1"}, InstructorIDs: []string{"f1", "f2"}},
		{SemesterID: "sem-2", Code: "AID100", BatchIDs: []string{"b1", "b2"}, InstructorIDs: []string{"f1", "f2"}},
	})

	require.Len(t, got, 2)
	assert.True(t, got[0].IsDuplicate)
	assert.Equal(t, "Intro", got[0].ExistingCourseName)
	assert.False(t, got[1].IsDuplicate)
}

func TestStore_Integration(t *testing.T) {
	uri := os.Getenv("IMPORTER_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("IMPORTER_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	store, err := Open(DefaultConfig(uri, "importer_test_"+uuid.NewString()[:8]))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.db.Drop(context.Background())
		_ = store.Close()
	})

	_, err = store.db.Collection(UsersCollection).InsertMany(ctx, []interface{}{
		bson.M{"_id": "f1", "profile_id": "ramkumar", "name": "Ram", "role": "faculty"},
		bson.M{"_id": "s1", "profile_id": "student1", "name": "Stu", "role": "STUDENT"},
	})
	require.NoError(t, err)

	faculty, err := store.ListFaculty(ctx)
	require.NoError(t, err)
	require.Len(t, faculty, 1)
	assert.Equal(t, "ramkumar", faculty[0].ProfileID)

	require.NoError(t, store.CreateSemesters(ctx, []types.NewSemester{{Name: "S2-AID-2024", Year: 2024, OrgUnitID: "ou-aid"}}))
	semesters, err := store.ListSemesters(ctx)
	require.NoError(t, err)
	require.Len(t, semesters, 1)

	n, err := store.CreateCourses(ctx, []types.NewCourse{{
		Name: "Intro", Code: "AID100", Type: types.CourseTypeCore, SemesterID: semesters[0].ID,
		InstructorIDs: []string{"f1"}, BatchIDs: []string{"b1"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dups, err := store.CheckDuplicateCourses(ctx, []types.CourseCandidate{
		{SemesterID: semesters[0].ID, Code: "aid100", BatchIDs: []string{"b1"}, InstructorIDs: []string{"f1"}},
	})
	require.NoError(t, err)
	assert.True(t, dups[0].IsDuplicate)
}
