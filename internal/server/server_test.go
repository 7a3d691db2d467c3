package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalify/evalify-sub003/internal/catalog/memory"
	"github.com/evalify/evalify-sub003/internal/importer"
	"github.com/evalify/evalify-sub003/internal/types"
)

const csvHeader = "Semester Name,Course Name,Course Code,Course Description,Course Type,Instructors (Pipe Separated),Batches (Pipe Separated)\n"

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	logger, _ := test.NewNullLogger()

	store := memory.New(memory.Fixture{
		OrgUnits:  []types.OrgUnit{{ID: "ou-aid", Name: "AIDS"}},
		Semesters: []types.Semester{{ID: "sem-aid-2", Name: "S2-AID-2024", Year: 2024, OrgUnitID: "ou-aid"}},
		Batches:   []types.Batch{{ID: "b-a", Name: "2025AIDA"}},
		Faculty:   []types.Faculty{{ID: "f-ram", ProfileID: "ramkumar", Name: "Ram", Role: types.RoleFaculty}},
	})
	engine := importer.New(store, importer.Options{
		MaxRows: 10,
		Now:     func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
		Logger:  logger,
	})
	return New(engine, NewSessions(time.Hour), Options{Logger: logger}), store
}

func upload(t *testing.T, h http.Handler, name, body string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/imports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_UploadAndCommit(t *testing.T) {
	srv, store := newTestServer(t)
	h := srv.Router()

	rec := upload(t, h, "courses.csv", csvHeader+
		"S2-AID-2024,Data Structures,AID203,,CORE,ramkumar,2025AIDA\n"+
		"S5-AID-2024,Graphs,AID501,,ELECTIVE,ramkumar,2025AIDA\n"+
		"S2-AID-2024,Broken,AID999,,CORE,nobody,2025AIDA\n")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID     string `json:"id"`
		Report struct {
			Summary struct {
				TotalRows      int `json:"total_rows"`
				InvalidRows    int `json:"invalid_rows"`
				SemestersToAdd int `json:"semesters_to_create"`
			} `json:"summary"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 3, created.Report.Summary.TotalRows)
	assert.Equal(t, 1, created.Report.Summary.InvalidRows)
	assert.Equal(t, 1, created.Report.Summary.SemestersToAdd)

	rec = do(h, http.MethodGet, "/api/imports/"+created.ID)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.Snapshot().Courses, "validation must not write")

	rec = do(h, http.MethodPost, "/api/imports/"+created.ID+"/commit")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result importer.CommitResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, importer.StateSucceeded, result.State)
	assert.Equal(t, 2, result.CoursesCreated)
	assert.Equal(t, 1, result.SkippedRows)

	snap := store.Snapshot()
	assert.Len(t, snap.Courses, 2)
	assert.Len(t, snap.Semesters, 2)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/imports/"+created.ID).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/api/imports/"+created.ID+"/commit").Code)
}

func TestServer_Abandon(t *testing.T) {
	srv, store := newTestServer(t)
	h := srv.Router()

	rec := upload(t, h, "courses.csv", csvHeader+"S2-AID-2024,Data Structures,AID203,,CORE,ramkumar,2025AIDA\n")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	assert.Equal(t, http.StatusNoContent, do(h, http.MethodDelete, "/api/imports/"+created.ID).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/api/imports/"+created.ID).Code)
	assert.Empty(t, store.Snapshot().Courses)
	assert.Zero(t, srv.sessions.Len())
}

func TestServer_CommitWithoutValidRows(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	rec := upload(t, h, "courses.csv", csvHeader+"S2-AID-2024,,AID203,,CORE,ramkumar,2025AIDA\n")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(h, http.MethodPost, "/api/imports/"+created.ID+"/commit")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOTHING_TO_COMMIT")
}

func TestServer_UploadErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	rec := upload(t, h, "courses.pdf", "whatever")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_FILE")

	rec = upload(t, h, "courses.csv", "Semester Name\nS2-AID-2024\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required columns")

	rec = upload(t, h, "courses.csv", csvHeader)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rows := strings.Repeat("S2-AID-2024,DS,AID203,,CORE,ramkumar,2025AIDA\n", 11)
	rec = upload(t, h, "courses.csv", csvHeader+rows)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "too many rows")

	req := httptest.NewRequest(http.MethodPost, "/api/imports", strings.NewReader("plain"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_TemplateAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	rec := do(h, http.MethodGet, "/api/imports/template")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "course-import-template.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = do(h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "importer_http_requests_total")
}

func TestSessions_Expiry(t *testing.T) {
	s := NewSessions(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Put(&importer.Import{ID: "a"}, nil)
	s.Put(&importer.Import{ID: "b"}, nil)
	_, ok := s.Get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = s.Get("a")
	assert.False(t, ok, "expired session is not returned")
	assert.Equal(t, 1, s.Sweep())
	assert.Zero(t, s.Len())
}
