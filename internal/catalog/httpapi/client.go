// =============================================================================
// Academic Bulk Importer - Remote Catalog Client
// =============================================================================
//
// A catalog served by the academic data service over JSON/HTTP.
//
// ENDPOINTS:
//   GET  /api/semesters            -> []Semester
//   GET  /api/batches              -> []Batch
//   GET  /api/faculty              -> []Faculty
//   GET  /api/org-units            -> []OrgUnit
//   POST /api/courses/duplicates   {courses: [...]}   -> {results: [...]}
//   POST /api/semesters:bulk       {semesters: [...]} -> 2xx
//   POST /api/courses:bulk         {courses: [...]}   -> {count: n}
//
// Every request carries a fresh request id. Non-2xx answers become *APIError.
//
// =============================================================================

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evalify/evalify-sub003/internal/types"
)

// RequestIDHeader carries the per-request id.
const RequestIDHeader = "X-Request-Id"

// APIError is a non-2xx answer from the data service.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("catalog service: %s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("catalog service: status %d: %s", e.Status, e.Message)
}

// Client is a remote catalog.
type Client struct {
	baseURL       *url.URL
	authorization string
	httpClient    *http.Client
}

// New creates a client for baseURL. authorization, when set, is sent verbatim
// in the Authorization header.
func New(baseURL, authorization string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid catalog base url: %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:       u,
		authorization: strings.TrimSpace(authorization),
		httpClient:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody any, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("json marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("http read: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || strings.TrimSpace(apiErr.Message) == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("json unmarshal response: %w", err)
	}
	return nil
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (c *Client) ListSemesters(ctx context.Context) ([]types.Semester, error) {
	var out []types.Semester
	if err := c.doJSON(ctx, http.MethodGet, "/api/semesters", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListBatches(ctx context.Context) ([]types.Batch, error) {
	var out []types.Batch
	if err := c.doJSON(ctx, http.MethodGet, "/api/batches", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListFaculty(ctx context.Context) ([]types.Faculty, error) {
	var out []types.Faculty
	if err := c.doJSON(ctx, http.MethodGet, "/api/faculty", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListOrgUnits(ctx context.Context) ([]types.OrgUnit, error) {
	var out []types.OrgUnit
	if err := c.doJSON(ctx, http.MethodGet, "/api/org-units", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckDuplicateCourses sends all candidates in one request.
func (c *Client) CheckDuplicateCourses(ctx context.Context, candidates []types.CourseCandidate) ([]types.DuplicateResult, error) {
	req := struct {
		Courses []types.CourseCandidate `json:"courses"`
	}{Courses: candidates}
	var out struct {
		Results []types.DuplicateResult `json:"results"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/courses/duplicates", req, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

func (c *Client) CreateSemesters(ctx context.Context, entries []types.NewSemester) error {
	req := struct {
		Semesters []types.NewSemester `json:"semesters"`
	}{Semesters: entries}
	return c.doJSON(ctx, http.MethodPost, "/api/semesters:bulk", req, nil)
}

func (c *Client) CreateCourses(ctx context.Context, entries []types.NewCourse) (int, error) {
	req := struct {
		Courses []types.NewCourse `json:"courses"`
	}{Courses: entries}
	var out struct {
		Count int `json:"count"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/courses:bulk", req, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}
