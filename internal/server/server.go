// =============================================================================
// Academic Bulk Importer - HTTP Surface
// =============================================================================
//
// The HTTP surface runs the same engine as the CLI, holding each validated
// import as a session until the user confirms or abandons it.
//
// ROUTES:
//   POST   /api/imports              Upload (multipart "file") and validate
//   GET    /api/imports/template     Download the template workbook
//   GET    /api/imports/{id}         The stored validation report
//   POST   /api/imports/{id}/commit  Confirm: run the two-phase commit
//   DELETE /api/imports/{id}         Abandon, no side effects
//   GET    <metrics path>            Prometheus exposition
//
// =============================================================================

package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/evalify/evalify-sub003/internal/importer"
	"github.com/evalify/evalify-sub003/internal/metrics"
	"github.com/evalify/evalify-sub003/internal/report"
	"github.com/evalify/evalify-sub003/internal/sheet"
)

// Options configures a Server.
type Options struct {
	Addr           string
	MetricsPath    string
	MaxUploadBytes int64
	Decode         sheet.Options
	Logger         logrus.FieldLogger
}

// Server serves the import API.
type Server struct {
	engine   *importer.Engine
	sessions *Sessions
	options  Options
	logger   logrus.FieldLogger
}

// New creates a Server.
func New(engine *importer.Engine, sessions *Sessions, options Options) *Server {
	if options.MetricsPath == "" {
		options.MetricsPath = "/metrics"
	}
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = 10 << 20
	}
	if options.Logger == nil {
		options.Logger = logrus.StandardLogger()
	}
	return &Server{engine: engine, sessions: sessions, options: options, logger: options.Logger}
}

// Router returns the HTTP handler with every route registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	api := r.PathPrefix("/api/imports").Subrouter()
	api.HandleFunc("", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/template", s.handleTemplate).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/{id}/commit", s.handleCommit).Methods(http.MethodPost)
	api.HandleFunc("/{id}", s.handleAbandon).Methods(http.MethodDelete)

	r.Handle(s.options.MetricsPath, promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.options.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.options.Addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

type uploadResponse struct {
	ID     string         `json:"id"`
	Report *report.Report `json:"report"`
}

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.options.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.options.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_FORM", err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", err)
		return
	}
	defer file.Close()

	raw, err := sheet.Decode(header.Filename, file, s.options.Decode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILE", err)
		return
	}

	imp, err := s.engine.Validate(r.Context(), header.Filename, raw)
	switch {
	case errors.Is(err, importer.ErrNoRows), errors.Is(err, importer.ErrTooManyRows):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_FILE", err)
		return
	case err != nil:
		s.logger.WithError(err).Error("validation failed")
		writeError(w, http.StatusBadGateway, "CATALOG_UNAVAILABLE", err)
		return
	}

	rep := imp.Report()
	s.sessions.Put(imp, rep)
	writeJSON(w, http.StatusCreated, uploadResponse{ID: imp.ID, Report: rep})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="course-import-template.xlsx"`)
	if err := report.WriteTemplate(w); err != nil {
		s.logger.WithError(err).Error("failed to write template")
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "IMPORT_NOT_FOUND", errors.New("import not found or expired"))
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{ID: sess.Import.ID, Report: sess.Report})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "IMPORT_NOT_FOUND", errors.New("import not found or expired"))
		return
	}

	res, err := s.engine.Commit(r.Context(), sess.Import)
	switch {
	case errors.Is(err, importer.ErrNothingToCommit):
		writeError(w, http.StatusUnprocessableEntity, "NOTHING_TO_COMMIT", err)
		return
	case errors.Is(err, importer.ErrAlreadyCommitted):
		writeError(w, http.StatusConflict, "ALREADY_COMMITTED", err)
		return
	}

	s.sessions.Delete(id)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, "IMPORT_NOT_FOUND", errors.New("import not found or expired"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{Message: err.Error(), Code: code})
}

// instrument records request counts and latency per route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecordingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.ObserveRequest(route, fmt.Sprint(rec.status), time.Since(start).Seconds())
		s.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"route":  route,
			"status": rec.status,
		}).Debug("request served")
	})
}

type statusRecordingResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecordingResponseWriter) WriteHeader(status int) {
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecordingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecordingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecordingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}
