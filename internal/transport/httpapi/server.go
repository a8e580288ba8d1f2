// Package httpapi exposes the QA flows as a thin JSON API. Handlers
// decode, delegate to the usecases and map sentinel errors to status
// codes; no business logic lives here.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/docqa-cloud/docqa/internal/domain"
	"github.com/docqa-cloud/docqa/internal/loader"
	healthuc "github.com/docqa-cloud/docqa/internal/usecase/health"
	qauc "github.com/docqa-cloud/docqa/internal/usecase/qa"
)

// UploadLimits bounds multipart uploads.
type UploadLimits struct {
	Dir      string
	MaxBytes int64
}

// Server is the HTTP API server.
type Server struct {
	qa     *qauc.Service
	health *healthuc.Service
	upload UploadLimits
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(qa *qauc.Service, health *healthuc.Service, upload UploadLimits, logger *zap.Logger) *Server {
	return &Server{qa: qa, health: health, upload: upload, logger: logger}
}

// Routes builds the router. Cross-cutting middleware is attached by the
// caller so tests can exercise handlers directly.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/upload", s.handleUpload)
	r.Post("/ask", s.handleAsk)
	r.Post("/summarize", s.handleSummarize)
	r.Post("/compare", s.handleCompare)
	r.Delete("/sessions/{sessionID}", s.handleDeleteSession)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Extra 1MB for multipart form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.upload.MaxBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !loader.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	// The upload lands in a temp file whose lifetime is this request.
	tmp, err := os.CreateTemp(s.upload.Dir, "upload-*"+filepath.Ext(filename))
	if err != nil {
		s.logger.Error("create temp upload", zap.Error(err))
		jsonError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	written, err := io.Copy(tmp, io.LimitReader(file, s.upload.MaxBytes+1))
	closeErr := tmp.Close()
	if err != nil || closeErr != nil {
		jsonError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}
	if written > s.upload.MaxBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.upload.MaxBytes),
			http.StatusRequestEntityTooLarge)
		return
	}

	res, err := s.qa.Upload(r.Context(), tmp.Name(), filename)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": res.SessionID,
		"filename":   res.Filename,
		"chunks":     res.Chunks,
	})
}

type askRequest struct {
	Question   string   `json:"question"`
	SessionIDs []string `json:"session_ids"`
}

type sessionsRequest struct {
	SessionIDs []string `json:"session_ids"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}

	res, err := s.qa.Ask(r.Context(), req.Question, req.SessionIDs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":      res.Answer,
		"answer_type": res.AnswerType,
		"source":      res.Source,
		"degraded":    res.Degraded,
	})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req sessionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.qa.Summarize(r.Context(), req.SessionIDs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"summary": res.Summary})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req sessionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.qa.Compare(r.Context(), req.SessionIDs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"comparison": res.Comparison})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.qa.DeleteSession(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// handleDomainError maps sentinel errors to status codes without leaking
// internals to the client.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("request failed", zap.Error(err))

	switch {
	case errors.Is(err, domain.ErrEmptyDocument):
		jsonError(w, domain.ErrEmptyDocument.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnsupportedFormat):
		jsonError(w, domain.ErrUnsupportedFormat.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrIndexBuildFailed), errors.Is(err, domain.ErrEmbeddingProvider):
		jsonError(w, domain.ErrEmbeddingProvider.Error(), http.StatusBadGateway)
	case errors.Is(err, domain.ErrModelUnavailable):
		jsonError(w, domain.ErrModelUnavailable.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.Error("internal error", zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

// sanitizeFilename keeps only the base name of a client-supplied path.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == ".." || name == "/" {
		return "upload"
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
