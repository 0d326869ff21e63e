package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/ingestion"
	"github.com/poiesic/docrag/query"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err,
			"request_id", RequestID(r.Context()))
	}
	writeJSON(w, status, errorResponse{Kind: core.KindOf(err), Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", core.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cfg := s.service.Config()
	body := map[string]string{
		"status":             "healthy",
		"embedding_model":    cfg.Embedding.Model,
		"embedding_provider": cfg.Embedding.Provider,
	}
	status := http.StatusOK
	if _, err := s.service.Collection().Stats(r.Context()); err != nil {
		body["status"] = "unhealthy"
		body["error"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.answer(w, r, req)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	off := false
	req.Synthesize = &off
	s.answer(w, r, req)
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request, req query.Request) {
	resp, err := s.service.Query().Query(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ingestResponse is an ingestion report with its summary fields.
type ingestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*ingestion.Report
}

func (s *Server) writeReport(w http.ResponseWriter, report *ingestion.Report) {
	writeJSON(w, http.StatusOK, ingestResponse{
		Success: report.Success(),
		Message: report.Message(),
		Report:  report,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid multipart form: %w", core.ErrInvalidInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	overrides, err := parseOverrides(r.MultipartForm.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var headers []*multipart.FileHeader
	for _, field := range []string{"files", "files[]", "file"} {
		headers = append(headers, r.MultipartForm.File[field]...)
	}
	if len(headers) == 0 {
		s.writeError(w, r, fmt.Errorf("%w: no files uploaded", core.ErrInvalidInput))
		return
	}

	uploads := make([]ingestion.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: reading %s: %w", core.ErrInvalidInput, fh.Filename, err))
			return
		}
		defer f.Close()
		uploads = append(uploads, ingestion.Upload{Name: fh.Filename, Reader: f})
	}

	report, err := s.service.Pipeline().IngestUploads(r.Context(), uploads, overrides)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeReport(w, report)
}

// parseOverrides reads the optional chunk_size and chunk_overlap form fields.
// A field that is present, including "0", overrides the configured value.
func parseOverrides(values map[string][]string) (*ingestion.Overrides, error) {
	var ov ingestion.Overrides
	for field, dst := range map[string]**int{
		"chunk_size":    &ov.ChunkSize,
		"chunk_overlap": &ov.ChunkOverlap,
	} {
		v := strings.TrimSpace(first(values[field]))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s must be a non-negative integer, got %q", core.ErrInvalidInput, field, v)
		}
		*dst = &n
	}
	if ov.IsZero() {
		return nil, nil
	}
	return &ov, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (s *Server) handleIngestDirectory(w http.ResponseWriter, r *http.Request) {
	dir := strings.TrimSpace(r.URL.Query().Get("directory_path"))
	if dir == "" {
		s.writeError(w, r, fmt.Errorf("%w: directory_path is required", core.ErrInvalidInput))
		return
	}

	overrides, err := parseOverrides(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.service.Pipeline().IngestDirectory(r.Context(), dir, overrides)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeReport(w, report)
}

type documentInfo struct {
	Source     string            `json:"source"`
	Size       int               `json:"size"`
	ChunkCount int               `json:"chunk_count"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	IngestedAt time.Time         `json:"ingested_at"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.Collection().ListDocuments(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]documentInfo, len(docs))
	for i, d := range docs {
		out[i] = documentInfo{
			Source:     d.Source,
			Size:       d.Size,
			ChunkCount: d.ChunkCount,
			Metadata:   d.Metadata,
			IngestedAt: d.IngestedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": out,
		"count":     len(out),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, err := s.service.Collection().Get(r.Context(), core.ID(id))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       record.Id,
		"content":  record.Text,
		"metadata": record.Metadata,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Collection().Reset(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Collection reset successfully",
		"success": true,
	})
}
