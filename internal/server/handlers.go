package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"semsearch/internal/adapter/catalog"
	"semsearch/internal/adapter/fs"
	"semsearch/internal/usecase"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Committed *int   `json:"committed,omitempty"`
}

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	Message       string `json:"message"`
	ProductsCount int    `json:"productsCount"`
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query any  `json:"query"`
	Limit *int `json:"limit,omitempty"`
}

// Recommendation is a search hit with its score as a percentage.
type Recommendation struct {
	ID       uint64         `json:"id"`
	Score    int            `json:"score"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchResponse is returned by POST /api/search.
type SearchResponse struct {
	Query           string           `json:"query"`
	Recommendations []Recommendation `json:"recommendations"`
	TotalResults    int              `json:"totalResults"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps orchestrator errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrStoreUnavailable), isTemporary(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, usecase.ErrEmbeddingFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// isTemporary reports whether an upstream provider asked to back off, as
// with a rate limit.
func isTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

// Upload handles POST /api/upload with a multipart "file" field.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	log := s.Log.WithName("upload")

	if s.Config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxUploadBytes)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if !fs.IsCSV(header.Filename) {
		writeError(w, http.StatusBadRequest, "Only CSV files are allowed")
		return
	}

	docs, err := catalog.Parse(file, 1)
	if err != nil {
		log.Info("rejected malformed csv", "file", header.Filename, "error", err.Error())
		writeError(w, http.StatusBadRequest, "Malformed CSV file")
		return
	}

	err = s.Indexer.BatchIndexDocuments(r.Context(), docs, s.Config.BatchSize)
	if s.Invalidator != nil {
		s.Invalidator.Invalidate()
	}
	if err != nil {
		log.Error(err, "indexing failed", "file", header.Filename, "documents", len(docs))
		resp := ErrorResponse{Error: "Failed to process CSV file"}
		var batchErr *usecase.BatchError
		if errors.As(err, &batchErr) {
			resp.Committed = &batchErr.Committed
		}
		writeJSON(w, statusFor(err), resp)
		return
	}

	log.Info("indexed upload", "file", header.Filename, "documents", len(docs))
	writeJSON(w, http.StatusOK, UploadResponse{
		Message:       "CSV uploaded and indexed successfully",
		ProductsCount: len(docs),
	})
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	query, ok := req.Query.(string)
	if !ok || query == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	limit := s.Config.DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	results, err := s.Searcher.SearchDocuments(r.Context(), query, limit)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusBadRequest {
			writeError(w, status, err.Error())
			return
		}
		s.Log.Error(err, "search failed", "query", query)
		writeError(w, status, "Failed to search products")
		return
	}

	recs := make([]Recommendation, 0, len(results))
	for _, res := range results {
		recs = append(recs, Recommendation{
			ID:       res.ID,
			Score:    int(math.Round(res.Score * 100)),
			Text:     res.Text,
			Metadata: res.Metadata,
		})
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Query:           query,
		Recommendations: recs,
		TotalResults:    len(recs),
	})
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.Health.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
