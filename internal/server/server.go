// Package server exposes CSV upload and semantic search over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"semsearch/internal/domain"
	"semsearch/internal/metrics"
)

// Indexer imports documents in batches.
type Indexer interface {
	BatchIndexDocuments(ctx context.Context, docs []domain.Document, batchSize int) error
}

// Searcher answers semantic queries.
type Searcher interface {
	SearchDocuments(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Invalidator drops cached search results after the index changes.
type Invalidator interface {
	Invalidate()
}

// Config holds request-level settings.
type Config struct {
	DefaultLimit   int
	BatchSize      int
	MaxUploadBytes int64
}

// Server wires the HTTP handlers to the orchestrator.
type Server struct {
	Indexer     Indexer
	Searcher    Searcher
	Health      HealthChecker
	Invalidator Invalidator // optional
	Gatherer    prometheus.Gatherer
	Metrics     *metrics.Metrics
	Log         logr.Logger
	Config      Config
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/upload", s.instrument("/api/upload", http.HandlerFunc(s.Upload)))
	mux.Handle("POST /api/search", s.instrument("/api/search", http.HandlerFunc(s.Search)))
	mux.Handle("GET /healthz", s.instrument("/healthz", http.HandlerFunc(s.Healthz)))
	if s.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// within shutdownWait.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownWait time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Metrics.ObserveRequest(route, strconv.Itoa(rec.status))
		s.Log.V(1).Info("request", "route", route, "status", rec.status, "duration", time.Since(start))
	})
}
