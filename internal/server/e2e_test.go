package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"semsearch/internal/adapter/cache"
	"semsearch/internal/adapter/embedding"
	"semsearch/internal/port"
	"semsearch/internal/usecase"
)

// memStore is a minimal in-process vector store for wiring tests.
type memStore struct {
	mu     sync.Mutex
	cols   map[string]int
	points map[uint64]port.Point
}

func (m *memStore) ListCollections(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for n := range m.cols {
		names = append(names, n)
	}
	return names, nil
}

func (m *memStore) CreateCollection(ctx context.Context, name string, size int, d port.Distance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cols[name] = size
	return nil
}

func (m *memStore) Upsert(ctx context.Context, c string, pts []port.Point, wait bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pts {
		m.points[p.ID] = p
	}
	return nil
}

func (m *memStore) Search(ctx context.Context, c string, v []float32, limit int, wp bool) ([]port.ScoredPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []port.ScoredPoint
	for _, p := range m.points {
		var dot float64
		for i := range v {
			dot += float64(v[i]) * float64(p.Vector[i])
		}
		out = append(out, port.ScoredPoint{ID: p.ID, Score: dot, Payload: p.Payload})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) Health(ctx context.Context) error { return nil }

func TestUploadThenSearch(t *testing.T) {
	st := &memStore{cols: map[string]int{}, points: map[uint64]port.Point{}}
	orch, err := usecase.NewOrchestrator(embedding.NewMockEmbedder(256), st, "ecommerce_data", 256)
	if err != nil {
		t.Fatal(err)
	}
	searcher := cache.NewCachedSearcher(orch, cache.NewQueryCache(10, time.Minute))

	srv := &Server{
		Indexer:     orch,
		Searcher:    searcher,
		Health:      orch,
		Invalidator: searcher,
		Log:         logr.Discard(),
		Config:      Config{DefaultLimit: 10, BatchSize: 2},
	}
	h := srv.Handler()

	csv := "name,brand,category\nRed Shoes,Acme,footwear\nWireless Headphones,Sonic,audio\nGarden Hose,Greenly,garden\n"
	body, ctype := multipartBody(t, "file", "catalog.csv", csv)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"wireless headphones","limit":1}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("search failed: %d %s", rec.Code, rec.Body.String())
	}
	resp := decode[SearchResponse](t, rec)
	if resp.TotalResults != 1 || resp.Recommendations[0].ID != 2 {
		t.Fatalf("expected product 2 first, got %+v", resp)
	}
	if resp.Recommendations[0].Metadata["brand"] != "Sonic" {
		t.Errorf("expected brand metadata, got %v", resp.Recommendations[0].Metadata)
	}
	if s := resp.Recommendations[0].Score; s <= 0 || s > 100 {
		t.Errorf("expected percentage score, got %d", s)
	}
}
