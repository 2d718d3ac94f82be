package usecase

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"semsearch/internal/adapter/embedding"
	"semsearch/internal/domain"
	"semsearch/internal/port"
)

// fakeEmbedder wraps the mock embedder with failure injection and call
// accounting.
type fakeEmbedder struct {
	inner    *embedding.MockEmbedder
	failOn   map[string]error
	dimOver  int // when > 0, return vectors of this length instead
	calls    atomic.Int64
	inflight atomic.Int64
	peak     atomic.Int64
	roles    sync.Map // text -> domain.Role
	gate     chan struct{}
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{inner: embedding.NewMockEmbedder(dim), failOn: map[string]error{}}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, role domain.Role) ([]float32, error) {
	f.calls.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.roles.Store(text, role)
	if err, ok := f.failOn[text]; ok {
		return nil, err
	}
	if f.dimOver > 0 {
		return make([]float32, f.dimOver), nil
	}
	return f.inner.Embed(ctx, text, role)
}

func (f *fakeEmbedder) Dimension() int    { return f.inner.Dimension() }
func (f *fakeEmbedder) ModelName() string { return "fake" }

// fakeStore is an in-memory stand-in for the remote vector store.
type fakeStore struct {
	mu          sync.Mutex
	collections map[string]int
	points      map[string]map[uint64]port.Point
	listCalls   int
	createCalls int
	upserts     [][]uint64 // ids per upsert call, in call order
	searchCalls int
	listErr     error
	createErr   error
	searchErr   error
	healthErr   error
	failUpsert  int // 1-based upsert call that fails; 0 = never
}

var errStoreDown = errors.New("connection refused")

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: map[string]int{},
		points:      map[string]map[uint64]port.Point{},
	}
}

func (s *fakeStore) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	return names, nil
}

func (s *fakeStore) CreateCollection(ctx context.Context, name string, size int, distance port.Distance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	s.collections[name] = size
	s.points[name] = map[uint64]port.Point{}
	return nil
}

func (s *fakeStore) Upsert(ctx context.Context, collection string, points []port.Point, wait bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint64, len(points))
	for i, p := range points {
		ids[i] = p.ID
	}
	s.upserts = append(s.upserts, ids)
	if s.failUpsert == len(s.upserts) {
		return errStoreDown
	}
	size, ok := s.collections[collection]
	if !ok {
		return errors.New("collection not found")
	}
	for _, p := range points {
		if len(p.Vector) != size {
			return errors.New("wrong vector size")
		}
	}
	for _, p := range points {
		s.points[collection][p.ID] = p
	}
	return nil
}

func (s *fakeStore) Search(ctx context.Context, collection string, vector []float32, limit int, withPayload bool) ([]port.ScoredPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchCalls++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	var hits []port.ScoredPoint
	for _, p := range s.points[collection] {
		hits = append(hits, port.ScoredPoint{ID: p.ID, Score: cosine(vector, p.Vector), Payload: p.Payload})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *fakeStore) Health(ctx context.Context) error {
	return s.healthErr
}

func (s *fakeStore) stored(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points[collection])
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
