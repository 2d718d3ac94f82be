package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"semsearch/internal/domain"
	"semsearch/internal/metrics"
	"semsearch/internal/port"
)

const (
	defaultBatchSize   = 50
	defaultConcurrency = 8
	defaultMaxLimit    = 100
)

// Orchestrator embeds documents and queries and moves them in and out of a
// single vector store collection. It holds no state beyond its clients and
// is safe for concurrent use.
type Orchestrator struct {
	embedder    port.Embedder
	store       port.VectorStore
	collection  string
	dimension   int
	batchSize   int
	concurrency int
	maxLimit    int
	log         logr.Logger
	metrics     *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBatchSize sets the chunk size used when a caller passes batchSize <= 0.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithConcurrency bounds the in-flight embedding calls per chunk.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxLimit sets the ceiling search limits are clamped to.
func WithMaxLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

func WithLogger(log logr.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates an orchestrator bound to one collection of the
// given dimensionality.
func NewOrchestrator(embedder port.Embedder, store port.VectorStore, collection string, dimension int, opts ...Option) (*Orchestrator, error) {
	if embedder == nil || store == nil {
		return nil, fmt.Errorf("embedder and vector store are required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}

	o := &Orchestrator{
		embedder:    embedder,
		store:       store,
		collection:  collection,
		dimension:   dimension,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
		maxLimit:    defaultMaxLimit,
		log:         logr.Discard(),
	}
	for _, fn := range opts {
		fn(o)
	}
	o.log = o.log.WithName("orchestrator").WithValues("collection", collection)
	return o, nil
}

// Collection returns the collection name.
func (o *Orchestrator) Collection() string {
	return o.collection
}

// Dimension returns the vector size of the collection.
func (o *Orchestrator) Dimension() int {
	return o.dimension
}

// EnsureCollection creates the collection with cosine distance if it does
// not exist yet. Calling it again once the collection exists is a no-op.
func (o *Orchestrator) EnsureCollection(ctx context.Context) error {
	names, err := o.store.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("%w: list collections: %w", ErrStoreUnavailable, err)
	}
	if slices.Contains(names, o.collection) {
		return nil
	}

	if err := o.store.CreateCollection(ctx, o.collection, o.dimension, port.DistanceCosine); err != nil {
		return fmt.Errorf("%w: create collection %q: %w", ErrStoreUnavailable, o.collection, err)
	}
	o.log.Info("collection created", "dimension", o.dimension, "distance", port.DistanceCosine)
	return nil
}

// Embed returns the embedding of text. The vector is guaranteed to have the
// collection's dimensionality.
func (o *Orchestrator) Embed(ctx context.Context, text string, role domain.Role) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}

	start := time.Now()
	vec, err := o.embedder.Embed(ctx, text, role)
	if err == nil && len(vec) != o.dimension {
		err = fmt.Errorf("vector dimension mismatch: expected %d, got %d", o.dimension, len(vec))
	}
	o.metrics.ObserveEmbedding(string(role), start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	return vec, nil
}

// IndexDocuments embeds docs and upserts them in a single call, waiting for
// the store to apply the write. Any failed embedding fails the whole set and
// nothing is upserted.
func (o *Orchestrator) IndexDocuments(ctx context.Context, docs []domain.Document) error {
	if err := validateDocuments(docs); err != nil {
		return err
	}
	if err := o.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrIndexingFailed, err)
	}
	return o.indexBatch(ctx, docs)
}

// ProgressFunc is called after each committed chunk of a batched import.
type ProgressFunc func(p BatchProgress)

// BatchProgress describes the state of a batched import after a chunk.
type BatchProgress struct {
	Batch     int
	Batches   int
	Committed int
	Total     int
	LastID    uint64
}

// BatchIndexDocuments indexes docs in sequential chunks of at most batchSize.
// See BatchIndexDocumentsFunc.
func (o *Orchestrator) BatchIndexDocuments(ctx context.Context, docs []domain.Document, batchSize int) error {
	return o.BatchIndexDocumentsFunc(ctx, docs, batchSize, nil)
}

// BatchIndexDocumentsFunc ensures the collection once and indexes docs in
// contiguous chunks, one after another. The first failing chunk stops the
// import with a *BatchError: earlier chunks stay committed and later chunks
// are not attempted. A batchSize <= 0 selects the configured default.
// The collection is not re-checked between chunks.
func (o *Orchestrator) BatchIndexDocumentsFunc(ctx context.Context, docs []domain.Document, batchSize int, progress ProgressFunc) error {
	if err := validateDocuments(docs); err != nil {
		return err
	}
	if batchSize <= 0 {
		batchSize = o.batchSize
	}
	if err := o.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrIndexingFailed, err)
	}

	batches := (len(docs) + batchSize - 1) / batchSize
	committed := 0
	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))
		batch := docs[start:end]
		n := start/batchSize + 1

		err := ctx.Err()
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrIndexingFailed, err)
		} else {
			err = o.indexBatch(ctx, batch)
		}
		if err != nil {
			o.log.Error(err, "batch failed", "batch", n, "batches", batches, "committed", committed)
			return &BatchError{
				Batch:     n,
				FirstID:   batch[0].ID,
				LastID:    batch[len(batch)-1].ID,
				Committed: committed,
				Err:       err,
			}
		}

		committed += len(batch)
		o.log.V(1).Info("processed batch", "batch", n, "batches", batches, "committed", committed)
		if progress != nil {
			progress(BatchProgress{
				Batch:     n,
				Batches:   batches,
				Committed: committed,
				Total:     len(docs),
				LastID:    batch[len(batch)-1].ID,
			})
		}
	}

	o.log.Info("indexed documents", "documents", committed, "batches", batches)
	return nil
}

// indexBatch fans out the embedding calls, fans in, then upserts once.
func (o *Orchestrator) indexBatch(ctx context.Context, docs []domain.Document) (err error) {
	if len(docs) == 0 {
		return nil
	}
	defer func() { o.metrics.ObserveBatch(len(docs), err) }()

	points := make([]port.Point, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vec, err := o.Embed(gctx, doc.Text, domain.RoleDocument)
			if err != nil {
				return fmt.Errorf("document %d: %w", doc.ID, err)
			}
			points[i] = port.Point{ID: doc.ID, Vector: vec, Payload: doc.Payload()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %w", ErrIndexingFailed, err)
	}

	if err := o.store.Upsert(ctx, o.collection, points, true); err != nil {
		return fmt.Errorf("%w: %w: upsert %d points: %w", ErrIndexingFailed, ErrStoreUnavailable, len(points), err)
	}
	return nil
}

// SearchDocuments returns up to limit documents nearest to query. A limit
// above the configured maximum is clamped; a non-positive limit or blank
// query is rejected before any external call.
func (o *Orchestrator) SearchDocuments(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidInput)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidInput, limit)
	}
	if limit > o.maxLimit {
		limit = o.maxLimit
	}
	defer o.metrics.ObserveSearch(time.Now())

	vec, err := o.Embed(ctx, query, domain.RoleQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	hits, err := o.store.Search(ctx, o.collection, vec, limit, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrSearchFailed, ErrStoreUnavailable, err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, toSearchResult(hit))
	}
	o.log.V(1).Info("search", "query", query, "limit", limit, "results", len(results))
	return results, nil
}

// Health reports whether the vector store is reachable.
func (o *Orchestrator) Health(ctx context.Context) error {
	if err := o.store.Health(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func toSearchResult(hit port.ScoredPoint) domain.SearchResult {
	res := domain.SearchResult{ID: hit.ID, Score: clampScore(hit.Score)}
	for k, v := range hit.Payload {
		if k == domain.PayloadTextKey {
			res.Text, _ = v.(string)
			continue
		}
		if res.Metadata == nil {
			res.Metadata = make(map[string]any, len(hit.Payload))
		}
		res.Metadata[k] = v
	}
	return res
}

// clampScore keeps cosine similarities within [0,1]; opposite vectors
// count as no match.
func clampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

func validateDocuments(docs []domain.Document) error {
	for i, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			return fmt.Errorf("%w: document %d (position %d) has empty text", ErrInvalidInput, doc.ID, i)
		}
	}
	return nil
}
