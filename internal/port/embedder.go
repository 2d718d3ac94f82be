package port

import (
	"context"

	"semsearch/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string, role domain.Role) ([]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// Distance names a similarity metric understood by the vector store.
type Distance string

const DistanceCosine Distance = "Cosine"

// VectorStore is a remote collection-based vector database.
type VectorStore interface {
	// ListCollections returns the names of existing collections.
	ListCollections(ctx context.Context) ([]string, error)

	// CreateCollection creates a collection with a fixed vector size.
	CreateCollection(ctx context.Context, name string, size int, distance Distance) error

	// Upsert inserts or replaces points by id. With wait set the call
	// returns only once the store has applied the write.
	Upsert(ctx context.Context, collection string, points []Point, wait bool) error

	// Search returns up to limit nearest points, best first.
	Search(ctx context.Context, collection string, vector []float32, limit int, withPayload bool) ([]ScoredPoint, error)

	// Health checks if the store is reachable.
	Health(ctx context.Context) error
}

// Point is a vector with its id and payload.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a search hit.
type ScoredPoint struct {
	ID      uint64
	Score   float64 // Similarity score (higher is better)
	Payload map[string]any
}
