package cli

import (
	"fmt"
	"os"
	"time"

	"semsearch/config"
	"semsearch/internal/adapter/embedding"
	"semsearch/internal/adapter/qdrant"
	"semsearch/internal/metrics"
	"semsearch/internal/port"
	"semsearch/internal/usecase"
)

// newEmbedder builds the configured embedding provider.
func newEmbedder(c *config.Config) (port.Embedder, error) {
	ec := c.Embedding
	var opts []embedding.Option
	if ec.BaseURL != "" {
		opts = append(opts, embedding.WithBaseURL(ec.BaseURL))
	}
	if ec.TimeoutS > 0 {
		opts = append(opts, embedding.WithTimeout(time.Duration(ec.TimeoutS)*time.Second))
	}

	switch ec.Provider {
	case "gemini", "":
		return embedding.NewGeminiEmbedder(ec.APIKeyEnv, ec.Model, ec.Dimension, opts...)
	case "openai":
		return embedding.NewOpenAIEmbedder(ec.APIKeyEnv, ec.Model, ec.Dimension, opts...)
	case "ollama":
		return embedding.NewOllamaEmbedder(ec.Model, ec.Dimension, opts...)
	case "mock":
		return embedding.NewMockEmbedder(ec.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", ec.Provider)
	}
}

// newVectorStore builds the Qdrant client. The API key is read from the
// environment variable named in the config.
func newVectorStore(c *config.Config) (*qdrant.Client, error) {
	qc := c.Qdrant
	var opts []qdrant.Option
	if qc.APIKeyEnv != "" {
		if key := os.Getenv(qc.APIKeyEnv); key != "" {
			opts = append(opts, qdrant.WithAPIKey(key))
		}
	}
	if qc.TimeoutS > 0 {
		opts = append(opts, qdrant.WithTimeout(time.Duration(qc.TimeoutS)*time.Second))
	}
	return qdrant.New(qc.URL, opts...)
}

// newOrchestrator wires embedder and vector store from config. m may be nil.
func newOrchestrator(c *config.Config, m *metrics.Metrics) (*usecase.Orchestrator, error) {
	emb, err := newEmbedder(c)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	vs, err := newVectorStore(c)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store client: %w", err)
	}
	// Collections are sized by the embedder, which resolves a zero dimension
	// to its model default.
	return usecase.NewOrchestrator(emb, vs, c.Qdrant.Collection, emb.Dimension(),
		usecase.WithBatchSize(c.Indexing.BatchSize),
		usecase.WithConcurrency(c.Indexing.Concurrency),
		usecase.WithMaxLimit(c.Search.MaxLimit),
		usecase.WithLogger(log),
		usecase.WithMetrics(m),
	)
}
