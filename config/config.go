package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the search service.
type Config struct {
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Qdrant     QdrantConfig     `yaml:"qdrant"`
	Indexing   IndexingConfig   `yaml:"indexing"`
	Search     SearchConfig     `yaml:"search"`
	Server     ServerConfig     `yaml:"server"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "gemini", "openai", "ollama", "mock"
	Model     string `yaml:"model"`       // e.g., "embedding-001"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"` // 0 selects the provider default
	TimeoutS  int    `yaml:"timeout_seconds"`
}

// QdrantConfig holds vector store configuration.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Collection string `yaml:"collection"`
	TimeoutS   int    `yaml:"timeout_seconds"`
}

// IndexingConfig holds batching configuration.
type IndexingConfig struct {
	BatchSize   int `yaml:"batch_size"`
	Concurrency int `yaml:"concurrency"` // max in-flight embedding calls per batch
}

// SearchConfig holds query configuration.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	CacheSize    int `yaml:"cache_size"`
	CacheTTLS    int `yaml:"cache_ttl_seconds"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	MaxUploadMB   int    `yaml:"max_upload_mb"`
	ShutdownWaitS int    `yaml:"shutdown_wait_seconds"`
}

// CheckpointConfig holds the import journal configuration.
type CheckpointConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  "gemini",
			Model:     "embedding-001",
			APIKeyEnv: "GEMINI_API_KEY",
			TimeoutS:  60,
		},
		Qdrant: QdrantConfig{
			URL:        "http://localhost:6333",
			APIKeyEnv:  "QDRANT_API_KEY",
			Collection: "ecommerce_data",
			TimeoutS:   30,
		},
		Indexing: IndexingConfig{
			BatchSize:   50,
			Concurrency: 8,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
			CacheSize:    100,
			CacheTTLS:    300,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			MaxUploadMB:   32,
			ShutdownWaitS: 10,
		},
		Checkpoint: CheckpointConfig{
			Path: filepath.Join(".semsearch", "checkpoints.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for semsearch.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "semsearch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".semsearch", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets the deployment environment point at a different Qdrant instance
// without touching the config file.
func (c *Config) applyEnv() {
	if url := os.Getenv("QDRANT_URL"); url != "" {
		c.Qdrant.URL = url
	}
}

// Validate reports configuration that the orchestrator cannot work with.
func (c *Config) Validate() error {
	if c.Embedding.Dimension < 0 {
		return fmt.Errorf("embedding.dimension must not be negative, got %d", c.Embedding.Dimension)
	}
	if c.Qdrant.URL == "" {
		return fmt.Errorf("qdrant.url is required")
	}
	if c.Qdrant.Collection == "" {
		return fmt.Errorf("qdrant.collection is required")
	}
	if c.Indexing.BatchSize <= 0 {
		return fmt.Errorf("indexing.batch_size must be positive, got %d", c.Indexing.BatchSize)
	}
	if c.Search.MaxLimit <= 0 {
		return fmt.Errorf("search.max_limit must be positive, got %d", c.Search.MaxLimit)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CheckpointPath resolves the journal path relative to dir.
func (c *Config) CheckpointPath(dir string) string {
	if filepath.IsAbs(c.Checkpoint.Path) {
		return c.Checkpoint.Path
	}
	return filepath.Join(dir, c.Checkpoint.Path)
}

// EnsureDir ensures the parent directory of path exists.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
