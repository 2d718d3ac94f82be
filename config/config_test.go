package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Embedding.Dimension != 0 {
		t.Errorf("expected Dimension=0 (provider default), got %d", cfg.Embedding.Dimension)
	}
	if cfg.Qdrant.Collection != "ecommerce_data" {
		t.Errorf("expected Collection=ecommerce_data, got %s", cfg.Qdrant.Collection)
	}
	if cfg.Indexing.BatchSize != 50 {
		t.Errorf("expected BatchSize=50, got %d", cfg.Indexing.BatchSize)
	}
	if cfg.Search.DefaultLimit != 10 {
		t.Errorf("expected DefaultLimit=10, got %d", cfg.Search.DefaultLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	t.Setenv("QDRANT_URL", "")
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Qdrant.URL != "http://localhost:6333" {
		t.Errorf("expected default qdrant url, got %s", cfg.Qdrant.URL)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	t.Setenv("QDRANT_URL", "")
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "semsearch.yaml")

	content := `
embedding:
  provider: mock
  dimension: 16
indexing:
  batch_size: 20
search:
  max_limit: 25
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Embedding.Provider != "mock" {
		t.Errorf("expected Provider=mock, got %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimension != 16 {
		t.Errorf("expected Dimension=16, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Indexing.BatchSize != 20 {
		t.Errorf("expected BatchSize=20, got %d", cfg.Indexing.BatchSize)
	}
	if cfg.Search.MaxLimit != 25 {
		t.Errorf("expected MaxLimit=25, got %d", cfg.Search.MaxLimit)
	}
	// untouched sections keep defaults
	if cfg.Qdrant.Collection != "ecommerce_data" {
		t.Errorf("expected default collection, got %s", cfg.Qdrant.Collection)
	}
}

func TestLoad_EnvOverridesURL(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant.internal:6333")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Qdrant.URL != "http://qdrant.internal:6333" {
		t.Errorf("expected env url, got %s", cfg.Qdrant.URL)
	}
}

func TestLoadFromDir(t *testing.T) {
	t.Setenv("QDRANT_URL", "")
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".semsearch"), 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".semsearch", "config.yaml")

	content := `
qdrant:
  collection: products
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Qdrant.Collection != "products" {
		t.Errorf("expected Collection=products, got %s", cfg.Qdrant.Collection)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative dimension", func(c *Config) { c.Embedding.Dimension = -1 }},
		{"empty url", func(c *Config) { c.Qdrant.URL = "" }},
		{"empty collection", func(c *Config) { c.Qdrant.Collection = "" }},
		{"negative batch", func(c *Config) { c.Indexing.BatchSize = -1 }},
		{"zero max limit", func(c *Config) { c.Search.MaxLimit = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCheckpointPath(t *testing.T) {
	cfg := DefaultConfig()
	path := cfg.CheckpointPath("/home/user/project")
	expected := filepath.Join("/home/user/project", ".semsearch", "checkpoints.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}

	cfg.Checkpoint.Path = "/var/lib/semsearch/cp.db"
	if got := cfg.CheckpointPath("/ignored"); got != "/var/lib/semsearch/cp.db" {
		t.Errorf("expected absolute path kept, got %s", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("QDRANT_URL", "")
	path := filepath.Join(t.TempDir(), "semsearch.yaml")
	cfg := DefaultConfig()
	cfg.Qdrant.Collection = "catalog"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Qdrant.Collection != "catalog" {
		t.Errorf("expected catalog, got %s", loaded.Qdrant.Collection)
	}
}
