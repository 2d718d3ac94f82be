package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"semsearch/internal/domain"
)

func TestOpenAIEmbedder_Embed(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if len(req.Input) != 1 || req.Input[0] != "wireless headphones" {
			t.Errorf("unexpected input %v", req.Input)
		}
		w.Write([]byte(`{"data":[{"embedding":[1,0],"index":0}]}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder("TEST_OPENAI_KEY", "text-embedding-3-small", 2, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	vec, err := e.Embed(context.Background(), "wireless headphones", domain.RoleDocument)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 || vec[0] != 1 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func TestOpenAIEmbedder_StatusError(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	e, _ := NewOpenAIEmbedder("TEST_OPENAI_KEY", "text-embedding-3-small", 0, WithBaseURL(srv.URL))
	if e.Dimension() != 1536 {
		t.Errorf("expected default dimension 1536, got %d", e.Dimension())
	}
	_, err := e.Embed(context.Background(), "x", domain.RoleQuery)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if apiErr.Temporary() {
		t.Error("401 should not be temporary")
	}
}

func TestOllamaEmbedder_Dimensions(t *testing.T) {
	e, err := NewOllamaEmbedder("mxbai-embed-large", 0)
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimension() != 1024 {
		t.Errorf("expected 1024, got %d", e.Dimension())
	}
}
