package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"semsearch/internal/domain"
)

type countingSearcher struct {
	calls int
	err   error
}

func (s *countingSearcher) SearchDocuments(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []domain.SearchResult{{ID: uint64(s.calls), Score: 0.9, Text: query}}, nil
}

func TestCachedSearcher_HitAndInvalidate(t *testing.T) {
	inner := &countingSearcher{}
	s := NewCachedSearcher(inner, NewQueryCache(10, time.Minute))
	ctx := context.Background()

	first, _ := s.SearchDocuments(ctx, "red shoes", 5)
	second, _ := s.SearchDocuments(ctx, "red shoes", 5)
	if inner.calls != 1 {
		t.Errorf("expected 1 backend call, got %d", inner.calls)
	}
	if first[0].ID != second[0].ID {
		t.Error("expected cached result")
	}

	if _, err := s.SearchDocuments(ctx, "red shoes", 6); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("expected different limit to miss, got %d calls", inner.calls)
	}

	s.Invalidate()
	if _, err := s.SearchDocuments(ctx, "red shoes", 5); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 3 {
		t.Errorf("expected miss after invalidate, got %d calls", inner.calls)
	}
}

func TestCachedSearcher_ErrorsNotCached(t *testing.T) {
	inner := &countingSearcher{err: errors.New("store down")}
	s := NewCachedSearcher(inner, NewQueryCache(10, time.Minute))

	for i := 0; i < 2; i++ {
		if _, err := s.SearchDocuments(context.Background(), "q", 1); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Errorf("expected errors to bypass cache, got %d calls", inner.calls)
	}
}

func TestQueryCache_Eviction(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	gen := c.Generation()
	c.Put("a", 1, gen, nil)
	c.Put("b", 1, gen, nil)
	c.Get("a", 1)
	c.Put("c", 1, gen, nil)

	if _, ok := c.Get("b", 1); ok {
		t.Error("expected least recently used entry evicted")
	}
	if _, ok := c.Get("a", 1); !ok {
		t.Error("expected recently used entry kept")
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("a", 1, c.Generation(), nil)
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("a", 1); !ok {
		t.Error("expected fresh entry")
	}
	now = now.Add(31 * time.Second)
	if _, ok := c.Get("a", 1); ok {
		t.Error("expected expired entry")
	}
	if c.Size() != 0 {
		t.Errorf("expected expired entry removed, size %d", c.Size())
	}
}

func TestQueryCache_TrimsQuery(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("red shoes", 5, c.Generation(), []domain.SearchResult{{ID: 7}})
	got, ok := c.Get("  red shoes ", 5)
	if !ok || got[0].ID != 7 {
		t.Errorf("expected whitespace-insensitive hit, got %v %v", got, ok)
	}
}

func TestQueryCache_StaleGenerationDropped(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	gen := c.Generation()
	c.Invalidate()
	c.Put("a", 1, gen, []domain.SearchResult{{ID: 1}})
	if _, ok := c.Get("a", 1); ok {
		t.Error("results computed before invalidate must not be cached")
	}
}
