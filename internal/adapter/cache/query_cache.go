package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"semsearch/internal/domain"
)

// QueryCache is a bounded LRU of search results with a TTL. Invalidate
// drops everything and bumps a generation so results computed before an
// index change are never served after it.
type QueryCache struct {
	mu      sync.Mutex
	entries map[queryKey]*list.Element
	lru     *list.List // front is most recently used
	maxSize int
	ttl     time.Duration
	gen     uint64
	now     func() time.Time
}

type queryKey struct {
	query string
	limit int
}

type cacheEntry struct {
	key     queryKey
	results []domain.SearchResult
	stored  time.Time
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[queryKey]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Queries differing only in surrounding whitespace share an entry.
func keyFor(query string, limit int) queryKey {
	return queryKey{query: strings.TrimSpace(query), limit: limit}
}

// Get returns cached results for query and limit if present and fresh.
func (c *QueryCache) Get(query string, limit int) ([]domain.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[keyFor(query, limit)]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if c.now().Sub(entry.stored) > c.ttl {
		c.remove(el)
		return nil, false
	}
	c.lru.MoveToFront(el)
	return entry.results, true
}

// Put stores results computed at generation gen. Results computed before
// the latest Invalidate are dropped.
func (c *QueryCache) Put(query string, limit int, gen uint64, results []domain.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}

	key := keyFor(query, limit)
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.results, entry.stored = results, c.now()
		c.lru.MoveToFront(el)
		return
	}

	for c.lru.Len() >= c.maxSize {
		c.remove(c.lru.Back())
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, results: results, stored: c.now()})
}

// Generation returns the current index generation.
func (c *QueryCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Invalidate drops every entry and starts a new generation.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	c.lru.Init()
	c.gen++
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *QueryCache) remove(el *list.Element) {
	c.lru.Remove(el)
	delete(c.entries, el.Value.(*cacheEntry).key)
}

// Searcher is the search side of the orchestrator.
type Searcher interface {
	SearchDocuments(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// CachedSearcher serves repeated queries from a QueryCache. Errors are
// never cached.
type CachedSearcher struct {
	searcher Searcher
	cache    *QueryCache
}

func NewCachedSearcher(searcher Searcher, cache *QueryCache) *CachedSearcher {
	return &CachedSearcher{
		searcher: searcher,
		cache:    cache,
	}
}

func (s *CachedSearcher) SearchDocuments(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if results, hit := s.cache.Get(query, limit); hit {
		return results, nil
	}

	gen := s.cache.Generation()
	results, err := s.searcher.SearchDocuments(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	s.cache.Put(query, limit, gen, results)

	return results, nil
}

// Invalidate drops all cached results.
func (s *CachedSearcher) Invalidate() {
	s.cache.Invalidate()
}
