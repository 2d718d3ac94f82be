// Package qdrant implements port.VectorStore on top of Qdrant's REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"semsearch/internal/port"
)

// Client is a Qdrant REST client. It is safe for concurrent use.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the api-key header sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client = &http.Client{Timeout: d}
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// New creates a Qdrant client for endpoint, e.g. http://localhost:6333.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("qdrant endpoint is required")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid qdrant endpoint: %w", err)
	}
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, fn := range opts {
		fn(c)
	}
	return c, nil
}

// StatusError is a non-2xx response from Qdrant.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("qdrant %s failed: %d %s", e.Op, e.StatusCode, e.Body)
}

type collectionsResponse struct {
	Result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	} `json:"result"`
}

type pointJSON struct {
	ID      uint64         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

type searchResponse struct {
	Result []struct {
		ID      json.RawMessage `json:"id"`
		Score   float64         `json:"score"`
		Payload map[string]any  `json:"payload"`
	} `json:"result"`
}

func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var resp collectionsResponse
	if err := c.do(ctx, "list collections", http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, col := range resp.Result.Collections {
		names = append(names, col.Name)
	}
	return names, nil
}

func (c *Client) CreateCollection(ctx context.Context, name string, size int, distance port.Distance) error {
	if size <= 0 {
		return fmt.Errorf("vector size must be positive, got %d", size)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     size,
			"distance": string(distance),
		},
	}
	return c.do(ctx, "create collection", http.MethodPut, "/collections/"+url.PathEscape(name), body, nil)
}

func (c *Client) Upsert(ctx context.Context, collection string, points []port.Point, wait bool) error {
	if len(points) == 0 {
		return nil
	}
	dim := len(points[0].Vector)
	out := make([]pointJSON, len(points))
	for i, p := range points {
		if len(p.Vector) == 0 || len(p.Vector) != dim {
			return fmt.Errorf("point %d: vector dimension mismatch: expected %d, got %d", p.ID, dim, len(p.Vector))
		}
		out[i] = pointJSON{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}

	path := fmt.Sprintf("/collections/%s/points?wait=%s", url.PathEscape(collection), strconv.FormatBool(wait))
	return c.do(ctx, "upsert", http.MethodPut, path, map[string]any{"points": out}, nil)
}

func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int, withPayload bool) ([]port.ScoredPoint, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": withPayload,
	}

	var resp searchResponse
	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(collection))
	if err := c.do(ctx, "search", http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	results := make([]port.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		id, err := parseID(r.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, port.ScoredPoint{ID: id, Score: r.Score, Payload: r.Payload})
	}
	return results, nil
}

func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/healthz", nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &StatusError{Op: "health", StatusCode: resp.StatusCode, Body: resp.Status}
	}
	return nil
}

// parseID accepts the integer ids this service writes. UUID ids written by
// other tools are rejected rather than silently mapped.
func parseID(raw json.RawMessage) (uint64, error) {
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unsupported point id %s", string(raw))
	}
	return id, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant %s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("qdrant %s: decode response: %w", op, err)
	}
	return nil
}
