package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"semsearch/internal/domain"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiEmbedder calls the Gemini embedContent endpoint, one text per request.
type GeminiEmbedder struct {
	apiKey    string
	model     string
	baseURL   string
	dimension int
	client    *http.Client
}

type geminiRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"taskType,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Embedding *struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func NewGeminiEmbedder(apiKeyEnv, model string, dimension int, opts ...Option) (*GeminiEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	if model == "" {
		model = "embedding-001"
	}
	if dimension <= 0 {
		dimension = 768
	}

	o := applyOptions(geminiBaseURL, 60*time.Second, opts)
	return &GeminiEmbedder{
		apiKey:    apiKey,
		model:     strings.TrimPrefix(model, "models/"),
		baseURL:   strings.TrimRight(o.baseURL, "/"),
		dimension: dimension,
		client:    o.client,
	}, nil
}

// taskType maps a role onto Gemini's retrieval task types.
func taskType(role domain.Role) string {
	switch role {
	case domain.RoleQuery:
		return "RETRIEVAL_QUERY"
	case domain.RoleDocument:
		return "RETRIEVAL_DOCUMENT"
	default:
		return ""
	}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string, role domain.Role) ([]float32, error) {
	reqBody := geminiRequest{
		Model:    "models/" + e.model,
		Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
		TaskType: taskType(role),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:embedContent", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var embResp geminiResponse
	if resp.StatusCode != http.StatusOK {
		msg := preview(body)
		if json.Unmarshal(body, &embResp) == nil && embResp.Error != nil {
			msg = embResp.Error.Message
		}
		return nil, &APIError{Provider: "gemini", StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", preview(body), err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}
	if embResp.Embedding == nil || len(embResp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("response carried no embedding values")
	}

	return embResp.Embedding.Values, nil
}

func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

func (e *GeminiEmbedder) ModelName() string {
	return e.model
}
