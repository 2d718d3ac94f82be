package domain

// Document is a caller-built record to be embedded and stored.
type Document struct {
	ID       uint64
	Text     string
	Metadata map[string]any
}

// Role tells the embedding provider how the text will be used.
type Role string

const (
	RoleDocument Role = "document"
	RoleQuery    Role = "query"
)

// SearchResult is a single hit returned by a semantic search.
type SearchResult struct {
	ID       uint64         `json:"id"`
	Score    float64        `json:"score"` // in [0,1]
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// PayloadTextKey is the payload field holding a document's text.
const PayloadTextKey = "text"

// Payload builds the stored payload for a document: its text plus metadata.
// A metadata key named "text" is shadowed by the document text.
func (d Document) Payload() map[string]any {
	payload := make(map[string]any, len(d.Metadata)+1)
	for k, v := range d.Metadata {
		payload[k] = v
	}
	payload[PayloadTextKey] = d.Text
	return payload
}
