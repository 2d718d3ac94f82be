// Package catalog turns product CSV files into documents.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"semsearch/internal/domain"
)

// Parse reads a CSV whose first row names the fields. Every non-blank row
// becomes one document: its metadata is the row keyed by field name and its
// text is the non-empty values joined by spaces, in column order. Document
// ids are assigned consecutively starting at firstID.
func Parse(r io.Reader, firstID uint64) ([]domain.Document, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	fields := normalizeHeader(header)

	var docs []domain.Document
	id := firstID
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(docs)+2, err)
		}

		doc, ok := toDocument(fields, record)
		if !ok {
			continue
		}
		doc.ID = id
		id++
		docs = append(docs, doc)
	}
	return docs, nil
}

func toDocument(fields, record []string) (domain.Document, bool) {
	meta := make(map[string]any, len(fields))
	parts := make([]string, 0, len(fields))
	for i, field := range fields {
		value := ""
		if i < len(record) {
			value = strings.TrimSpace(record[i])
		}
		meta[field] = value
		if value != "" {
			parts = append(parts, value)
		}
	}
	if len(parts) == 0 {
		return domain.Document{}, false
	}
	return domain.Document{Text: strings.Join(parts, " "), Metadata: meta}, true
}

func normalizeHeader(header []string) []string {
	fields := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		fields[i] = h
	}
	return fields
}
