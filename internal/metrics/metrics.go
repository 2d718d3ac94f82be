// Package metrics holds the Prometheus collectors for indexing, search and
// the HTTP surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors. Components accept a nil *Metrics.
type Metrics struct {
	DocumentsIndexed  prometheus.Counter
	Batches           *prometheus.CounterVec
	EmbeddingDuration *prometheus.HistogramVec
	SearchDuration    prometheus.Histogram
	HTTPRequests      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "semsearch_documents_indexed_total",
			Help: "Total number of documents upserted into the vector store",
		}),
		Batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semsearch_batches_total",
				Help: "Indexing batches by outcome",
			},
			[]string{"outcome"},
		),
		EmbeddingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "semsearch_embedding_duration_seconds",
				Help:    "Duration of embedding provider calls by role and outcome",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
			[]string{"role", "outcome"},
		),
		SearchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "semsearch_search_duration_seconds",
				Help:    "End-to-end duration of semantic searches",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semsearch_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.DocumentsIndexed, m.Batches, m.EmbeddingDuration, m.SearchDuration, m.HTTPRequests)
	}
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveEmbedding records one embedding call.
func (m *Metrics) ObserveEmbedding(role string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.EmbeddingDuration.WithLabelValues(role, outcome(err)).Observe(time.Since(start).Seconds())
}

// ObserveBatch records one indexing batch of n documents.
func (m *Metrics) ObserveBatch(n int, err error) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.DocumentsIndexed.Add(float64(n))
	}
}

// ObserveSearch records one search.
func (m *Metrics) ObserveSearch(start time.Time) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(time.Since(start).Seconds())
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}
