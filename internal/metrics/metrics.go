package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legal_assistant",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legal_assistant",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	AsksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legal_assistant",
			Subsystem: "session",
			Name:      "asks_total",
			Help:      "Ask calls by session transition and outcome",
		},
		[]string{"transition", "outcome"},
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "legal_assistant",
			Subsystem: "llm",
			Name:      "completion_duration_seconds",
			Help:      "LLM completion latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"outcome"},
	)

	RetrievedChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "legal_assistant",
			Subsystem: "retrieval",
			Name:      "chunks",
			Help:      "Chunks returned per retrieval above the similarity floor",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		},
	)

	DocumentOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "legal_assistant",
			Subsystem: "documents",
			Name:      "operations_total",
			Help:      "Document ingest, delete and reconcile operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	IngestedChunks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "legal_assistant",
			Subsystem: "documents",
			Name:      "ingested_chunks_total",
			Help:      "Chunks written to the chunk store by ingestion",
		},
	)
)

// Outcome labels an error as "ok" or "error".
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
