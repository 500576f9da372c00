package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watch_messages_received_total",
		Help: "The total number of messages delivered by the webhook",
	})

	PipelineProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watch_pipeline_processed_total",
		Help: "The total number of messages processed by the pipeline",
	}, []string{"status"})

	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "watch_extraction_duration_seconds",
		Help:    "Duration of watch extraction per method",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	ExtractionConfidence = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "watch_extraction_confidence",
		Help:    "Confidence score distribution per extraction method",
		Buckets: []float64{0, 0.1, 0.2, 0.3, 0.5, 0.7, 0.8, 0.9, 1},
	}, []string{"method"})

	ExtractionCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watch_extraction_cache_total",
		Help: "Extraction cache lookups by result",
	}, []string{"result"})

	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watch_embedding_requests_total",
		Help: "Embedding requests by status",
	}, []string{"status"})

	ConversationsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watch_conversations_stored_total",
		Help: "The total number of conversation entries stored",
	})

	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watch_duplicates_skipped_total",
		Help: "Messages skipped because their content hash already exists",
	})

	WebhookErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watch_webhook_errors_total",
		Help: "Webhook requests rejected by reason",
	}, []string{"reason"})

	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watch_search_requests_total",
		Help: "Search requests by mode",
	}, []string{"mode"})
)
