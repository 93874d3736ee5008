// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BrokerMessagesProduced counts successful publishes, by topic.
	BrokerMessagesProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadline_broker_messages_produced_total",
			Help: "Total number of messages published, by topic",
		},
		[]string{"topic"},
	)

	// BrokerMessagesConsumed counts messages handed to a consumer handler,
	// by topic and outcome ("ack", "nack").
	BrokerMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadline_broker_messages_consumed_total",
			Help: "Total number of messages consumed, by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)

	// BrokerPublishDuration times Adapter.Publish calls, by topic.
	BrokerPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threadline_broker_publish_duration_seconds",
			Help:    "Duration of broker publish calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	// ModelRequests counts Model Client calls, by operation and outcome
	// ("ok", "fallback", "error").
	ModelRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadline_model_requests_total",
			Help: "Total number of model client calls, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// ModelRequestDuration times Model Client calls, by operation.
	ModelRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threadline_model_request_duration_seconds",
			Help:    "Duration of model client calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// ModelRetries counts retry attempts issued by the Model Client.
	ModelRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadline_model_retries_total",
			Help: "Total number of model client retry attempts, by operation",
		},
		[]string{"operation"},
	)

	// ModelRateLimiterWaitDuration times how long a caller waited on the
	// token bucket before a request was allowed through.
	ModelRateLimiterWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threadline_model_rate_limiter_wait_seconds",
			Help:    "Time spent waiting on the model client rate limiter",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ModelCircuitBreakerState reports circuit breaker state as a gauge:
	// 0=closed, 1=half-open, 2=open.
	ModelCircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "threadline_model_circuit_breaker_state",
			Help: "Model client circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// ProcessorRecordsProcessed counts records successfully folded into
	// conversation state.
	ProcessorRecordsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threadline_processor_records_processed_total",
			Help: "Total number of messages folded into conversation state",
		},
	)

	// ProcessorRecordsDropped counts records dropped for an unresolvable
	// tenant or conversation key.
	ProcessorRecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadline_processor_records_dropped_total",
			Help: "Total number of records dropped by the processor, by reason",
		},
		[]string{"reason"},
	)

	// ProcessorRecordsToDLQ counts records routed to the dead-letter topic
	// after exhausting retries.
	ProcessorRecordsToDLQ = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadline_processor_records_dlq_total",
			Help: "Total number of records sent to the dead-letter topic, by source topic",
		},
		[]string{"source_topic"},
	)

	// AnalyzerResultsProduced counts analyzer results produced, by analyzer
	// kind.
	AnalyzerResultsProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadline_analyzer_results_produced_total",
			Help: "Total number of analyzer results produced, by analyzer",
		},
		[]string{"analyzer"},
	)

	// AggregatorMerges counts Aggregator merge operations, by result kind
	// merged in ("sentiment", "pii", "insights", "summary").
	AggregatorMerges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadline_aggregator_merges_total",
			Help: "Total number of aggregator merges, by result kind",
		},
		[]string{"kind"},
	)

	// BroadcasterActiveSubscribers reports the number of live subscriber
	// connections.
	BroadcasterActiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "threadline_broadcaster_active_subscribers",
			Help: "Current number of live broadcaster subscriber connections",
		},
	)

	// BroadcasterDroppedEvents counts events dropped from a subscriber's
	// bounded queue because it was full.
	BroadcasterDroppedEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threadline_broadcaster_dropped_events_total",
			Help: "Total number of events dropped from a full subscriber queue",
		},
	)

	// IngestRequestsTotal counts HTTP ingestion requests by status code.
	IngestRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadline_ingest_requests_total",
			Help: "Total number of HTTP ingestion requests, by status code",
		},
		[]string{"status_code"},
	)

	// HTTPRequestsTotal counts every HTTP request served by the ambient
	// surface, by method, route, and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadline_http_requests_total",
			Help: "Total number of HTTP requests, by method, path, and status code",
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestDuration times HTTP requests, by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threadline_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds, by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// HTTPActiveRequests reports the number of HTTP requests currently
	// being served.
	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "threadline_http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)
)

// TrackActiveRequest increments or decrements the in-flight HTTP request
// gauge. Callers invoke it with true on entry and false via defer.
func TrackActiveRequest(active bool) {
	if active {
		HTTPActiveRequests.Inc()
		return
	}
	HTTPActiveRequests.Dec()
}

// RecordAPIRequest records the outcome of one HTTP request.
func RecordAPIRequest(method, path, statusCode string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
