package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	// Store Metrics
	MessagesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_stored_total",
			Help: "Total number of messages appended to the store",
		},
		[]string{"direction"},
	)

	StoreClears = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_store_clears_total",
			Help: "Total number of times the message store was cleared",
		},
	)

	// Reply Orchestrator Metrics
	ReplyGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_reply_generations_total",
			Help: "Reply generation attempts by outcome",
		},
		[]string{"outcome"}, // success, error, timeout, empty, rejected
	)

	ReplyGenerationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_reply_generation_latency_seconds",
			Help:    "Time spent waiting on the language model",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
	)

	FallbackReplies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_fallback_replies_total",
			Help: "Total number of replies served from the static fallback",
		},
	)

	RepliesTruncated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_replies_truncated_total",
			Help: "Total number of generated replies cut to the maximum length",
		},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Carrier Metrics
	CarrierSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_carrier_sends_total",
			Help: "Carrier send attempts by result",
		},
		[]string{"result"}, // success or the carrier error kind
	)

	CarrierSendLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_carrier_send_latency_seconds",
			Help:    "Carrier send latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	InboundEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_inbound_events_total",
			Help: "Inbound carrier events by reply delivery",
		},
		[]string{"delivery"}, // twiml, api, none
	)

	// Live Feed Metrics
	FeedConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_feed_connections_active",
			Help: "Current number of live feed websocket connections",
		},
	)

	FeedEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_feed_events_dropped_total",
			Help: "Feed events dropped because a client buffer was full",
		},
	)

	// Archive Metrics
	ArchiveBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_archive_batch_size",
			Help:    "Number of messages in each Kafka archive batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100},
		},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type", "code"},
	)

	// System Metrics
	SystemInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_info",
			Help: "System information",
		},
		[]string{"version", "go_version", "start_time"},
	)
)

func IncrementMessagesStored(direction string) {
	MessagesStored.WithLabelValues(direction).Inc()
}

func IncrementStoreClears() {
	StoreClears.Inc()
}

func RecordReplyGeneration(outcome string, seconds float64) {
	ReplyGenerations.WithLabelValues(outcome).Inc()
	ReplyGenerationLatency.Observe(seconds)
}

func IncrementFallbackReplies() {
	FallbackReplies.Inc()
}

func IncrementRepliesTruncated() {
	RepliesTruncated.Inc()
}

func SetBreakerState(name string, state int) {
	BreakerState.WithLabelValues(name).Set(float64(state))
}

func RecordCarrierSend(result string, seconds float64) {
	CarrierSends.WithLabelValues(result).Inc()
	CarrierSendLatency.Observe(seconds)
}

func IncrementInboundEvents(delivery string) {
	InboundEvents.WithLabelValues(delivery).Inc()
}

func IncrementFeedConnections() {
	FeedConnectionsActive.Inc()
}

func DecrementFeedConnections() {
	FeedConnectionsActive.Dec()
}

func IncrementFeedEventsDropped() {
	FeedEventsDropped.Inc()
}

func RecordArchiveBatchSize(size int) {
	ArchiveBatchSize.Observe(float64(size))
}

func RecordError(errorType, errorCode string) {
	ErrorsTotal.WithLabelValues(errorType, errorCode).Inc()
}
