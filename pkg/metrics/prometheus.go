// Package metrics provides Prometheus metrics for the feedrelay service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the relay pipeline.
type Manager struct {
	namespace string
	registry  prometheus.Registerer

	// Ingest metrics
	eventsAccepted  prometheus.Counter
	eventsDuplicate prometheus.Counter
	eventsTombstone prometheus.Counter
	ingestErrors    prometheus.Counter
	ingestLatency   prometheus.Histogram

	// Store metrics
	storeErrors prometheus.Counter

	// Queue metrics
	queueEnqueued  prometheus.Counter
	queueDelivered prometheus.Counter
	queueAcked     prometheus.Counter
	queueMalformed prometheus.Counter

	// Fan-out metrics
	broadcastsSent    prometheus.Counter
	broadcastFailures prometheus.Counter
	sessionsConnected prometheus.Gauge
	backlogServed     prometheus.Counter
	backlogLatency    prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager on a private registry, so the default Go
// collectors never mix into scrape output.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "feedrelay",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.eventsAccepted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "events_accepted_total",
		Help:      "Events persisted and handed to the relay queue for the first time.",
	})
	m.eventsDuplicate = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "events_duplicate_total",
		Help:      "Events skipped because their id was already seen or persisted.",
	})
	m.eventsTombstone = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "events_tombstone_total",
		Help:      "Deletion notices acknowledged without persisting or relaying.",
	})
	m.ingestErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "errors_total",
		Help:      "Per-event ingest failures surfaced to the caller.",
	})
	m.ingestLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "latency_ms",
		Help:      "Per-event ingest latency in milliseconds.",
		Buckets:   prometheus.DefBuckets,
	})

	m.storeErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Event store command failures.",
	})

	m.queueEnqueued = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "enqueued_total",
		Help:      "Relay messages placed on the queue.",
	})
	m.queueDelivered = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "delivered_total",
		Help:      "Relay messages handed to the worker, including redeliveries.",
	})
	m.queueAcked = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "acked_total",
		Help:      "Relay messages acknowledged after a broadcast attempt.",
	})
	m.queueMalformed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "malformed_total",
		Help:      "Undecodable messages acknowledged and dropped.",
	})

	m.broadcastsSent = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "sessions",
		Name:      "broadcasts_total",
		Help:      "Per-session deliveries attempted during broadcasts.",
	})
	m.broadcastFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "sessions",
		Name:      "broadcast_failures_total",
		Help:      "Per-session deliveries that failed and were isolated.",
	})
	m.sessionsConnected = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "sessions",
		Name:      "connected",
		Help:      "Currently registered subscriber sessions.",
	})
	m.backlogServed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "sessions",
		Name:      "backlog_served_total",
		Help:      "Backlog snapshots pushed to newly connected sessions.",
	})
	m.backlogLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "sessions",
		Name:      "backlog_fetch_latency_ms",
		Help:      "Backlog fetch latency in milliseconds.",
		Buckets:   prometheus.DefBuckets,
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status"})
}

// GetRegistry returns the private registry serving /metrics scrapes.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level recording helpers against the global manager.

func RecordEventAccepted()  { globalManager.eventsAccepted.Inc() }
func RecordEventDuplicate() { globalManager.eventsDuplicate.Inc() }
func RecordEventTombstone() { globalManager.eventsTombstone.Inc() }
func RecordIngestError()    { globalManager.ingestErrors.Inc() }
func RecordIngestLatency(ms float64) {
	globalManager.ingestLatency.Observe(ms)
}

func RecordStoreError() { globalManager.storeErrors.Inc() }

func RecordQueueEnqueued()  { globalManager.queueEnqueued.Inc() }
func RecordQueueDelivered() { globalManager.queueDelivered.Inc() }
func RecordQueueAcked()     { globalManager.queueAcked.Inc() }
func RecordQueueMalformed() { globalManager.queueMalformed.Inc() }

func RecordBroadcastSent()    { globalManager.broadcastsSent.Inc() }
func RecordBroadcastFailure() { globalManager.broadcastFailures.Inc() }
func RecordBacklogServed()    { globalManager.backlogServed.Inc() }
func RecordBacklogFetchLatency(ms float64) {
	globalManager.backlogLatency.Observe(ms)
}

// UpdateConnectedSessions sets the connected-session gauge.
func UpdateConnectedSessions(n int) {
	globalManager.sessionsConnected.Set(float64(n))
}

// RecordHTTPRequest counts a finished HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration observes a finished HTTP request's duration.
func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}
