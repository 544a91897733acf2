// Package metrics holds the Prometheus collectors for crawls and the HTTP surface
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name
const Namespace = "product_scraper"

// Metrics holds all collectors. Construct one per registry.
type Metrics struct {
	// Crawl metrics
	PagesProcessed  *prometheus.CounterVec // status: success, failure
	JobsSkipped     *prometheus.CounterVec // reason: depth, visited, limit
	ChildrenDropped *prometheus.CounterVec // reason: queue_full, closed
	ProductsFound   prometheus.Counter
	SinkErrors      prometheus.Counter
	PageDuration    prometheus.Histogram

	// Dispatcher state
	QueueLength  prometheus.Gauge
	JobsInFlight prometheus.Gauge
	ActiveRuns   prometheus.Gauge

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors on reg (the default registerer when nil)
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initCrawlMetrics(factory)
	m.initHTTPMetrics(factory)

	return m
}

func (m *Metrics) initCrawlMetrics(factory promauto.Factory) {
	m.PagesProcessed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pages_processed_total",
			Help:      "Pages rendered and classified, by outcome",
		},
		[]string{"status"},
	)

	m.JobsSkipped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "jobs_skipped_total",
			Help:      "Jobs discarded without navigation, by reason",
		},
		[]string{"reason"},
	)

	m.ChildrenDropped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "children_dropped_total",
			Help:      "Discovered child jobs that could not be queued, by reason",
		},
		[]string{"reason"},
	)

	m.ProductsFound = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "products_found_total",
			Help:      "Product URLs handed to the sink",
		},
	)

	m.SinkErrors = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sink_errors_total",
			Help:      "Failed sink appends",
		},
	)

	m.PageDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "page_duration_seconds",
			Help:      "Time to navigate, drain and classify one page",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2min
		},
	)

	m.QueueLength = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "queue_length",
			Help:      "Jobs waiting for a free render handle",
		},
	)

	m.JobsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "jobs_in_flight",
			Help:      "Jobs currently held by a worker",
		},
	)

	m.ActiveRuns = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_runs",
			Help:      "Crawl runs currently executing",
		},
	)
}

func (m *Metrics) initHTTPMetrics(factory promauto.Factory) {
	m.HTTPRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
}
