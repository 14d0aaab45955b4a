package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	telemetrySubmittedTotal *prometheus.CounterVec
	statsBuildSeconds       *prometheus.HistogramVec
	statsCacheTotal         *prometheus.CounterVec
	liveFeedClients         prometheus.Gauge
	liveFeedEventsTotal     *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors of the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "handout_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "handout_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "handout_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		telemetrySubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "handout_telemetry_submitted_total",
			Help: "Exercise submissions stored, by course.",
		}, []string{"course"})

		statsBuildSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "handout_student_stats_build_seconds",
			Help:    "Time spent loading and aggregating student statistics.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"course"})

		statsCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "handout_student_stats_cache_total",
			Help: "Student statistics cache lookups by result.",
		}, []string{"result"})

		liveFeedClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "handout_live_feed_clients",
			Help: "Connected live feed websocket clients.",
		})

		liveFeedEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "handout_live_feed_events_total",
			Help: "Telemetry events delivered to the live feed, by origin.",
		}, []string{"origin"})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			telemetrySubmittedTotal, statsBuildSeconds, statsCacheTotal,
			liveFeedClients, liveFeedEventsTotal,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// TelemetrySubmitted counts stored submissions.
func TelemetrySubmitted() *prometheus.CounterVec {
	RegisterMetrics()
	return telemetrySubmittedTotal
}

// StatsBuildDuration observes student statistics builds.
func StatsBuildDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return statsBuildSeconds
}

// StatsCacheLookups counts cache hits and misses.
func StatsCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return statsCacheTotal
}

// LiveFeedClients tracks connected live feed clients.
func LiveFeedClients() prometheus.Gauge {
	RegisterMetrics()
	return liveFeedClients
}

// LiveFeedEvents counts delivered live feed events.
func LiveFeedEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return liveFeedEventsTotal
}
