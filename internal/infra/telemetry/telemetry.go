package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the gateway's Prometheus collectors.
type Metrics struct {
	requests       *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
	rateLimited    *prometheus.CounterVec
	wsConnections  prometheus.Gauge
	eventsDropped  *prometheus.CounterVec
}

// NewMetrics registers the gateway collectors on the default registry.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"scope"}),
		wsConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open websocket subscription connections",
		}),
		eventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because a subscriber queue was full",
		}, []string{"channel"}),
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, status).Inc()
	m.requestSeconds.WithLabelValues(method, route).Observe(seconds)
}

// ObserveRateLimited records one rejected request for the given limiter scope.
func (m *Metrics) ObserveRateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(scope).Inc()
}

// WSConnectionOpened increments the live connection gauge.
func (m *Metrics) WSConnectionOpened() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

// WSConnectionClosed decrements the live connection gauge.
func (m *Metrics) WSConnectionClosed() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}

// ObserveEventDropped records a drop on a full subscriber queue.
func (m *Metrics) ObserveEventDropped(channel string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(channel).Inc()
}
