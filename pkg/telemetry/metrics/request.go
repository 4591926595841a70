package metrics

import (
	"time"

	"github.com/relayforge/streamproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks metrics for relayed proxy requests.
//
// Metrics:
//   - streamproxy_requests_total: request count by route and status
//   - streamproxy_request_duration_seconds: time from request receipt
//     until the relay finished (body streamed or request failed), by route
//   - streamproxy_response_size_bytes: size of relayed response bodies
//   - streamproxy_bytes_relayed_total: cumulative bytes streamed to clients
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	bytesRelayed    prometheus.Counter
}

// NewRequestMetrics creates and registers request metrics with registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "requests_total",
				Help:      "Total number of proxy requests handled, by route and status",
			},
			[]string{"route", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "request_duration_seconds",
				Help:      "Time from request receipt until the relay finished, by route",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"route"},
		),

		responseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "response_size_bytes",
				Help:      "Size of relayed response bodies, by route",
				Buckets:   cfg.ResponseSizeBuckets,
			},
			[]string{"route"},
		),

		bytesRelayed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "bytes_relayed_total",
				Help:      "Cumulative bytes streamed to clients across all routes",
			},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.responseSize,
		rm.bytesRelayed,
	)

	return rm
}

// RecordRequest records the outcome of a completed relay.
func (rm *RequestMetrics) RecordRequest(route, status string, duration time.Duration, responseBytes int64) {
	rm.requestsTotal.WithLabelValues(route, status).Inc()
	rm.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
	if responseBytes > 0 {
		rm.responseSize.WithLabelValues(route).Observe(float64(responseBytes))
		rm.bytesRelayed.Add(float64(responseBytes))
	}
}
