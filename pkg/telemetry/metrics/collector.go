package metrics

import (
	"time"

	"github.com/relayforge/streamproxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the orchestrator for all Prometheus metrics exposed by the
// proxy. It manages metric registration and provides a unified recording
// interface for the relay, the auth gate, and the upstream client layer.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics *RequestMetrics

	upstreamErrors *prometheus.CounterVec
	activeStreams  prometheus.Gauge
}

// NewCollector creates a metrics collector backed by registry. If registry
// is nil, a fresh prometheus.Registry is used.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "streamproxy"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	}
	if len(cfg.ResponseSizeBuckets) == 0 {
		cfg.ResponseSizeBuckets = prometheus.ExponentialBuckets(1024, 4, 10) // 1KB .. ~256MB
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_errors_total",
				Help:      "Total number of failed upstream fetches, by error kind",
			},
			[]string{"kind"},
		),

		activeStreams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "active_streams",
				Help:      "Number of relay requests currently streaming a response body",
			},
		),
	}

	c.requestMetrics = NewRequestMetrics(cfg, registry)
	registry.MustRegister(c.upstreamErrors, c.activeStreams)

	return c
}

// RecordRequest records the outcome of a completed relay request.
func (c *Collector) RecordRequest(route, status string, duration time.Duration, responseBytes int64) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordRequest(route, status, duration, responseBytes)
}

// RecordUpstreamError records a failed upstream fetch, tagged by the
// types.ErrorKind name that classified it (e.g. "proxy", "upstream").
func (c *Collector) RecordUpstreamError(kind string) {
	if !c.config.Enabled {
		return
	}
	c.upstreamErrors.WithLabelValues(kind).Inc()
}

// StreamStarted increments the in-flight stream gauge. Call StreamEnded
// when the relay finishes writing the response body.
func (c *Collector) StreamStarted() {
	if !c.config.Enabled {
		return
	}
	c.activeStreams.Inc()
}

// StreamEnded decrements the in-flight stream gauge.
func (c *Collector) StreamEnded() {
	if !c.config.Enabled {
		return
	}
	c.activeStreams.Dec()
}

// Registry returns the Prometheus registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
