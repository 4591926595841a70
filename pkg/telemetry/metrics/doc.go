// Package metrics provides Prometheus metrics collection for the proxy.
//
// # Overview
//
// The metrics package tracks relay request counts, durations, and relayed
// body sizes, plus upstream error rates and the number of streams
// currently in flight.
//
// # Usage
//
//	collector := metrics.NewCollector(cfg, nil)
//
//	collector.StreamStarted()
//	defer collector.StreamEnded()
//
//	start := time.Now()
//	// ... relay the request ...
//	collector.RecordRequest(route, "success", time.Since(start), bytesSent)
//
// # Prometheus Endpoint
//
// All metrics are exposed in standard Prometheus format via Collector.Handler,
// typically mounted at /metrics:
//
//	# HELP streamproxy_requests_total Total number of proxy requests handled, by route and status
//	# TYPE streamproxy_requests_total counter
//	streamproxy_requests_total{route="/proxy/stream",status="success"} 1234
package metrics
