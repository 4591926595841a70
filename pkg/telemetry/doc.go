// Package telemetry groups the observability subpackages of streamproxy.
// It has no code of its own; use the subpackages directly.
//
// # Components
//
//   - logging: structured logging on log/slog with optional PII redaction
//   - metrics: Prometheus metrics for relayed requests (metrics.Collector)
//   - health: liveness, readiness and version endpoints
//
// There is no tracing component.
//
// # PII Protection
//
// When RedactPII is set in logging.Config, string log values are scrubbed
// by logging.Redactor, for example:
//
//   - API keys: sk-abc123 → sk-***
//   - SSN: 123-45-6789 → ***-**-****
//   - IP addresses: 192.168.1.1 → 192.*.*.*
//
// Custom redaction patterns can be configured.
package telemetry
