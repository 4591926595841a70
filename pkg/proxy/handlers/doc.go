// Package handlers provides the HTTP endpoint handlers mounted by the
// server: the streaming relay entry point, the URL generator, and the
// ipify passthrough. Liveness and readiness probes are served directly by
// pkg/telemetry/health.
//
// # Handler types
//
//   - StreamHandler: GET/HEAD /proxy/stream, the relay's primary entry point
//   - GenerateURLHandler: POST /proxy/generate_url, the URL generator (C6)
//   - IPHandler: GET /proxy/ip, a fixed-destination relay passthrough
//
// # Error handling
//
// Handlers render failures via types.WriteError, producing the flat
// {"error": "<message>"} envelope at the status implied by the error's
// kind.
package handlers
