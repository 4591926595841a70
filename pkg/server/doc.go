// Package server provides the main HTTP server for the streaming proxy.
//
// This package ties together all proxy components (router, auth gate, relay,
// handlers, middleware) and manages server lifecycle: start, hot-reload, and
// graceful shutdown.
//
// # Architecture
//
// The server package is the top-level orchestrator that:
//   - Compiles the route table, auth gate, and relay from Config
//   - Chains middleware for cross-cutting concerns
//   - Atomically republishes routing/auth components on config reload
//   - Manages graceful shutdown
//   - Handles OS signals (SIGTERM, SIGINT) via the caller's context
//
// # Basic Usage
//
// Creating and starting a server:
//
//	import (
//	    "context"
//	    "github.com/relayforge/streamproxy/pkg/config"
//	    "github.com/relayforge/streamproxy/pkg/server"
//	    "github.com/relayforge/streamproxy/pkg/telemetry/metrics"
//	)
//
//	cfg := config.GetConfig()
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	srv, err := server.New(cfg, collector, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Hot Reload
//
// Reload rebuilds the router, auth gate, and relay from a new Config and
// atomically swaps them in; in-flight requests keep using the previously
// published components:
//
//	if err := srv.Reload(newCfg); err != nil {
//	    log.Error("reload failed", "error", err)
//	}
//
// # Graceful Shutdown
//
//	if err := srv.Shutdown(context.Background()); err != nil {
//	    log.Error("shutdown error", "error", err)
//	}
//
// The shutdown process:
//  1. Stops accepting new connections
//  2. Waits for active connections to complete (up to shutdown timeout)
//  3. Forces connection closure if timeout exceeded
//
// # Routes
//
// The server exposes the following HTTP endpoints:
//
//   - GET  /health              - Liveness probe (always returns 200)
//   - GET  /ready                - Readiness probe
//   - POST /proxy/generate_url   - Mint a token or signed-query proxy URL (open)
//   - GET  /proxy/stream         - Authenticated streaming relay
//   - HEAD /proxy/stream         - Authenticated HEAD relay (no body)
//   - GET  /proxy/ip             - Authenticated client-IP echo
//   - GET  /metrics              - Prometheus metrics (if enabled)
//
// # Middleware Chain
//
// Non-streaming routes pass through (innermost to outermost):
//  1. Timeout: Enforces a per-request bound
//  2. CORS: Adds Cross-Origin Resource Sharing headers
//  3. RequestID: Generates a unique request ID for tracing
//  4. Logging: Logs request/response details
//  5. Recovery: Recovers from panics and returns a 500 error
//
// /proxy/stream and /proxy/ip are never wrapped in TimeoutMiddleware: their
// response body is relayed for as long as the upstream keeps sending it.
// Both additionally pass through the current auth gate's middleware,
// re-resolved from the live config on every request.
//
// # Thread Safety
//
// All server operations are thread-safe and can be called concurrently from
// multiple goroutines.
package server
