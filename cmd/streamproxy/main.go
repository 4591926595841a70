// streamproxy is an authenticated streaming HTTP reverse proxy.
//
// It accepts signed requests naming a destination URL, validates them
// against a shared secret, and relays the upstream response back to the
// client as it arrives, without buffering the body in memory.
//
// Usage:
//
//	# Start server with default configuration
//	streamproxy run
//
//	# Start with custom configuration file
//	streamproxy run --config /path/to/config.yaml
//
//	# Validate config without starting the server
//	streamproxy run --dry-run
//
//	# Show version information
//	streamproxy version
//
//	# Build a proxy URL locally, without a running server
//	streamproxy generate-url --destination https://example.com/a.mp4
//
//	# Run a synthetic load test against a running instance
//	streamproxy benchmark --target http://localhost:8080
//
// For complete documentation, see: https://github.com/relayforge/streamproxy
package main

func main() {
	Execute()
}
