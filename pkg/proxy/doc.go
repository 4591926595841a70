// Package proxy implements the streaming relay (C5): building the upstream
// request from a ProxyData record, issuing it through an upstream client,
// and relaying the response body back to the client.
//
// # Architecture
//
//   - Server: HTTP server lifecycle (pkg/server)
//   - Handlers: request processing (pkg/proxy/handlers)
//   - Middleware: cross-cutting concerns (logging, CORS, request ID, recovery, timeouts)
//   - Types: the error taxonomy (pkg/proxy/types)
//
// # Request flow
//
//  1. The auth gate (pkg/security/auth) validates the request and attaches
//     a *envelope.ProxyData to the request context.
//  2. The stream handler composes upstream request headers from a
//     whitelist plus ProxyData.RequestHeaders overrides.
//  3. The router (pkg/router) and client factory (pkg/upstream) select an
//     HTTP client for the destination.
//  4. The upstream GET is issued and its response relayed: whitelisted
//     headers are composed, then the body is streamed without buffering.
//
// # Error handling
//
// Errors are rendered as the flat envelope {"error": "<message>"}, never
// the nested OpenAI shape used by chat-completion proxies:
//
//	{"error": "Upstream returned error status: 404 Not Found"}
package proxy
