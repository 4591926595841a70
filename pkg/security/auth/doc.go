// Package auth implements the authentication gate (C4): a stateless
// HTTP middleware that validates an inbound request under one of two
// interchangeable modes — an encrypted opaque token or a signed query
// string — and attaches the resulting *envelope.ProxyData to the
// request context for the stream relay to consume.
//
// An empty configured api_password disables authentication entirely:
// every request is allowed through with a best-effort ProxyData attached
// (a decrypted token if one is present, else the signed-query fields,
// else an empty ProxyData).
package auth
