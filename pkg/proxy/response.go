package proxy

import (
	"net/http"

	"github.com/relayforge/streamproxy/pkg/envelope"
)

// responseHeaderWhitelist is the set of upstream response headers copied
// downstream before ProxyData.ResponseHeaders is overlaid.
var responseHeaderWhitelist = []string{
	"Accept-Ranges",
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Connection",
	"Transfer-Encoding",
	"Last-Modified",
	"Etag",
	"Cache-Control",
	"Expires",
}

// composeDownstreamHeaders builds the header set written to the client: a
// whitelisted subset of the upstream response's own headers, overridden by
// any entry in data.ResponseHeaders.
func composeDownstreamHeaders(upstreamHeaders http.Header, data *envelope.ProxyData) http.Header {
	downstream := make(http.Header)

	for _, name := range responseHeaderWhitelist {
		if v := upstreamHeaders.Get(name); v != "" {
			downstream.Set(name, v)
		}
	}

	for name, value := range data.ResponseHeaders {
		downstream.Set(name, value)
	}

	return downstream
}
