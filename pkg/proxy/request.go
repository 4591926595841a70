package proxy

import (
	"net/http"

	"golang.org/x/net/http/httpguts"

	"github.com/relayforge/streamproxy/pkg/envelope"
	"github.com/relayforge/streamproxy/pkg/proxy/types"
)

// requestHeaderWhitelist is the set of incoming client headers copied
// verbatim onto the upstream request before ProxyData.RequestHeaders is
// overlaid.
var requestHeaderWhitelist = []string{"Range", "If-Range"}

// composeUpstreamHeaders builds the header set sent to the destination: a
// whitelisted subset of the client's own headers, overridden by any entry
// in data.RequestHeaders (last write wins on name collision).
func composeUpstreamHeaders(clientHeaders http.Header, data *envelope.ProxyData) (http.Header, error) {
	upstream := make(http.Header)

	for _, name := range requestHeaderWhitelist {
		if v := clientHeaders.Get(name); v != "" {
			upstream.Set(name, v)
		}
	}

	for name, value := range data.RequestHeaders {
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return nil, types.NewInternalError("invalid header override: " + name)
		}
		upstream.Set(name, value)
	}

	return upstream, nil
}
