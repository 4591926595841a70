package handlers

import (
	"net/http"

	"github.com/relayforge/streamproxy/pkg/envelope"
	"github.com/relayforge/streamproxy/pkg/proxy"
	"github.com/relayforge/streamproxy/pkg/proxy/types"
	"github.com/relayforge/streamproxy/pkg/security/auth"
)

// ipifyURL is the fixed destination GET /proxy/ip relays to.
const ipifyURL = "https://api.ipify.org?format=json"

// IPHandler serves GET /proxy/ip: a gated relay passthrough to a fixed
// destination, reusing the stream relay end to end rather than a bespoke
// HTTP client call.
type IPHandler struct {
	Relay *proxy.Relay
}

// NewIPHandler builds an IPHandler over relay.
func NewIPHandler(relay *proxy.Relay) *IPHandler {
	return &IPHandler{Relay: relay}
}

// ServeHTTP implements http.Handler.
func (h *IPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, ok := auth.GetProxyData(r.Context())
	if !ok {
		data = &envelope.ProxyData{}
	}

	fixed := *data
	fixed.Destination = ipifyURL

	if err := h.Relay.Serve(w, r, &fixed); err != nil {
		types.WriteError(w, err)
	}
}
