package handlers

import (
	"net/http"

	"github.com/relayforge/streamproxy/pkg/proxy"
	"github.com/relayforge/streamproxy/pkg/proxy/types"
	"github.com/relayforge/streamproxy/pkg/security/auth"
)

// StreamHandler serves GET/HEAD /proxy/stream: the relay's primary entry
// point. It expects the auth gate to have already attached a ProxyData to
// the request context.
type StreamHandler struct {
	Relay *proxy.Relay
}

// NewStreamHandler builds a StreamHandler over relay.
func NewStreamHandler(relay *proxy.Relay) *StreamHandler {
	return &StreamHandler{Relay: relay}
}

// ServeHTTP implements http.Handler.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, ok := auth.GetProxyData(r.Context())
	if !ok || data.Destination == "" {
		types.WriteError(w, types.NewAuthError("missing destination"))
		return
	}

	if err := h.Relay.Serve(w, r, data); err != nil {
		types.WriteError(w, err)
	}
}
