package auth

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/relayforge/streamproxy/pkg/envelope"
	"github.com/relayforge/streamproxy/pkg/proxy/types"
)

// Gate is the authentication gate (C4). It is immutable once built and
// safe for concurrent use.
type Gate struct {
	codec       *envelope.Codec
	apiPassword string
	logger      *slog.Logger
}

// NewGate builds a Gate from the shared secret and its derived codec. An
// empty apiPassword disables authentication entirely.
func NewGate(codec *envelope.Codec, apiPassword string, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{codec: codec, apiPassword: apiPassword, logger: logger.With("component", "auth.gate")}
}

// Middleware wraps next with the auth gate. Apply it only to gated routes
// (/proxy/stream, /proxy/ip); open endpoints (/proxy/generate_url,
// /health) must not be wrapped at all.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.apiPassword == "" {
			next.ServeHTTP(w, r.WithContext(withProxyData(r.Context(), g.materializeWithoutAuth(r))))
			return
		}

		data, err := g.authenticate(r)
		if err != nil {
			g.logger.Warn("authentication failed", "error", err, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			types.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withProxyData(r.Context(), data)))
	})
}

// materializeWithoutAuth builds the best-effort ProxyData used when
// authentication is disabled: a token is decrypted if present, otherwise
// the signed-query fields are extracted unconditionally (no password
// check), otherwise an empty ProxyData is attached. This keeps the relay
// functional without a shared secret configured.
func (g *Gate) materializeWithoutAuth(r *http.Request) *envelope.ProxyData {
	query := parseQuery(r.URL.RawQuery)

	if token := query["token"]; token != "" {
		if data, err := g.codec.Decrypt(token, clientIP(r)); err == nil {
			return data
		}
	}

	if data, err := g.authenticateSignedQuery(query); err == nil {
		return data
	}

	return &envelope.ProxyData{}
}

// authenticate validates r under token mode or signed-query mode and
// returns the materialized ProxyData, or an *types.ProxyError of kind
// KindAuth on any failure.
func (g *Gate) authenticate(r *http.Request) (*envelope.ProxyData, error) {
	query := parseQuery(r.URL.RawQuery)

	if token := query["token"]; token != "" {
		return g.authenticateToken(token, clientIP(r))
	}

	if password := query["api_password"]; password != "" && password == g.apiPassword {
		return g.authenticateSignedQuery(query)
	}

	return nil, types.NewAuthError("missing or invalid credentials")
}

func (g *Gate) authenticateToken(token, observedIP string) (*envelope.ProxyData, error) {
	data, err := g.codec.Decrypt(token, observedIP)
	if err != nil {
		return nil, types.NewAuthError(decryptErrorMessage(err))
	}

	if configured, ok := data.QueryParams["api_password"]; ok && configured != g.apiPassword {
		return nil, types.NewAuthError("invalid API password")
	}

	return data, nil
}

func (g *Gate) authenticateSignedQuery(query map[string]string) (*envelope.ProxyData, error) {
	destination, ok := query["d"]
	if !ok || destination == "" {
		return nil, types.NewAuthError("missing destination")
	}

	requestHeaders := make(map[string]string)
	responseHeaders := make(map[string]string)
	for key, value := range query {
		switch {
		case strings.HasPrefix(key, "h_"):
			requestHeaders[strings.TrimPrefix(key, "h_")] = value
		case strings.HasPrefix(key, "r_"):
			responseHeaders[strings.TrimPrefix(key, "r_")] = value
		}
	}

	return &envelope.ProxyData{
		Destination:     destination,
		QueryParams:     query,
		RequestHeaders:  requestHeaders,
		ResponseHeaders: responseHeaders,
	}, nil
}

// decryptErrorMessage maps an envelope decrypt error to the client-facing
// message, matching the specific wording the spec's scenarios pin.
func decryptErrorMessage(err error) string {
	switch {
	case errors.Is(err, envelope.ErrExpired):
		return "Token has expired"
	case errors.Is(err, envelope.ErrIPMismatch):
		return "IP mismatch"
	default:
		return "invalid token"
	}
}

// parseQuery URL-decodes raw into a flat map, dropping empty keys or
// values and keeping the last occurrence of a repeated key.
func parseQuery(raw string) map[string]string {
	values, _ := url.ParseQuery(raw)
	out := make(map[string]string, len(values))
	for key, vs := range values {
		if key == "" || len(vs) == 0 || vs[len(vs)-1] == "" {
			continue
		}
		out[key] = vs[len(vs)-1]
	}
	return out
}

// clientIP returns the request's observed remote IP, stripping the port
// from RemoteAddr when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
