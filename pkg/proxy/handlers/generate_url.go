package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/relayforge/streamproxy/pkg/envelope"
	"github.com/relayforge/streamproxy/pkg/proxy/types"
)

// generateURLRequest is the JSON descriptor accepted by POST
// /proxy/generate_url.
type generateURLRequest struct {
	MediaflowProxyURL string            `json:"mediaflow_proxy_url"`
	Endpoint          string            `json:"endpoint,omitempty"`
	DestinationURL    string            `json:"destination_url"`
	QueryParams       map[string]string `json:"query_params,omitempty"`
	RequestHeaders    map[string]string `json:"request_headers,omitempty"`
	ResponseHeaders   map[string]string `json:"response_headers,omitempty"`
	Expiration        *int64            `json:"expiration,omitempty"`
	IP                string            `json:"ip,omitempty"`
	APIPassword       string            `json:"api_password,omitempty"`
}

// GenerateURLHandler serves POST /proxy/generate_url: the inverse of the
// auth gate, producing either a token-mode or signed-query-mode URL that
// the gate accepts as-is. The endpoint itself is open.
type GenerateURLHandler struct{}

// NewGenerateURLHandler builds a GenerateURLHandler.
func NewGenerateURLHandler() *GenerateURLHandler {
	return &GenerateURLHandler{}
}

// ServeHTTP implements http.Handler.
func (h *GenerateURLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req generateURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, types.NewInternalError("invalid request body: "+err.Error()))
		return
	}

	if req.DestinationURL == "" {
		types.WriteError(w, types.NewInternalError("destination_url is required"))
		return
	}

	base := joinBaseAndEndpoint(req.MediaflowProxyURL, req.Endpoint)

	var (
		generated string
		err       error
	)
	if req.APIPassword != "" {
		generated, err = tokenURL(base, req)
	} else {
		generated = signedQueryURL(base, req)
	}
	if err != nil {
		types.WriteError(w, types.NewInternalError(err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"url": generated})
}

// joinBaseAndEndpoint appends endpoint onto base with exactly one "/".
func joinBaseAndEndpoint(base, endpoint string) string {
	if endpoint == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(endpoint, "/")
}

func tokenURL(base string, req generateURLRequest) (string, error) {
	data := &envelope.ProxyData{
		Destination:     req.DestinationURL,
		QueryParams:     req.QueryParams,
		RequestHeaders:  req.RequestHeaders,
		ResponseHeaders: req.ResponseHeaders,
	}
	if req.Expiration != nil {
		exp := time.Now().Unix() + *req.Expiration
		data.Exp = &exp
	}
	if req.IP != "" {
		ip := req.IP
		data.IP = &ip
	}

	codec, err := envelope.New([]byte(req.APIPassword))
	if err != nil {
		return "", err
	}

	token, err := codec.Encrypt(data)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("token", token)
	return base + "?" + q.Encode(), nil
}

func signedQueryURL(base string, req generateURLRequest) string {
	q := url.Values{}
	for k, v := range req.QueryParams {
		q.Set(k, v)
	}
	q.Set("d", req.DestinationURL)
	for k, v := range req.RequestHeaders {
		q.Set("h_"+k, v)
	}
	for k, v := range req.ResponseHeaders {
		q.Set("r_"+k, v)
	}
	return base + "?" + q.Encode()
}
