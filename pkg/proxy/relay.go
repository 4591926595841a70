package proxy

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/relayforge/streamproxy/pkg/envelope"
	"github.com/relayforge/streamproxy/pkg/proxy/types"
	"github.com/relayforge/streamproxy/pkg/router"
	"github.com/relayforge/streamproxy/pkg/upstream"
)

// ClientSource resolves an *http.Client for a given forward-proxy URL and
// TLS verification policy. *upstream.Cache satisfies this directly; a
// plain *upstream.Factory is adapted via NewFactorySource.
type ClientSource interface {
	Get(proxyURL string, verifySSL bool) (*http.Client, error)
}

// factorySource adapts a *upstream.Factory (which builds a client fresh
// per call) to the ClientSource interface, used when the optional client
// cache is disabled.
type factorySource struct {
	factory         *upstream.Factory
	connectTimeout  time.Duration
	followRedirects bool
}

// NewFactorySource wraps factory as a ClientSource with a fixed connect
// timeout and redirect policy.
func NewFactorySource(factory *upstream.Factory, connectTimeout time.Duration, followRedirects bool) ClientSource {
	return &factorySource{factory: factory, connectTimeout: connectTimeout, followRedirects: followRedirects}
}

func (s *factorySource) Get(proxyURL string, verifySSL bool) (*http.Client, error) {
	return s.factory.Build(upstream.Options{
		ConnectTimeout:  s.connectTimeout,
		FollowRedirects: s.followRedirects,
		ProxyURL:        proxyURL,
		VerifySSL:       verifySSL,
	})
}

// MetricsRecorder receives outcome and in-flight tracking for relayed
// requests. *metrics.Collector satisfies this; the interface lives here so
// this package does not depend on pkg/telemetry/metrics.
type MetricsRecorder interface {
	RecordRequest(route, status string, duration time.Duration, responseBytes int64)
	StreamStarted()
	StreamEnded()
}

// Relay implements the streaming relay (C5): it builds the upstream
// request from a ProxyData record, resolves a client via the router and
// client source, issues the GET, and streams the response back.
type Relay struct {
	// Router resolves per-destination forward-proxy/TLS policy.
	Router *router.Router

	// Clients resolves an *http.Client for a route's (proxy_url, verify_ssl).
	Clients ClientSource

	// Baseline is the client used when no route matches the destination
	// and all_proxy is disabled.
	Baseline *http.Client

	// BufferSize paces the progress log line (every 10*BufferSize bytes);
	// it does not size any actual I/O buffer.
	BufferSize int

	// Metrics, if set, records request outcomes and in-flight stream
	// counts. Nil disables metrics recording.
	Metrics MetricsRecorder

	Logger *slog.Logger
}

// Serve composes the upstream request, issues it, and relays the response
// to w. The client's own HTTP method (GET or HEAD) is read from r.Method;
// the upstream request is always a GET regardless.
func (rl *Relay) Serve(w http.ResponseWriter, r *http.Request, data *envelope.ProxyData) error {
	log := rl.logger()
	start := time.Now()

	if rl.Metrics != nil {
		rl.Metrics.StreamStarted()
		defer rl.Metrics.StreamEnded()
	}

	var bytesSent int64
	status := "success"
	defer func() {
		if rl.Metrics != nil {
			rl.Metrics.RecordRequest(r.URL.Path, status, time.Since(start), bytesSent)
		}
	}()

	headers, err := composeUpstreamHeaders(r.Header, data)
	if err != nil {
		status = "error"
		return err
	}

	client, err := rl.clientFor(data.Destination)
	if err != nil {
		status = "error"
		return types.NewInternalError(fmt.Sprintf("build upstream client: %v", err))
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, data.Destination, nil)
	if err != nil {
		status = "error"
		return types.NewInternalError(fmt.Sprintf("build upstream request: %v", err))
	}
	req.Header = headers

	resp, err := client.Do(req)
	if err != nil {
		status = "error"
		return types.NewProxyError(fmt.Sprintf("upstream request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status = "error"
		return types.NewUpstreamError(fmt.Sprintf("Upstream returned error status: %s", resp.Status))
	}

	downstream := composeDownstreamHeaders(resp.Header, data)
	contentLength, hasLength := parseContentLength(downstream.Get("Content-Length"))

	for name, values := range downstream {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}

	if r.Method == http.MethodHead {
		if hasLength {
			w.Header().Set("Content-Length", strconv.FormatInt(contentLength, 10))
		}
		w.WriteHeader(http.StatusOK)
		return nil
	}

	if hasLength && contentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(contentLength, 10))
	} else {
		w.Header().Del("Content-Length")
		w.Header().Set("Transfer-Encoding", "chunked")
	}

	w.WriteHeader(http.StatusOK)
	bytesSent = rl.stream(w, resp.Body, log)
	return nil
}

// stream copies resp.Body to w lazily, logging progress every
// 10*BufferSize bytes, and returns the number of bytes written. Upstream
// I/O errors truncate the response body; the status has already been
// written and cannot change.
func (rl *Relay) stream(w http.ResponseWriter, body io.Reader, log *slog.Logger) int64 {
	flusher, _ := w.(http.Flusher)

	buf := make([]byte, copyBufferSize)
	var total int64
	logEvery := int64(rl.logCadence())

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				log.Error("downstream write failed mid-stream", "error", writeErr, "bytes_sent", total)
				return total
			}
			total += int64(n)
			if flusher != nil {
				flusher.Flush()
			}
			if logEvery > 0 && total/logEvery != (total-int64(n))/logEvery {
				log.Debug("stream progress", "bytes_sent", total)
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				log.Error("upstream read failed mid-stream", "error", readErr, "bytes_sent", total)
			}
			return total
		}
	}
}

func (rl *Relay) clientFor(destination string) (*http.Client, error) {
	cfg, ok := rl.Router.GetProxyConfig(destination, rl.logger())
	if !ok {
		return rl.Baseline, nil
	}

	proxyURL := cfg.ProxyURL
	if cfg.Proxy && proxyURL == "" {
		proxyURL = rl.Router.DefaultProxy()
	}
	if !cfg.Proxy {
		proxyURL = ""
	}

	return rl.Clients.Get(proxyURL, cfg.VerifySSL)
}

func (rl *Relay) logger() *slog.Logger {
	if rl.Logger != nil {
		return rl.Logger
	}
	return slog.Default()
}

func (rl *Relay) logCadence() int {
	if rl.BufferSize <= 0 {
		return 0
	}
	return rl.BufferSize * 10
}

// copyBufferSize is the fixed size of the relay's read buffer; it does
// not depend on BufferSize.
const copyBufferSize = 32 * 1024

func parseContentLength(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
