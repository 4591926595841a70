package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/relayforge/streamproxy/pkg/envelope"
	"github.com/relayforge/streamproxy/pkg/proxy/types"
	"github.com/relayforge/streamproxy/pkg/router"
)

type fakeMetrics struct {
	mu       sync.Mutex
	recorded []string
	started  int
	ended    int
}

func (f *fakeMetrics) RecordRequest(route, status string, duration time.Duration, responseBytes int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, status)
}

func (f *fakeMetrics) StreamStarted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
}

func (f *fakeMetrics) StreamEnded() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended++
}

func newTestRelay(t *testing.T, metrics MetricsRecorder) *Relay {
	t.Helper()
	rt := router.New("", false, nil, nil)
	return &Relay{
		Router:     rt,
		Clients:    noopClientSource{},
		Baseline:   http.DefaultClient,
		BufferSize: 1024,
		Metrics:    metrics,
	}
}

type noopClientSource struct{}

func (noopClientSource) Get(proxyURL string, verifySSL bool) (*http.Client, error) {
	return http.DefaultClient, nil
}

func TestRelayServeSuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello world"))
	}))
	defer upstream.Close()

	metrics := &fakeMetrics{}
	relay := newTestRelay(t, metrics)

	req := httptest.NewRequest(http.MethodGet, "/proxy/stream", nil)
	rec := httptest.NewRecorder()

	err := relay.Serve(rec, req, &envelope.ProxyData{Destination: upstream.URL})
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "hello world" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "video/mp4" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}

	if metrics.started != 1 || metrics.ended != 1 {
		t.Errorf("stream started/ended = %d/%d, want 1/1", metrics.started, metrics.ended)
	}
	if len(metrics.recorded) != 1 || metrics.recorded[0] != "success" {
		t.Errorf("recorded = %v, want [success]", metrics.recorded)
	}
}

func TestRelayServeHeadOmitsBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "11")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello world"))
	}))
	defer upstream.Close()

	relay := newTestRelay(t, nil)

	req := httptest.NewRequest(http.MethodHead, "/proxy/stream", nil)
	rec := httptest.NewRecorder()

	if err := relay.Serve(rec, req, &envelope.ProxyData{Destination: upstream.URL}); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD response should have empty body, got %q", rec.Body.String())
	}
}

func TestRelayServeUpstreamErrorStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	metrics := &fakeMetrics{}
	relay := newTestRelay(t, metrics)

	req := httptest.NewRequest(http.MethodGet, "/proxy/stream", nil)
	rec := httptest.NewRecorder()

	err := relay.Serve(rec, req, &envelope.ProxyData{Destination: upstream.URL})
	if err == nil {
		t.Fatal("expected error for non-2xx upstream response")
	}
	pe, ok := err.(*types.ProxyError)
	if !ok || pe.Kind != types.KindUpstream {
		t.Errorf("err = %v, want KindUpstream", err)
	}
	if len(metrics.recorded) != 1 || metrics.recorded[0] != "error" {
		t.Errorf("recorded = %v, want [error]", metrics.recorded)
	}
}

func TestRelayServeUnreachableUpstream(t *testing.T) {
	relay := newTestRelay(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/proxy/stream", nil)
	rec := httptest.NewRecorder()

	err := relay.Serve(rec, req, &envelope.ProxyData{Destination: "http://127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected error for unreachable upstream")
	}
	pe, ok := err.(*types.ProxyError)
	if !ok || pe.Kind != types.KindProxy {
		t.Errorf("err = %v, want KindProxy", err)
	}
}

func TestRelayStreamCopiesAllBytes(t *testing.T) {
	relay := &Relay{BufferSize: 4}
	body := io.NopCloser(&fixedReader{data: []byte("abcdefghij")})
	rec := httptest.NewRecorder()

	n := relay.stream(rec, body, nil)
	if n != 10 {
		t.Errorf("bytes written = %d, want 10", n)
	}
	if rec.Body.String() != "abcdefghij" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

type fixedReader struct {
	data []byte
	pos  int
}

func (f *fixedReader) Read(p []byte) (int, error) {
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += n
	return n, nil
}
