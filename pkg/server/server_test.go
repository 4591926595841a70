package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/relayforge/streamproxy/pkg/config"
)

func testConfig(apiPassword string) *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Auth.APIPassword = apiPassword
	cfg.Telemetry.Metrics.Enabled = false
	return cfg
}

func TestServerHealthEndpoints(t *testing.T) {
	srv, err := New(testConfig("s3cret"), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /ready = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
}

func TestServerGenerateURLIsOpen(t *testing.T) {
	srv, err := New(testConfig("s3cret"), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handler := srv.Handler()

	body, _ := json.Marshal(map[string]any{
		"mediaflow_proxy_url": "http://localhost:8080",
		"destination_url":     "http://origin/a.mp4",
	})
	req := httptest.NewRequest(http.MethodPost, "/proxy/generate_url", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /proxy/generate_url = %d, body: %s", rec.Code, rec.Body.String())
	}
}

func TestServerStreamRequiresAuth(t *testing.T) {
	srv, err := New(testConfig("s3cret"), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proxy/stream?d=http://origin/x", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /proxy/stream without credentials = %d, want 401", rec.Code)
	}
}

func TestServerReloadRepublishesGate(t *testing.T) {
	cfg := testConfig("old-password")
	srv, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handler := srv.Handler()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	req := httptest.NewRequest(http.MethodGet, "/proxy/stream?api_password=new-password&d="+upstream.URL, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("request signed with not-yet-live password = %d, want 401", rec.Code)
	}

	reloaded := testConfig("new-password")
	if err := srv.Reload(reloaded); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("request after Reload = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
}

func TestServerMetricsEndpointDisabledByDefault(t *testing.T) {
	srv, err := New(testConfig("s3cret"), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics with metrics disabled = %d, want 404", rec.Code)
	}
}

func TestServerUnmatchedRouteReturnsJSON404(t *testing.T) {
	srv, err := New(testConfig("s3cret"), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no/such/route", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET /no/such/route = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v, body: %s", err, rec.Body.String())
	}
	if body.Error != "Not Found" {
		t.Errorf("error = %q, want %q", body.Error, "Not Found")
	}
}

func TestServerIsRunningBeforeStart(t *testing.T) {
	srv, err := New(testConfig("s3cret"), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if srv.IsRunning() {
		t.Error("IsRunning() should be false before Start")
	}
}
