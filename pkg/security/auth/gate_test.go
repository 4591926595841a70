package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/relayforge/streamproxy/pkg/envelope"
)

func mustGate(t *testing.T, password string) *Gate {
	t.Helper()
	codec, err := envelope.New([]byte(password))
	if err != nil {
		t.Fatalf("envelope.New: %v", err)
	}
	return NewGate(codec, password, nil)
}

func capturingHandler(t *testing.T, want *envelope.ProxyData) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := GetProxyData(r.Context())
		if !ok {
			t.Fatal("ProxyData missing from context")
		}
		if want != nil && data.Destination != want.Destination {
			t.Errorf("destination = %q, want %q", data.Destination, want.Destination)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGateTokenMode(t *testing.T) {
	gate := mustGate(t, "s3cret")
	codec, _ := envelope.New([]byte("s3cret"))
	token, err := codec.Encrypt(&envelope.ProxyData{Destination: "http://origin/a.mp4"})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/proxy/stream?token="+token, nil)
	rec := httptest.NewRecorder()

	gate.Middleware(capturingHandler(t, &envelope.ProxyData{Destination: "http://origin/a.mp4"})).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
}

func TestGateTokenExpired(t *testing.T) {
	gate := mustGate(t, "s3cret")
	codec, _ := envelope.New([]byte("s3cret"))
	past := time.Now().Add(-time.Hour).Unix()
	token, err := codec.Encrypt(&envelope.ProxyData{Destination: "http://origin/a.mp4", Exp: &past})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/proxy/stream?token="+token, nil)
	rec := httptest.NewRecorder()

	gate.Middleware(capturingHandler(t, nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401, body: %s", rec.Code, rec.Body.String())
	}
}

func TestGateTokenWrongPassword(t *testing.T) {
	codec, _ := envelope.New([]byte("s3cret"))
	token, err := codec.Encrypt(&envelope.ProxyData{
		Destination: "http://origin/a.mp4",
		QueryParams: map[string]string{"api_password": "other"},
	})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	gate := mustGate(t, "s3cret")
	req := httptest.NewRequest(http.MethodGet, "/proxy/stream?token="+token, nil)
	rec := httptest.NewRecorder()

	gate.Middleware(capturingHandler(t, nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGateSignedQuery(t *testing.T) {
	gate := mustGate(t, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/proxy/stream?api_password=s3cret&d=http%3A%2F%2Forigin%2Fa.mp4&h_range=bytes%3D0-99", nil)
	rec := httptest.NewRecorder()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := GetProxyData(r.Context())
		if !ok {
			t.Fatal("ProxyData missing from context")
		}
		if data.Destination != "http://origin/a.mp4" {
			t.Errorf("destination = %q", data.Destination)
		}
		if data.RequestHeaders["range"] != "bytes=0-99" {
			t.Errorf("request headers not parsed: %v", data.RequestHeaders)
		}
		w.WriteHeader(http.StatusOK)
	})

	gate.Middleware(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
}

func TestGateSignedQueryMissingDestination(t *testing.T) {
	gate := mustGate(t, "s3cret")
	req := httptest.NewRequest(http.MethodGet, "/proxy/stream?api_password=s3cret", nil)
	rec := httptest.NewRecorder()

	gate.Middleware(capturingHandler(t, nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGateMissingCredentials(t *testing.T) {
	gate := mustGate(t, "s3cret")
	req := httptest.NewRequest(http.MethodGet, "/proxy/stream", nil)
	rec := httptest.NewRecorder()

	gate.Middleware(capturingHandler(t, nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q, want application/json", ct)
	}
}

func TestGateDisabledAuthToken(t *testing.T) {
	codec, _ := envelope.New([]byte(""))
	gate := NewGate(codec, "", nil)

	token, err := codec.Encrypt(&envelope.ProxyData{Destination: "http://origin/x"})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/proxy/stream?token="+token, nil)
	rec := httptest.NewRecorder()

	gate.Middleware(capturingHandler(t, &envelope.ProxyData{Destination: "http://origin/x"})).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when auth disabled", rec.Code)
	}
}

func TestGateDisabledAuthSignedQuery(t *testing.T) {
	codec, _ := envelope.New([]byte(""))
	gate := NewGate(codec, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/proxy/stream?d=http%3A%2F%2Forigin%2Fa.mp4", nil)
	rec := httptest.NewRecorder()

	gate.Middleware(capturingHandler(t, &envelope.ProxyData{Destination: "http://origin/a.mp4"})).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when auth disabled", rec.Code)
	}
}

func TestGateDisabledAuthNoCredentials(t *testing.T) {
	codec, _ := envelope.New([]byte(""))
	gate := NewGate(codec, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/proxy/stream", nil)
	rec := httptest.NewRecorder()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := GetProxyData(r.Context())
		if !ok {
			t.Fatal("ProxyData missing from context")
		}
		if data.Destination != "" {
			t.Errorf("destination = %q, want empty", data.Destination)
		}
		w.WriteHeader(http.StatusOK)
	})

	gate.Middleware(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 even with no credentials when auth disabled", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		remoteAddr string
		want       string
	}{
		{"1.2.3.4:5678", "1.2.3.4"},
		{"1.2.3.4", "1.2.3.4"},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = c.remoteAddr
		if got := clientIP(req); got != c.want {
			t.Errorf("clientIP(%q) = %q, want %q", c.remoteAddr, got, c.want)
		}
	}
}
