package config

import "time"

// Config is the root, process-wide configuration for the proxy. It is
// constructed once at startup (see Initialize) and read-only thereafter;
// no component mutates a *Config after publication.
type Config struct {
	// Server contains the HTTP listener configuration.
	Server ServerConfig `yaml:"server"`

	// Proxy contains upstream client and routing configuration.
	Proxy ProxyConfig `yaml:"proxy"`

	// Auth contains the shared-secret authentication configuration.
	Auth AuthConfig `yaml:"auth"`

	// Telemetry contains logging, metrics, and health check configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains the listener configuration for the HTTP server.
type ServerConfig struct {
	// Host is the bind address.
	// Default: "127.0.0.1"
	Host string `yaml:"host"`

	// Port is the bind port.
	// Default: 8888
	Port int `yaml:"port"`

	// Workers is the worker-thread count hint passed to the server.
	// Default: 4
	Workers int `yaml:"workers"`

	// ReadTimeout bounds reading the request, including the body.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing the response. It is not applied to
	// streamed proxy bodies, which may run indefinitely.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive idle time between requests.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown draining.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CORS contains cross-origin configuration for the client-facing API.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains cross-origin resource sharing configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are applied.
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is the set of origins permitted to call the API.
	// A single "*" allows all origins.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is the set of HTTP methods permitted.
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is the set of request headers permitted.
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is the set of response headers visible to scripts.
	ExposedHeaders []string `yaml:"exposed_headers"`

	// AllowCredentials controls whether cookies/credentials are allowed.
	AllowCredentials bool `yaml:"allow_credentials"`

	// MaxAge is how long browsers may cache a preflight response.
	MaxAge time.Duration `yaml:"max_age"`
}

// ProxyConfig contains the upstream client and routing configuration.
type ProxyConfig struct {
	// ConnectTimeout bounds the upstream handshake and header receipt;
	// it never bounds the body stream.
	// Default: 30s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// BufferSize is used only to pace progress log lines (every
	// 10*BufferSize bytes); it does not size any actual I/O buffer.
	// Default: 8192
	BufferSize int `yaml:"buffer_size"`

	// FollowRedirects controls the upstream client's redirect policy.
	// A nil value is unset and defaults to true in ApplyDefaults; an
	// explicit false in YAML/JSON must survive default-filling.
	// Default: true
	FollowRedirects *bool `yaml:"follow_redirects"`

	// ProxyURL is the default forward proxy, used when a route enables
	// proxying without an explicit proxy_url, or when AllProxy is set.
	ProxyURL string `yaml:"proxy_url"`

	// AllProxy forces the default forward proxy onto destinations that
	// match no transport route.
	// Default: false
	AllProxy bool `yaml:"all_proxy"`

	// TransportRoutes maps a glob-like destination pattern to a routing
	// rule (forward proxy selection and TLS verification policy).
	TransportRoutes map[string]RouteRuleConfig `yaml:"transport_routes"`

	// ClientCache, when enabled, amortizes per-route upstream client
	// construction across requests (optional optimization; see
	// pkg/upstream.Cache).
	ClientCache ClientCacheConfig `yaml:"client_cache"`
}

// RouteRuleConfig is one transport_routes entry.
type RouteRuleConfig struct {
	// Proxy controls whether a forward proxy is used at all.
	Proxy bool `yaml:"proxy"`

	// ProxyURL is an explicit SOCKS5 or HTTP forward-proxy URL. When
	// empty and Proxy is true, the default ProxyConfig.ProxyURL applies.
	ProxyURL string `yaml:"proxy_url"`

	// VerifySSL controls upstream TLS certificate verification. A nil
	// value is unset and defaults to true in ApplyDefaults; an explicit
	// false (e.g. verify_ssl: false in a transport_routes entry) must
	// survive default-filling instead of being forced back to true.
	// Default: true
	VerifySSL *bool `yaml:"verify_ssl"`
}

// ClientCacheConfig controls the optional per-route upstream client cache.
type ClientCacheConfig struct {
	// Enabled turns on the (proxy_url, verify_ssl)-keyed client cache.
	Enabled bool `yaml:"enabled"`

	// IdleTTL is how long an unused cached client survives before the
	// eviction sweep removes it.
	IdleTTL time.Duration `yaml:"idle_ttl"`

	// EvictionSchedule is a standard cron expression controlling how
	// often the eviction sweep runs. Empty disables scheduled eviction.
	EvictionSchedule string `yaml:"eviction_schedule"`
}

// AuthConfig contains the shared-secret authentication configuration.
type AuthConfig struct {
	// APIPassword is the shared secret used by both signed-query mode
	// and token mode. ApplyDefaults replaces an empty value with the
	// default, so a password loaded from the config file or the
	// environment is never empty and authentication cannot be turned off
	// through configuration; an empty password passed directly to
	// auth.NewGate disables authentication.
	// Default: "changeme"
	APIPassword string `yaml:"api_password"`
}

// TelemetryConfig contains logging, metrics, and health check configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error". Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console". Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic redaction of secrets (api_password,
	// token, Authorization) from log fields.
	// Default: false; ApplyDefaults does not set this field
	// (DefaultLogRedactPII is not applied).
	RedactPII bool `yaml:"redact_pii"`

	// BufferSize is the size of the async log buffer.
	// Default: 10000
	BufferSize int `yaml:"buffer_size"`

	// RedactPatterns contains additional custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint and collectors
	// are active.
	// Default: false; ApplyDefaults does not set this field
	// (DefaultMetricsEnabled is not applied).
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus exposition endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "streamproxy"
	Namespace string `yaml:"namespace"`

	// RequestDurationBuckets defines histogram buckets for upstream
	// request duration (seconds).
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`

	// ResponseSizeBuckets defines histogram buckets for relayed
	// response body sizes (bytes).
	ResponseSizeBuckets []float64 `yaml:"response_size_buckets"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled is not read by the server: the liveness and readiness
	// endpoints are always registered. ApplyDefaults does not set this
	// field (DefaultHealthEnabled is not applied).
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component health checks.
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
