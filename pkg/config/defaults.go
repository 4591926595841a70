package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultServerHost            = "127.0.0.1"
	DefaultServerPort            = 8888
	DefaultServerWorkers         = 4
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerIdleTimeout     = 120 * time.Second
	DefaultServerShutdownTimeout = 30 * time.Second

	// CORS defaults
	DefaultCORSEnabled = false
	DefaultCORSMaxAge  = time.Hour

	// Proxy defaults
	DefaultConnectTimeout  = 30 * time.Second
	DefaultBufferSize      = 8192
	DefaultFollowRedirects = true
	DefaultAllProxy        = false
	DefaultRouteVerifySSL  = true

	// Client cache defaults
	DefaultClientCacheEnabled  = false
	DefaultClientCacheIdleTTL  = 10 * time.Minute

	// Auth defaults
	DefaultAPIPassword = "changeme"

	// Logging defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultLogRedactPII  = true
	DefaultLogBufferSize = 10000

	// Metrics defaults
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "streamproxy"

	// Health defaults
	DefaultHealthEnabled       = true
	DefaultHealthLivenessPath  = "/health"
	DefaultHealthReadinessPath = "/ready"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// boolPtr returns a pointer to b, for distinguishing an unset *bool
// config field from one explicitly set to false.
func boolPtr(b bool) *bool {
	return &b
}

// DefaultRequestDurationBuckets are the default histogram buckets (in
// seconds) for upstream request duration.
func DefaultRequestDurationBuckets() []float64 {
	return []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}
}

// DefaultResponseSizeBuckets are the default histogram buckets (in
// bytes) for relayed response body sizes.
func DefaultResponseSizeBuckets() []float64 {
	return []float64{1024, 16384, 262144, 1048576, 16777216, 134217728}
}

// ApplyDefaults fills every unset field of cfg with its built-in default.
// It is called after YAML parsing and before environment overrides.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Workers == 0 {
		cfg.Server.Workers = DefaultServerWorkers
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultServerIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	if cfg.Proxy.ConnectTimeout == 0 {
		cfg.Proxy.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Proxy.BufferSize == 0 {
		cfg.Proxy.BufferSize = DefaultBufferSize
	}
	if cfg.Proxy.FollowRedirects == nil {
		cfg.Proxy.FollowRedirects = boolPtr(DefaultFollowRedirects)
	}

	for pattern, route := range cfg.Proxy.TransportRoutes {
		if route.VerifySSL == nil {
			route.VerifySSL = boolPtr(DefaultRouteVerifySSL)
		}
		cfg.Proxy.TransportRoutes[pattern] = route
	}

	if cfg.Proxy.ClientCache.IdleTTL == 0 {
		cfg.Proxy.ClientCache.IdleTTL = DefaultClientCacheIdleTTL
	}

	if cfg.Auth.APIPassword == "" {
		cfg.Auth.APIPassword = DefaultAPIPassword
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Logging.BufferSize == 0 {
		cfg.Telemetry.Logging.BufferSize = DefaultLogBufferSize
	}

	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = DefaultRequestDurationBuckets()
	}
	if len(cfg.Telemetry.Metrics.ResponseSizeBuckets) == 0 {
		cfg.Telemetry.Metrics.ResponseSizeBuckets = DefaultResponseSizeBuckets()
	}

	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultHealthLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultHealthReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
