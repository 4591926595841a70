// Package server wires the configured components (router, upstream client
// source, auth gate, relay) into the HTTP listener and owns its lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/relayforge/streamproxy/pkg/config"
	"github.com/relayforge/streamproxy/pkg/envelope"
	"github.com/relayforge/streamproxy/pkg/proxy"
	"github.com/relayforge/streamproxy/pkg/proxy/handlers"
	"github.com/relayforge/streamproxy/pkg/proxy/middleware"
	"github.com/relayforge/streamproxy/pkg/proxy/types"
	"github.com/relayforge/streamproxy/pkg/router"
	"github.com/relayforge/streamproxy/pkg/security/auth"
	"github.com/relayforge/streamproxy/pkg/telemetry/health"
	"github.com/relayforge/streamproxy/pkg/telemetry/metrics"
	"github.com/relayforge/streamproxy/pkg/upstream"
)

// Server is the main HTTP proxy server. Its route table and middleware
// chain are fixed at construction; the routing table, auth gate, and
// relay backing that chain can be atomically replaced via Reload, e.g. in
// response to a config file change. Reload keeps the upstream client
// source and baseline client built by New.
type Server struct {
	cfg    *config.ServerConfig
	logger *slog.Logger

	live *atomic.Pointer[liveConfig]

	health      *health.Checker
	healthPaths config.HealthConfig

	metrics           *metrics.Collector
	metricsEnabled    bool
	metricsPath       string
	cache             *upstream.Cache
	cacheEvictionCron string

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// liveConfig is the atomically-swapped bundle of components that depend
// on hot-reloadable configuration (transport_routes, auth.api_password).
type liveConfig struct {
	router *router.Router
	gate   *auth.Gate
	relay  *proxy.Relay
}

// New builds a Server from cfg. metricsCollector may be nil to disable
// metrics recording in the relay path; the /metrics endpoint is then not
// registered either (it is registered only when metrics are enabled in
// cfg and a collector is given).
func New(cfg *config.Config, metricsCollector *metrics.Collector, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	factory := upstream.NewFactory()

	var cache *upstream.Cache
	var clientSource proxy.ClientSource
	if cfg.Proxy.ClientCache.Enabled {
		cache = upstream.NewCache(factory, cfg.Proxy.ConnectTimeout, *cfg.Proxy.FollowRedirects, cfg.Proxy.ClientCache.IdleTTL, logger)
		clientSource = cache
	} else {
		clientSource = proxy.NewFactorySource(factory, cfg.Proxy.ConnectTimeout, *cfg.Proxy.FollowRedirects)
	}

	baseline, err := factory.Build(upstream.Options{
		ConnectTimeout:  cfg.Proxy.ConnectTimeout,
		FollowRedirects: *cfg.Proxy.FollowRedirects,
	})
	if err != nil {
		return nil, fmt.Errorf("server: build baseline upstream client: %w", err)
	}

	live, err := buildLiveConfig(cfg, clientSource, baseline, metricsCollector, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:               &cfg.Server,
		logger:            logger,
		live:              &atomic.Pointer[liveConfig]{},
		healthPaths:       cfg.Telemetry.Health,
		metrics:           metricsCollector,
		metricsEnabled:    cfg.Telemetry.Metrics.Enabled,
		metricsPath:       cfg.Telemetry.Metrics.Path,
		cache:             cache,
		cacheEvictionCron: cfg.Proxy.ClientCache.EvictionSchedule,
		shutdownChan:      make(chan struct{}),
	}
	s.live.Store(live)

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("router", func(ctx context.Context) error {
		live := s.live.Load()
		if live == nil || live.router == nil || live.gate == nil || live.relay == nil {
			return fmt.Errorf("live configuration not published")
		}
		return nil
	})
	if cache != nil {
		checker.RegisterCheck("client_cache", func(ctx context.Context) error {
			cache.Len()
			return nil
		})
	}
	s.health = checker

	return s, nil
}

// buildLiveConfig compiles the router and auth codec/gate from cfg and
// assembles the relay on top of clientSource/baseline.
func buildLiveConfig(cfg *config.Config, clientSource proxy.ClientSource, baseline *http.Client, metricsCollector *metrics.Collector, logger *slog.Logger) (*liveConfig, error) {
	routeRules := make(map[string]router.RouteConfig, len(cfg.Proxy.TransportRoutes))
	for pattern, rule := range cfg.Proxy.TransportRoutes {
		routeRules[pattern] = router.RouteConfig{
			Proxy:     rule.Proxy,
			ProxyURL:  rule.ProxyURL,
			VerifySSL: *rule.VerifySSL,
		}
	}
	rt := router.New(cfg.Proxy.ProxyURL, cfg.Proxy.AllProxy, routeRules, logger)

	codec, err := envelope.New([]byte(cfg.Auth.APIPassword))
	if err != nil {
		return nil, fmt.Errorf("server: build envelope codec: %w", err)
	}

	gate := auth.NewGate(codec, cfg.Auth.APIPassword, logger)

	relay := &proxy.Relay{
		Router:     rt,
		Clients:    clientSource,
		Baseline:   baseline,
		BufferSize: cfg.Proxy.BufferSize,
		Logger:     logger,
	}
	if metricsCollector != nil {
		relay.Metrics = metricsCollector
	}

	return &liveConfig{router: rt, gate: gate, relay: relay}, nil
}

// Reload rebuilds the router and auth gate from cfg and atomically
// publishes them; in-flight requests keep using the previously published
// components.
func (s *Server) Reload(cfg *config.Config) error {
	baseline := s.live.Load().relay.Baseline
	clientSource := s.live.Load().relay.Clients

	live, err := buildLiveConfig(cfg, clientSource, baseline, s.metrics, s.logger)
	if err != nil {
		return err
	}
	s.live.Store(live)
	s.logger.Info("configuration reloaded: router and auth gate republished")
	return nil
}

// Start starts the HTTP server and blocks until ctx is cancelled, a
// shutdown signal is handled by the caller, or the server errors.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.StartEviction(ctx, s.cacheEvictionCron); err != nil {
			return err
		}
	}

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:     s.Handler(),
		ReadTimeout: s.cfg.ReadTimeout,
		// No server-wide WriteTimeout: it would cut off /proxy/stream and
		// /proxy/ip bodies. The other routes are bounded by
		// TimeoutMiddleware(WriteTimeout) in Handler.
		IdleTimeout:    s.cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting proxy server", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.cfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("proxy server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, reading the current live
// config on every request via thin handler wrappers so a Reload takes
// effect without rebuilding the mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	generateURLHandler := handlers.NewGenerateURLHandler()

	bounded := middleware.TimeoutMiddleware(s.cfg.WriteTimeout)

	livenessPath := s.healthPaths.LivenessPath
	if livenessPath == "" {
		livenessPath = "/health"
	}
	readinessPath := s.healthPaths.ReadinessPath
	if readinessPath == "" {
		readinessPath = "/ready"
	}
	mux.Handle(livenessPath, bounded(s.health.LivenessHandler()))
	mux.Handle(readinessPath, bounded(s.health.ReadinessHandler()))
	mux.Handle("/proxy/generate_url", bounded(generateURLHandler))

	if s.metricsEnabled && s.metrics != nil {
		metricsPath := s.metricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		mux.Handle(metricsPath, bounded(s.metrics.Handler()))
	}

	// /proxy/stream and /proxy/ip relay a response body of unbounded
	// duration; TimeoutMiddleware must not wrap them.
	mux.Handle("/proxy/stream", s.gated(func(relay *proxy.Relay) http.Handler {
		return handlers.NewStreamHandler(relay)
	}))
	mux.Handle("/proxy/ip", s.gated(func(relay *proxy.Relay) http.Handler {
		return handlers.NewIPHandler(relay)
	}))

	// http.ServeMux has no registered pattern matching every unmatched
	// path; without this it falls back to a plain-text 404 instead of
	// the JSON error envelope every other route returns.
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		types.WriteNotFound(w)
	}))

	var handler http.Handler = mux
	handler = middleware.CORSMiddleware(s.convertCORSConfig())(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// gated wraps build with the current auth gate's middleware, re-reading
// the live config on every request.
func (s *Server) gated(build func(relay *proxy.Relay) http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		live := s.live.Load()
		live.gate.Middleware(build(live.relay)).ServeHTTP(w, r)
	})
}

// convertCORSConfig converts config.CORSConfig to middleware.CORSConfig.
func (s *Server) convertCORSConfig() *middleware.CORSConfig {
	return &middleware.CORSConfig{
		Enabled:          s.cfg.CORS.Enabled,
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
		AllowedMethods:   s.cfg.CORS.AllowedMethods,
		AllowedHeaders:   s.cfg.CORS.AllowedHeaders,
		ExposedHeaders:   s.cfg.CORS.ExposedHeaders,
		MaxAge:           int(s.cfg.CORS.MaxAge.Seconds()),
		AllowCredentials: s.cfg.CORS.AllowCredentials,
	}
}
