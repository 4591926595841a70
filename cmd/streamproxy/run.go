package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/relayforge/streamproxy/pkg/cli"
	"github.com/relayforge/streamproxy/pkg/config"
	"github.com/relayforge/streamproxy/pkg/security/secrets"
	"github.com/relayforge/streamproxy/pkg/server"
	"github.com/relayforge/streamproxy/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the streaming proxy server",
	Long: `Start the streaming proxy server with the specified configuration.

The server listens on the configured address, authenticates incoming
requests against the shared secret, and relays the upstream response back
to the client as it arrives.

Examples:
  # Start with default config
  streamproxy run

  # Start with custom config
  streamproxy run --config /etc/streamproxy/config.yaml

  # Override listen address
  streamproxy run --listen 0.0.0.0:8080

  # Validate config without starting server
  streamproxy run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen host:port")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		host, port, err := splitHostPort(runFlags.listenAddress)
		if err != nil {
			return cli.NewConfigError("listen", err.Error())
		}
		cfg.Server.Host = host
		cfg.Server.Port = port
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger := newLogger(cfg.Telemetry.Logging.Level)
	slog.SetDefault(logger)

	if err := resolveSecrets(cmd.Context(), cfg, logger); err != nil {
		return cli.NewConfigError("auth.api_password", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	var metricsCollector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		metricsCollector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		fmt.Println("✓ Metrics collector initialized")
	}

	srv, err := server.New(cfg, metricsCollector, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var watcher *config.Watcher
	if cfgFile != "" {
		watcher, err = config.NewWatcher(cfgFile, 0, logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			if err := watcher.Watch(ctx, func(reloaded *config.Config) error {
				if err := resolveSecrets(ctx, reloaded, logger); err != nil {
					return err
				}
				config.SetConfig(reloaded)
				return srv.Reload(reloaded)
			}); err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting proxy server",
			"address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		)
		if err := srv.Start(ctx); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	if err := waitForServerReady(ctx, srv, 5*time.Second); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	fmt.Println()
	fmt.Printf("✓ Server listening on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("✓ Health endpoint: http://%s:%d/health\n", cfg.Server.Host, cfg.Server.Port)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s:%d%s\n", cfg.Server.Host, cfg.Server.Port, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()
		if watcher != nil {
			_ = watcher.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

// resolveSecrets rewrites cfg.Auth.APIPassword in place if it contains a
// ${secret:name} reference, resolving it through the environment.
func resolveSecrets(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	manager := secrets.NewManager(
		[]secrets.SecretProvider{secrets.NewEnvProvider("STREAMPROXY_SECRET_")},
		secrets.CacheConfig{Enabled: true, TTL: 5 * time.Minute, MaxSize: 16},
	)

	resolved, err := manager.ResolveReferences(ctx, cfg.Auth.APIPassword)
	if err != nil {
		return fmt.Errorf("resolve auth.api_password: %w", err)
	}
	cfg.Auth.APIPassword = resolved
	return nil
}

func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

func printBanner(cfg *config.Config) {
	fmt.Printf("streamproxy v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")
	fmt.Printf("✓ %d transport route(s) configured\n", len(cfg.Proxy.TransportRoutes))
}

func waitForServerReady(ctx context.Context, srv *server.Server, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if srv.IsRunning() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
	if srv.IsRunning() {
		return nil
	}
	return fmt.Errorf("timed out waiting for server to start")
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", addr, err)
	}
	return host, port, nil
}
