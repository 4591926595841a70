package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "streamproxy",
	Short: "streamproxy - authenticated streaming HTTP reverse proxy",
	Long: `streamproxy is an authenticated streaming HTTP reverse proxy.

It accepts signed requests describing a destination URL and headers,
validates them against a shared secret, and relays the upstream response
back to the client without buffering the body in memory. It supports:
  - Token and signed-query authentication modes
  - Per-destination forward-proxy and TLS verification routing
  - Hot-reload of routing and auth configuration from a YAML file

For more information, visit: https://github.com/relayforge/streamproxy`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Keep cobra's default completion command enabled
	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
