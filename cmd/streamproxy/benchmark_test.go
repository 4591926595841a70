package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// BenchmarkVersionCommand benchmarks the version command startup time
// Target: < 100ms per iteration
func BenchmarkVersionCommand(b *testing.B) {
	binaryPath := buildBinary(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cmd := exec.Command(binaryPath, "version")
		if err := cmd.Run(); err != nil {
			b.Fatalf("version command failed: %v", err)
		}
	}
}

// BenchmarkHelpCommand benchmarks the help command
// Target: < 100ms per iteration
func BenchmarkHelpCommand(b *testing.B) {
	binaryPath := buildBinary(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cmd := exec.Command(binaryPath, "--help")
		if err := cmd.Run(); err != nil {
			b.Fatalf("help command failed: %v", err)
		}
	}
}

// BenchmarkRunDryRun benchmarks config validation with --dry-run
// Target: < 1s per iteration
func BenchmarkRunDryRun(b *testing.B) {
	tmpDir := b.TempDir()

	configFile := filepath.Join(tmpDir, "config.yaml")
	createBenchmarkConfig(b, configFile)

	binaryPath := buildBinary(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cmd := exec.Command(binaryPath, "run", "--config", configFile, "--dry-run")
		cmd.Dir = tmpDir
		if err := cmd.Run(); err != nil {
			b.Fatalf("run --dry-run failed: %v", err)
		}
	}
}

// BenchmarkCompletionGeneration benchmarks shell completion generation
// Target: < 100ms per iteration
func BenchmarkCompletionGeneration(b *testing.B) {
	binaryPath := buildBinary(b)

	shells := []string{"bash", "zsh", "fish", "powershell"}

	for _, shell := range shells {
		b.Run(shell, func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				cmd := exec.Command(binaryPath, "completion", shell)
				if err := cmd.Run(); err != nil {
					b.Fatalf("completion %s failed: %v", shell, err)
				}
			}
		})
	}
}

// Helper functions

var cachedBinaryPath string

// buildBinary builds the streamproxy binary once and caches the path
func buildBinary(b *testing.B) string {
	b.Helper()

	if cachedBinaryPath != "" {
		return cachedBinaryPath
	}

	binaryPath := "../../bin/streamproxy"
	if _, err := os.Stat(binaryPath); err == nil {
		cachedBinaryPath = binaryPath
		return binaryPath
	}

	tmpBinary := filepath.Join(b.TempDir(), "streamproxy")
	cmd := exec.Command("go", "build", "-o", tmpBinary, ".")
	if err := cmd.Run(); err != nil {
		b.Fatalf("failed to build streamproxy: %v", err)
	}

	cachedBinaryPath = tmpBinary
	return tmpBinary
}

// createBenchmarkConfig creates a standard config file for benchmarking
func createBenchmarkConfig(b *testing.B, path string) {
	b.Helper()

	config := `server:
  host: "127.0.0.1"
  port: 8080

proxy:
  connect_timeout: 10s
  buffer_size: 65536
  follow_redirects: true

auth:
  api_password: "bench-password"

telemetry:
  logging:
    level: "info"
  metrics:
    enabled: false
`

	if err := os.WriteFile(path, []byte(config), 0644); err != nil {
		b.Fatalf("failed to create config file: %v", err)
	}
}
