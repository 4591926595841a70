package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/relayforge/streamproxy/pkg/cli"
)

var benchmarkFlags struct {
	target      string
	destination string
	apiPassword string
	duration    time.Duration
	rate        int
	concurrency int
	format      string
}

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Load test a running proxy instance",
	Long: `Generate a signed proxy URL for --destination and hammer it at a
configurable rate to measure relay throughput and latency.

Metrics Collected:
  - Request throughput (requests/sec)
  - Latency percentiles (p50, p95, p99, max)
  - Success/error rates by HTTP status

Examples:
  # Basic benchmark against a local instance
  streamproxy benchmark --target http://localhost:8080 --destination https://example.com/stream.mp4

  # High load test
  streamproxy benchmark --duration 60s --rate 100 --concurrency 10`,
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	benchmarkCmd.Flags().StringVar(&benchmarkFlags.target, "target", "http://localhost:8080", "proxy base URL")
	benchmarkCmd.Flags().StringVar(&benchmarkFlags.destination, "destination", "", "destination URL to relay through the proxy (required)")
	benchmarkCmd.Flags().StringVar(&benchmarkFlags.apiPassword, "api-password", "", "api_password to use for token-mode auth; empty generates a signed-query URL")
	benchmarkCmd.Flags().DurationVar(&benchmarkFlags.duration, "duration", 30*time.Second, "test duration")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.rate, "rate", 10, "requests per second")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.concurrency, "concurrency", 4, "concurrent workers")
	benchmarkCmd.Flags().StringVar(&benchmarkFlags.format, "format", "text", "output format: text, json")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	if benchmarkFlags.destination == "" {
		return cli.NewConfigError("destination", "--destination is required")
	}

	proxyURL, err := generateBenchmarkURL(cmd.Context())
	if err != nil {
		return cli.NewCommandError("benchmark", fmt.Errorf("generate proxy url: %w", err))
	}

	fmt.Println("streamproxy benchmark")
	fmt.Println("=====================")
	fmt.Printf("Target:      %s\n", benchmarkFlags.target)
	fmt.Printf("Destination: %s\n", benchmarkFlags.destination)
	fmt.Printf("Duration:    %s\n", benchmarkFlags.duration)
	fmt.Printf("Rate:        %d req/s\n", benchmarkFlags.rate)
	fmt.Printf("Concurrency: %d\n", benchmarkFlags.concurrency)
	fmt.Println()
	fmt.Println("Running...")
	fmt.Println()

	results := runLoadTest(cmd.Context(), proxyURL)

	if benchmarkFlags.format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(results.summary())
	}
	displayResults(results)
	return nil
}

// generateBenchmarkURL asks the target's own /proxy/generate_url endpoint
// to mint a URL for --destination, exercising the same URL generator (C6)
// that a real client would use.
func generateBenchmarkURL(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]any{
		"mediaflow_proxy_url": benchmarkFlags.target,
		"endpoint":            "/proxy/stream",
		"destination_url":     benchmarkFlags.destination,
		"api_password":        benchmarkFlags.apiPassword,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, benchmarkFlags.target+"/proxy/generate_url", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generate_url returned %s: %s", resp.Status, respBody)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.URL, nil
}

type benchmarkResults struct {
	mu            sync.Mutex
	totalRequests int64
	statusCounts  map[int]int64
	failed        int64
	latencies     []time.Duration
	duration      time.Duration
}

func (r *benchmarkResults) record(status int, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, latency)
	r.statusCounts[status]++
}

func (r *benchmarkResults) recordFailure() {
	atomic.AddInt64(&r.failed, 1)
}

func (r *benchmarkResults) summary() map[string]any {
	min, mean, median, p95, p99, max := calculatePercentiles(r.latencies)
	return map[string]any{
		"total_requests": r.totalRequests,
		"failed":         r.failed,
		"duration_s":     r.duration.Seconds(),
		"status_counts":  r.statusCounts,
		"latency_ms": map[string]float64{
			"min":    msOf(min),
			"mean":   msOf(mean),
			"median": msOf(median),
			"p95":    msOf(p95),
			"p99":    msOf(p99),
			"max":    msOf(max),
		},
	}
}

func msOf(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// runLoadTest fires real GET requests against proxyURL at --rate for
// --duration, spread across --concurrency workers.
func runLoadTest(ctx context.Context, proxyURL string) *benchmarkResults {
	results := &benchmarkResults{statusCounts: make(map[int]int64)}

	runCtx, cancel := context.WithTimeout(ctx, benchmarkFlags.duration)
	defer cancel()

	jobs := make(chan struct{}, benchmarkFlags.concurrency)
	var wg sync.WaitGroup

	client := &http.Client{Timeout: 30 * time.Second}

	progress := cli.NewProgressReporter(nil)
	estimatedTotal := int64(benchmarkFlags.duration.Seconds()) * int64(benchmarkFlags.rate)
	progress.Start(estimatedTotal)

	for i := 0; i < benchmarkFlags.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				start := time.Now()
				req, err := http.NewRequestWithContext(runCtx, http.MethodGet, proxyURL, nil)
				if err != nil {
					results.recordFailure()
					continue
				}
				resp, err := client.Do(req)
				if err != nil {
					results.recordFailure()
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				results.record(resp.StatusCode, time.Since(start))
				atomic.AddInt64(&results.totalRequests, 1)
				progress.Update(atomic.LoadInt64(&results.totalRequests))
			}
		}()
	}

	start := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(benchmarkFlags.rate))
	defer ticker.Stop()

dispatch:
	for {
		select {
		case <-runCtx.Done():
			break dispatch
		case <-ticker.C:
			select {
			case jobs <- struct{}{}:
			case <-runCtx.Done():
				break dispatch
			}
		}
	}

	close(jobs)
	wg.Wait()
	progress.Finish()

	results.duration = time.Since(start)
	return results
}

func displayResults(results *benchmarkResults) {
	total := atomic.LoadInt64(&results.totalRequests)
	failed := atomic.LoadInt64(&results.failed)

	fmt.Println()
	fmt.Println("Results:")
	fmt.Println("--------")
	fmt.Printf("Requests:   %d total, %d failed\n", total, failed)
	fmt.Printf("Duration:   %.1fs\n", results.duration.Seconds())

	if total > 0 {
		throughput := float64(total) / results.duration.Seconds()
		fmt.Printf("Throughput: %.2f req/s\n", throughput)
	}

	if len(results.latencies) > 0 {
		min, mean, median, p95, p99, max := calculatePercentiles(results.latencies)
		fmt.Println()
		fmt.Println("Latency:")
		fmt.Printf("  Min:    %.1fms\n", msOf(min))
		fmt.Printf("  Mean:   %.1fms\n", msOf(mean))
		fmt.Printf("  Median: %.1fms\n", msOf(median))
		fmt.Printf("  p95:    %.1fms\n", msOf(p95))
		fmt.Printf("  p99:    %.1fms\n", msOf(p99))
		fmt.Printf("  Max:    %.1fms\n", msOf(max))
	}

	if len(results.statusCounts) > 0 {
		fmt.Println()
		fmt.Println("Status Codes:")
		for status, count := range results.statusCounts {
			fmt.Printf("  %d: %d\n", status, count)
		}
	}
}

func calculatePercentiles(latencies []time.Duration) (min, mean, median, p95, p99, max time.Duration) {
	if len(latencies) == 0 {
		return
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	min = sorted[0]
	max = sorted[len(sorted)-1]

	var sum time.Duration
	for _, lat := range sorted {
		sum += lat
	}
	mean = sum / time.Duration(len(sorted))

	median = sorted[len(sorted)/2]
	p95 = sorted[int(float64(len(sorted))*0.95)]
	p99 = sorted[int(float64(len(sorted))*0.99)]

	return
}
