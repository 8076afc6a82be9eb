/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/moamenhredeen/restbind/internal/benchmarker"
	"github.com/moamenhredeen/restbind/internal/engine"
	"github.com/moamenhredeen/restbind/internal/metrics"
	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/output"
)

var (
	// Benchmark-specific flags
	benchIterations   int
	benchConcurrency  int
	benchWarmup       int
	benchRateLimit    float64
	benchTimeout      int
	benchNoKeepAlive  bool
	benchOutputFormat string
	benchOutputFile   string
	benchMetricsFile  string
)

// benchmarkCmd represents the benchmark command
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark [contract-file]",
	Short: "Benchmark API performance",
	Long: `Benchmark contract operations by measuring response times and throughput.

This command runs multiple iterations of each operation through the request
engine and collects performance metrics including latency percentiles
(p50, p90, p99), requests per second, and error rates.

Examples:
  # Basic benchmark with defaults (100 iterations, 1 concurrent)
  restbind benchmark pet-store.yaml

  # High-load benchmark with concurrency
  restbind benchmark pet-store.yaml -n 1000 -c 10

  # Rate-limited benchmark
  restbind benchmark pet-store.yaml -n 500 --rate 50

  # Export results and Prometheus metrics
  restbind benchmark pet-store.yaml -o json --output-file results.json --metrics-file bench.prom`,
	Args: cobra.ExactArgs(1),
	Run:  runBenchmark,
}

func runBenchmark(cmd *cobra.Command, args []string) {
	c, err := loadContract(args[0])
	if err != nil {
		fatalf("%v", err)
	}

	config := benchmarker.Config{
		Iterations:  benchIterations,
		Concurrency: benchConcurrency,
		WarmupRuns:  benchWarmup,
		RateLimit:   benchRateLimit,
		Timeout:     time.Duration(benchTimeout) * time.Second,
	}

	var engineOpts []engine.Option
	var benchOpts []benchmarker.Option
	var collector *metrics.Collector
	if benchMetricsFile != "" {
		collector = metrics.New()
		engineOpts = append(engineOpts, engine.WithObserver(collector))
		benchOpts = append(benchOpts, benchmarker.WithTracker(collector.Track))
	}

	e, err := newEngine(config.Timeout, !benchNoKeepAlive, config.Concurrency, engineOpts...)
	if err != nil {
		fatalf("%v", err)
	}
	defer e.Close()

	bench, err := benchmarker.NewBenchmarker(config, e, c, benchOpts...)
	if err != nil {
		fatalf("%v", err)
	}

	filteredOps := filterOperations(bench.Operations(), filter)
	if len(filteredOps) == 0 {
		fmt.Println("No operations found matching the criteria")
		os.Exit(0)
	}

	// Print benchmark info
	fmt.Printf("\n%s\n", white("=== Benchmark Configuration ==="))
	fmt.Printf("Contract:    %s\n", c.Surface.Name)
	fmt.Printf("Operations:  %d\n", len(filteredOps))
	fmt.Printf("Iterations:  %d per operation\n", config.Iterations)
	fmt.Printf("Concurrency: %d\n", config.Concurrency)
	fmt.Printf("Warmup:      %d iterations\n", config.WarmupRuns)
	if config.RateLimit > 0 {
		fmt.Printf("Rate Limit:  %.0f req/sec\n", config.RateLimit)
	}
	fmt.Printf("Timeout:     %v\n", config.Timeout)
	fmt.Printf("Keep-Alive:  %v\n", !benchNoKeepAlive)
	fmt.Println()

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nBenchmark interrupted, generating partial results...")
		cancel()
	}()

	var s *spinner.Spinner
	var phaseStartTime time.Time

	// Create event handler for live output
	onEvent := func(event benchmarker.BenchmarkEvent) {
		prefix := fmt.Sprintf("[%d/%d]", event.Index+1, event.Total)
		label := describeOperation(event.Operation)

		switch event.Type {
		case benchmarker.EventWarmupStarting:
			phaseStartTime = time.Now()
			if isTTY {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = fmt.Sprintf(" %s %s - Warming up...", prefix, label)
				s.Start()
			} else {
				fmt.Printf("%s %s - Warming up (%d iterations)...\n", prefix, label, event.MaxIter)
			}

		case benchmarker.EventWarmupProgress:
			if isTTY && s != nil {
				s.Suffix = fmt.Sprintf(" %s %s - Warmup %d/%d", prefix, label, event.Progress, event.MaxIter)
			}

		case benchmarker.EventWarmupCompleted:
			if isTTY && s != nil {
				s.Stop()
			}
			elapsed := time.Since(phaseStartTime)
			fmt.Printf("%s %s Warmup completed in %v\n", prefix, yellow("●"), elapsed.Round(time.Millisecond))

		case benchmarker.EventBenchmarkStarting:
			phaseStartTime = time.Now()
			if isTTY {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = fmt.Sprintf(" %s %s - Benchmarking 0/%d...", prefix, label, event.MaxIter)
				s.Start()
			} else {
				fmt.Printf("%s %s - Running benchmark (%d iterations)...\n", prefix, label, event.MaxIter)
			}

		case benchmarker.EventBenchmarkProgress:
			if isTTY && s != nil {
				s.Suffix = fmt.Sprintf(" %s %s - %d/%d (avg: %.1fms, %.1f req/s, %d errors)",
					prefix, label, event.Progress, event.MaxIter,
					ms(event.RunningAvg), event.RunningReqSec, event.ErrorCount)
			}

		case benchmarker.EventBenchmarkCompleted:
			if isTTY && s != nil {
				s.Stop()
			}

			result := event.Result
			elapsed := time.Since(phaseStartTime)

			// Status indicator based on error rate
			var status string
			if result.ErrorRate == 0 {
				status = green("✓")
			} else if result.ErrorRate < 5 {
				status = yellow("●")
			} else {
				status = red("✗")
			}

			fmt.Printf("%s %s %s %s\n", prefix, status, result.Operation, label)
			fmt.Printf("    %s avg: %.2fms | p99: %.2fms | %.1f req/s | errors: %d (%.1f%%)\n",
				cyan("→"),
				ms(result.Latency.Avg), ms(result.Latency.P99), result.RequestsPerSec,
				result.ErrorCount, result.ErrorRate)

			if verbose {
				fmt.Printf("    Latency:  min=%.2fms | p50=%.2fms | p90=%.2fms | max=%.2fms\n",
					ms(result.Latency.Min), ms(result.Latency.P50), ms(result.Latency.P90), ms(result.Latency.Max))
				fmt.Printf("    Duration: %v | Success: %d | Errors: %d\n",
					elapsed.Round(time.Millisecond), result.SuccessCount, result.ErrorCount)

				if len(result.StatusCodes) > 0 {
					fmt.Printf("    Status codes: %s\n", statusCodes(result.StatusCodes))
				}

				if len(result.SampleErrors) > 0 {
					fmt.Printf("    Sample errors:\n")
					for _, e := range result.SampleErrors {
						fmt.Printf("      - %s\n", red(e))
					}
				}
			}
		}
	}

	summary := bench.BenchmarkOperations(ctx, filteredOps, onEvent)

	if collector != nil {
		if err := collector.WriteFile(benchMetricsFile); err != nil {
			fatalf("writing metrics: %v", err)
		}
	}

	// Handle output format
	if benchOutputFormat != "" {
		format, err := output.ParseFormat(benchOutputFormat)
		if err != nil {
			fatalf("%v", err)
		}

		if err := output.ExportBenchmarkSummary(summary, format, benchOutputFile); err != nil {
			fatalf("exporting results: %v", err)
		}

		// If writing to file, still show summary
		if benchOutputFile != "" {
			fmt.Printf("\nResults exported to: %s\n", benchOutputFile)
			displayBenchmarkSummary(summary)
		}
		return
	}

	displayBenchmarkSummary(summary)
}

func displayBenchmarkSummary(summary models.BenchmarkSummary) {
	fmt.Println()
	fmt.Printf("%s\n", white("=== Benchmark Summary ==="))
	fmt.Printf("Total Operations:   %d\n", summary.TotalEndpoints)
	fmt.Printf("Total Requests:     %d\n", summary.TotalRequests)
	fmt.Printf("Total Duration:     %v\n", summary.TotalDuration.Round(time.Millisecond))
	fmt.Printf("Overall Throughput: %s\n", cyan(fmt.Sprintf("%.1f req/sec", summary.OverallReqsPerSec)))
	fmt.Println()

	fmt.Printf("%s\n", white("Latency Overview:"))
	fmt.Printf("  Min: %.2fms\n", ms(summary.Latency.Min))
	fmt.Printf("  Avg: %.2fms\n", ms(summary.Latency.Avg))
	fmt.Printf("  Max: %.2fms\n", ms(summary.Latency.Max))
	fmt.Println()

	if summary.TotalErrors > 0 {
		fmt.Printf("%s\n", white("Error Summary:"))
		fmt.Printf("  Total Errors: %s\n", red(summary.TotalErrors))
		fmt.Printf("  Error Rate:   %s\n", red(fmt.Sprintf("%.2f%%", summary.OverallErrorRate)))
		fmt.Println()
	} else {
		fmt.Printf("Errors: %s\n", green("0"))
		fmt.Println()
	}

	// Per-operation table (if verbose or few operations)
	if verbose || len(summary.Results) <= 10 {
		fmt.Printf("%s\n", white("Per-Operation Results:"))
		fmt.Printf("%-8s %-40s %10s %10s %10s %10s\n",
			"METHOD", "OPERATION", "AVG(ms)", "P99(ms)", "REQ/S", "ERR%")
		fmt.Println(strings.Repeat("-", 90))

		for _, r := range summary.Results {
			name := r.Operation
			if len(name) > 38 {
				name = name[:35] + "..."
			}
			fmt.Printf("%-8s %-40s %10.2f %10.2f %10.1f %10.1f\n",
				r.Method, name,
				ms(r.Latency.Avg),
				ms(r.Latency.P99),
				r.RequestsPerSec,
				r.ErrorRate)
		}
	}
}

func statusCodes(counts map[int]int) string {
	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	parts := make([]string, len(codes))
	for i, code := range codes {
		parts[i] = fmt.Sprintf("%d:%d", code, counts[code])
	}
	return strings.Join(parts, ", ")
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	benchmarkCmd.Flags().StringVar(&filter, "filter", "", "Filter operations by name or path")

	// Benchmark-specific flags
	benchmarkCmd.Flags().IntVarP(&benchIterations, "iterations", "n", 100, "Number of requests per operation")
	benchmarkCmd.Flags().IntVarP(&benchConcurrency, "concurrency", "c", 1, "Number of concurrent requests")
	benchmarkCmd.Flags().IntVarP(&benchWarmup, "warmup", "w", 5, "Number of warmup iterations (discarded from stats)")
	benchmarkCmd.Flags().Float64VarP(&benchRateLimit, "rate", "r", 0, "Max requests per second (0 = unlimited)")
	benchmarkCmd.Flags().IntVarP(&benchTimeout, "timeout", "t", 30, "Request timeout in seconds")
	benchmarkCmd.Flags().BoolVar(&benchNoKeepAlive, "no-keepalive", false, "Disable HTTP connection reuse")

	// Output flags
	benchmarkCmd.Flags().StringVarP(&benchOutputFormat, "output", "o", "", "Output format: json, csv")
	benchmarkCmd.Flags().StringVar(&benchOutputFile, "output-file", "", "Write output to file (default: stdout)")
	benchmarkCmd.Flags().StringVar(&benchMetricsFile, "metrics-file", "", "Write Prometheus metrics to file after the run")
}
