/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/moamenhredeen/restbind/internal/engine"
	"github.com/moamenhredeen/restbind/internal/metrics"
	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/output"
	"github.com/moamenhredeen/restbind/internal/tester"
)

var (
	filter          string
	testTimeout     time.Duration
	testOutput      string
	testOutputFile  string
	testMetricsFile string
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test [contract-file]",
	Short: "Smoke-test every operation of a contract",
	Long: `Call every operation of a contract once with example or generated
arguments and check the responses against what the contract declares.

Examples:
  restbind test pet-store.yaml --server http://localhost:8080/v1
  restbind test pets.yaml --filter Pet -o json --output-file results.json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := loadContract(args[0])
		if err != nil {
			fatalf("%v", err)
		}

		var opts []engine.Option
		var collector *metrics.Collector
		if testMetricsFile != "" {
			collector = metrics.New()
			opts = append(opts, engine.WithObserver(collector))
		}

		e, err := newEngine(testTimeout, true, 1, opts...)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		testerOpts := []tester.Option{tester.WithTimeout(testTimeout)}
		if collector != nil {
			testerOpts = append(testerOpts, tester.WithTracker(collector.Track))
		}
		testRunner, err := tester.NewTester(e, c, testerOpts...)
		if err != nil {
			fatalf("contract is not usable: %v", err)
		}

		filteredOps := filterOperations(testRunner.Operations(), filter)
		if len(filteredOps) == 0 {
			fmt.Println("No operations found matching the criteria")
			os.Exit(0)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var s *spinner.Spinner
		onEvent := func(event tester.TestEvent) {
			prefix := fmt.Sprintf("[%d/%d]", event.Index+1, event.Total)
			switch event.Type {
			case tester.EventStarting:
				if isTTY {
					s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
					s.Suffix = fmt.Sprintf(" %s %s", prefix, describeOperation(event.Operation))
					s.Start()
				}
			case tester.EventCompleted:
				if s != nil {
					s.Stop()
				}
				if testOutput != "" && testOutputFile == "" {
					return
				}
				status := green("✓")
				if !event.Result.Passed {
					status = red("✗")
				}
				fmt.Printf("%s %s %s (%v)\n", prefix, status, describeOperation(event.Operation),
					event.Result.ResponseTime.Round(time.Millisecond))
			}
		}

		summary := testRunner.TestOperations(ctx, filteredOps, onEvent)

		if collector != nil {
			if err := collector.WriteFile(testMetricsFile); err != nil {
				fatalf("writing metrics: %v", err)
			}
		}

		if testOutput != "" {
			format, err := output.ParseFormat(testOutput)
			if err != nil {
				fatalf("%v", err)
			}
			if err := output.ExportTestSummary(summary, format, testOutputFile); err != nil {
				fatalf("exporting results: %v", err)
			}
			if testOutputFile == "" {
				exitOnFailure(summary)
				return
			}
			fmt.Printf("\nResults exported to: %s\n", testOutputFile)
		}

		displayResults(summary, verbose)
		exitOnFailure(summary)
	},
}

func displayResults(summary models.TestSummary, verbose bool) {
	fmt.Printf("\n%s\n", white("=== Test Results ==="))
	if summary.Contract != "" {
		fmt.Printf("Contract:    %s\n", summary.Contract)
	}
	fmt.Printf("Total Tests: %d\n", summary.TotalTests)
	fmt.Printf("Passed:      %s\n", green(summary.Passed))
	if summary.Failed > 0 {
		fmt.Printf("Failed:      %s\n", red(summary.Failed))
	} else {
		fmt.Printf("Failed:      %d\n", summary.Failed)
	}
	fmt.Println()

	for _, result := range summary.Results {
		if !verbose && result.Passed {
			continue
		}

		status := green("✓ PASS")
		if !result.Passed {
			status = red("✗ FAIL")
		}
		fmt.Printf("%s %s %s\n", status, result.Method, result.Operation)
		if result.URI != "" {
			fmt.Printf("  URI:           %s\n", result.URI)
		}
		fmt.Printf("  Status Code:   %d\n", result.StatusCode)
		fmt.Printf("  Response Time: %v\n", result.ResponseTime)

		if result.Error != "" {
			fmt.Printf("  Error: %s\n", result.Error)
		}
		if verbose && len(result.Problems) > 0 {
			fmt.Printf("  Problems:\n")
			for _, p := range result.Problems {
				fmt.Printf("    - %s: %s\n", p.Field, p.Message)
			}
		}
		fmt.Println()
	}
}

func exitOnFailure(summary models.TestSummary) {
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringVar(&filter, "filter", "", "Filter operations by name or path")
	testCmd.Flags().DurationVar(&testTimeout, "timeout", 30*time.Second, "Per-call timeout")
	testCmd.Flags().StringVarP(&testOutput, "output", "o", "", "Output format: json, csv")
	testCmd.Flags().StringVar(&testOutputFile, "output-file", "", "Write output to file (default: stdout)")
	testCmd.Flags().StringVar(&testMetricsFile, "metrics-file", "", "Write Prometheus metrics to file after the run")
}
