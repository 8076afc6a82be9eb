// Package output writes run summaries and contract diagnostics as JSON or CSV.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/moamenhredeen/restbind/internal/diagnostics"
	"github.com/moamenhredeen/restbind/internal/models"
)

// Format represents the output format type
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ExportTestSummary exports test results to filePath, or stdout when empty
func ExportTestSummary(summary models.TestSummary, format Format, filePath string) error {
	return export(filePath, func(w io.Writer) error {
		return WriteTestSummary(w, summary, format)
	})
}

// ExportBenchmarkSummary exports benchmark results to filePath, or stdout when empty
func ExportBenchmarkSummary(summary models.BenchmarkSummary, format Format, filePath string) error {
	return export(filePath, func(w io.Writer) error {
		return WriteBenchmarkSummary(w, summary, format)
	})
}

// ExportDiagnostics exports contract diagnostics to filePath, or stdout when empty
func ExportDiagnostics(ds diagnostics.Diagnostics, format Format, filePath string) error {
	return export(filePath, func(w io.Writer) error {
		return WriteDiagnostics(w, ds, format)
	})
}

// WriteTestSummary writes test results in the given format
func WriteTestSummary(w io.Writer, summary models.TestSummary, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, summary)
	case FormatCSV:
		return writeTestCSV(w, summary)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteBenchmarkSummary writes benchmark results in the given format
func WriteBenchmarkSummary(w io.Writer, summary models.BenchmarkSummary, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, summary)
	case FormatCSV:
		return writeBenchmarkCSV(w, summary)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteDiagnostics writes diagnostics in report order. An empty collection
// is written as an empty JSON array.
func WriteDiagnostics(w io.Writer, ds diagnostics.Diagnostics, format Format) error {
	switch format {
	case FormatJSON:
		if ds == nil {
			ds = diagnostics.Diagnostics{}
		}
		return writeJSON(w, []diagnostics.Diagnostic(ds))
	case FormatCSV:
		return writeDiagnosticsCSV(w, ds)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func export(filePath string, write func(io.Writer) error) error {
	if filePath == "" {
		return write(os.Stdout)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTestCSV(w io.Writer, summary models.TestSummary) error {
	cw := csv.NewWriter(w)

	header := []string{
		"operation", "method", "uri", "passed", "status_code",
		"response_time_ms", "error",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range summary.Results {
		row := []string{
			r.Operation,
			r.Method,
			r.URI,
			strconv.FormatBool(r.Passed),
			strconv.Itoa(r.StatusCode),
			millis(r.ResponseTime),
			r.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeBenchmarkCSV(w io.Writer, summary models.BenchmarkSummary) error {
	cw := csv.NewWriter(w)

	header := []string{
		"operation", "method", "path", "iterations", "concurrency",
		"min_ms", "max_ms", "avg_ms", "p50_ms", "p90_ms", "p99_ms",
		"requests_per_sec", "success_count", "error_count", "error_rate",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range summary.Results {
		row := []string{
			r.Operation,
			r.Method,
			r.Path,
			strconv.Itoa(r.Iterations),
			strconv.Itoa(r.Concurrency),
			millis(r.Latency.Min),
			millis(r.Latency.Max),
			millis(r.Latency.Avg),
			millis(r.Latency.P50),
			millis(r.Latency.P90),
			millis(r.Latency.P99),
			fmt.Sprintf("%.2f", r.RequestsPerSec),
			strconv.Itoa(r.SuccessCount),
			strconv.Itoa(r.ErrorCount),
			fmt.Sprintf("%.2f", r.ErrorRate),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeDiagnosticsCSV(w io.Writer, ds diagnostics.Diagnostics) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"code", "name", "severity", "location", "related", "message"}); err != nil {
		return err
	}

	for _, d := range ds {
		related := make([]string, len(d.Related))
		for i, loc := range d.Related {
			related[i] = loc.String()
		}
		row := []string{
			d.Code.String(),
			d.Code.Name(),
			d.Severity.String(),
			d.Location.String(),
			strings.Join(related, " "),
			d.Message,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func millis(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d.Microseconds())/1000)
}

// ParseFormat parses a string into a Format, returning error if invalid
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("invalid format '%s': must be 'json' or 'csv'", s)
	}
}
