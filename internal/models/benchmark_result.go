package models

import "time"

// Latency holds timing statistics over successful calls
type Latency struct {
	Min time.Duration `json:"min_ns"`
	Max time.Duration `json:"max_ns"`
	Avg time.Duration `json:"avg_ns"`
	P50 time.Duration `json:"p50_ns,omitempty"`
	P90 time.Duration `json:"p90_ns,omitempty"`
	P99 time.Duration `json:"p99_ns,omitempty"`
}

// BenchmarkResult holds the load-run statistics for one contract operation
type BenchmarkResult struct {
	Operation string `json:"operation"`
	Method    string `json:"method"`
	Path      string `json:"path"`

	Iterations  int `json:"iterations"`
	Concurrency int `json:"concurrency"`
	WarmupRuns  int `json:"warmup_runs"`

	Latency Latency `json:"latency"`

	RequestsPerSec float64       `json:"requests_per_sec"`
	TotalDuration  time.Duration `json:"total_duration_ns"`

	SuccessCount int     `json:"success_count"`
	ErrorCount   int     `json:"error_count"`
	ErrorRate    float64 `json:"error_rate"`

	// StatusCodes counts responses per HTTP status, including API errors
	StatusCodes map[int]int `json:"status_codes"`

	SampleErrors []string `json:"sample_errors,omitempty"`
}

// BenchmarkSummary aggregates the results of a benchmark run
type BenchmarkSummary struct {
	Contract       string `json:"contract"`
	TotalEndpoints int    `json:"total_operations"`
	Iterations     int    `json:"iterations_per_operation"`
	Concurrency    int    `json:"concurrency"`
	WarmupRuns     int    `json:"warmup_runs"`

	Latency Latency `json:"latency"`

	TotalRequests     int           `json:"total_requests"`
	TotalSuccesses    int           `json:"total_successes"`
	TotalErrors       int           `json:"total_errors"`
	OverallErrorRate  float64       `json:"overall_error_rate"`
	TotalDuration     time.Duration `json:"total_duration_ns"`
	OverallReqsPerSec float64       `json:"overall_requests_per_sec"`

	Results []BenchmarkResult `json:"results"`
}

// AddResult appends a result and refreshes the aggregates
func (s *BenchmarkSummary) AddResult(result BenchmarkResult) {
	s.Results = append(s.Results, result)
	s.TotalEndpoints = len(s.Results)
	s.TotalRequests += result.Iterations
	s.TotalSuccesses += result.SuccessCount
	s.TotalErrors += result.ErrorCount

	if result.SuccessCount > 0 {
		if s.Latency.Min == 0 || result.Latency.Min < s.Latency.Min {
			s.Latency.Min = result.Latency.Min
		}
		if result.Latency.Max > s.Latency.Max {
			s.Latency.Max = result.Latency.Max
		}
	}

	if s.TotalRequests > 0 {
		s.OverallErrorRate = float64(s.TotalErrors) / float64(s.TotalRequests) * 100
	}

	// weighted by successful calls, the only ones that contribute latency
	var weighted time.Duration
	var weight int
	for _, r := range s.Results {
		weighted += r.Latency.Avg * time.Duration(r.SuccessCount)
		weight += r.SuccessCount
	}
	if weight > 0 {
		s.Latency.Avg = weighted / time.Duration(weight)
	}
}

// Finalize records the wall-clock duration of the run
func (s *BenchmarkSummary) Finalize(totalDuration time.Duration) {
	s.TotalDuration = totalDuration
	if totalDuration > 0 {
		s.OverallReqsPerSec = float64(s.TotalRequests) / totalDuration.Seconds()
	}
}
