package models

import "time"

// TestResult is the outcome of calling one contract operation
type TestResult struct {
	Operation string `json:"operation"`
	Method    string `json:"method"`
	URI       string `json:"uri,omitempty"`

	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`

	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time_ns"`

	Problems []ResponseProblem `json:"problems,omitempty"`
}

// ResponseProblem is a mismatch between a response and what the contract declares
type ResponseProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// TestSummary aggregates the results of a contract test run
type TestSummary struct {
	Contract   string       `json:"contract"`
	TotalTests int          `json:"total_tests"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Results    []TestResult `json:"results"`
}

// AddResult adds a test result to the summary
func (s *TestSummary) AddResult(result TestResult) {
	s.TotalTests++
	s.Results = append(s.Results, result)
	if result.Passed {
		s.Passed++
	} else {
		s.Failed++
	}
}
