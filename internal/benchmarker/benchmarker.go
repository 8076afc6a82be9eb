// Package benchmarker load-runs contract operations through the request
// composition engine and collects latency statistics.
package benchmarker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/moamenhredeen/restbind/internal/descriptor"
	"github.com/moamenhredeen/restbind/internal/engine"
	"github.com/moamenhredeen/restbind/internal/generator"
	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/parser"
)

// EventType represents the type of benchmark event
type EventType int

const (
	// EventWarmupStarting indicates warmup phase is starting for an operation
	EventWarmupStarting EventType = iota
	// EventWarmupProgress indicates warmup progress
	EventWarmupProgress
	// EventWarmupCompleted indicates warmup phase completed
	EventWarmupCompleted
	// EventBenchmarkStarting indicates benchmark is starting for an operation
	EventBenchmarkStarting
	// EventBenchmarkProgress indicates benchmark progress (periodic updates)
	EventBenchmarkProgress
	// EventBenchmarkCompleted indicates benchmark completed for an operation
	EventBenchmarkCompleted
)

// BenchmarkEvent represents an event during benchmark execution
type BenchmarkEvent struct {
	Type      EventType
	Operation *models.Operation
	Result    *models.BenchmarkResult // nil until completed
	Index     int                     // current operation index (0-based)
	Total     int                     // total number of operations
	Progress  int                     // current iteration count
	MaxIter   int                     // max iterations for this phase

	// Running stats (for progress events)
	RunningAvg    time.Duration
	RunningReqSec float64
	ErrorCount    int
}

// OnBenchmarkEvent is a callback function for benchmark events
type OnBenchmarkEvent func(event BenchmarkEvent)

// Config holds benchmark configuration. Connection handling is configured
// on the transport.
type Config struct {
	Iterations  int           // Number of requests per operation
	Concurrency int           // Number of concurrent workers
	WarmupRuns  int           // Number of warmup iterations (discarded)
	RateLimit   float64       // Max requests per second (0 = unlimited)
	Timeout     time.Duration // Per-request timeout
}

// DefaultConfig returns default benchmark configuration
func DefaultConfig() Config {
	return Config{
		Iterations:  100,
		Concurrency: 1,
		WarmupRuns:  5,
		RateLimit:   0,
		Timeout:     30 * time.Second,
	}
}

// Benchmarker sends every request of a run through one engine
type Benchmarker struct {
	config    Config
	engine    *engine.Engine
	client    *descriptor.Client
	contract  *parser.Contract
	generator *generator.Generator
	limiter   *rate.Limiter
	track     func() func()
}

// Option configures a Benchmarker
type Option func(*Benchmarker)

// WithTracker is called around every request, e.g. to count requests in flight
func WithTracker(track func() func()) Option {
	return func(b *Benchmarker) { b.track = track }
}

// WithGenerator replaces the sample argument generator
func WithGenerator(g *generator.Generator) Option {
	return func(b *Benchmarker) { b.generator = g }
}

// NewBenchmarker validates the contract surface and prepares a client for it
func NewBenchmarker(config Config, e *engine.Engine, c *parser.Contract, opts ...Option) (*Benchmarker, error) {
	if config.Iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive, got %d", config.Iterations)
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}

	builder, err := descriptor.New(c.Surface)
	if err != nil {
		return nil, err
	}
	client := descriptor.NewClient(builder, e)
	for name, v := range c.Properties {
		if err := client.SetProperty(name, v); err != nil {
			return nil, fmt.Errorf("failed to set property %s: %w", name, err)
		}
	}

	// Create rate limiter if configured
	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), max(1, int(config.RateLimit)))
	}

	b := &Benchmarker{
		config:    config,
		engine:    e,
		client:    client,
		contract:  c,
		generator: generator.NewGenerator(),
		limiter:   limiter,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// requestResult holds the result of a single request
type requestResult struct {
	Duration   time.Duration
	StatusCode int
	Error      string
}

// BenchmarkOperation benchmarks a single contract operation. Arguments are
// sampled once so that every request of the run is the same call.
func (b *Benchmarker) BenchmarkOperation(
	ctx context.Context,
	op *models.Operation,
	onEvent OnBenchmarkEvent,
	index, total int,
) (models.BenchmarkResult, error) {
	result := models.BenchmarkResult{
		Operation:   op.Name,
		Iterations:  b.config.Iterations,
		Concurrency: b.config.Concurrency,
		WarmupRuns:  b.config.WarmupRuns,
		StatusCodes: make(map[int]int),
	}
	if req, ok := op.Request(); ok {
		result.Method = req.Method
		result.Path = req.Path
	}

	args := b.generator.SampleArgs(op, b.contract.Examples[op.Name], b.contract.Schemas[op.Name])

	// Describe once up front so that binding errors fail the operation
	if _, err := b.client.Describe(ctx, op.Name, args); err != nil {
		return result, fmt.Errorf("failed to build request: %w", err)
	}

	if b.config.WarmupRuns > 0 && onEvent != nil {
		onEvent(BenchmarkEvent{
			Type:      EventWarmupStarting,
			Operation: op,
			Index:     index,
			Total:     total,
			MaxIter:   b.config.WarmupRuns,
		})
	}

	// warmup is single-threaded and not measured
	for i := 0; i < b.config.WarmupRuns; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		b.executeRequest(ctx, op, args)

		if onEvent != nil && (i+1)%max(1, b.config.WarmupRuns/5) == 0 {
			onEvent(BenchmarkEvent{
				Type:      EventWarmupProgress,
				Operation: op,
				Index:     index,
				Total:     total,
				Progress:  i + 1,
				MaxIter:   b.config.WarmupRuns,
			})
		}
	}

	if b.config.WarmupRuns > 0 && onEvent != nil {
		onEvent(BenchmarkEvent{
			Type:      EventWarmupCompleted,
			Operation: op,
			Index:     index,
			Total:     total,
		})
	}

	if onEvent != nil {
		onEvent(BenchmarkEvent{
			Type:      EventBenchmarkStarting,
			Operation: op,
			Index:     index,
			Total:     total,
			MaxIter:   b.config.Iterations,
		})
	}

	startTime := time.Now()
	results := b.runConcurrentBenchmark(ctx, op, args, onEvent, index, total)
	result.TotalDuration = time.Since(startTime)

	result = b.processResults(result, results)

	if onEvent != nil {
		onEvent(BenchmarkEvent{
			Type:      EventBenchmarkCompleted,
			Operation: op,
			Result:    &result,
			Index:     index,
			Total:     total,
		})
	}

	return result, nil
}

// runConcurrentBenchmark executes the benchmark with worker pool
func (b *Benchmarker) runConcurrentBenchmark(
	ctx context.Context,
	op *models.Operation,
	args map[string]any,
	onEvent OnBenchmarkEvent,
	index, total int,
) []requestResult {
	results := make([]requestResult, b.config.Iterations)
	jobs := make(chan int, b.config.Iterations)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var completed int
	var totalDuration time.Duration
	var errorCount int
	start := time.Now()

	progressInterval := max(1, b.config.Iterations/20) // ~5% intervals

	for w := 0; w < b.config.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					results[i] = requestResult{Error: ctx.Err().Error()}
					continue
				}

				var res requestResult
				if b.limiter != nil {
					if err := b.limiter.Wait(ctx); err != nil {
						res.Error = fmt.Sprintf("rate limiter: %v", err)
					}
				}
				if res.Error == "" {
					res = b.executeRequest(ctx, op, args)
				}
				results[i] = res

				mu.Lock()
				completed++
				totalDuration += res.Duration
				if res.Error != "" {
					errorCount++
				}
				currentCompleted := completed
				currentTotalDuration := totalDuration
				currentErrorCount := errorCount
				mu.Unlock()

				if onEvent != nil && currentCompleted%progressInterval == 0 {
					reqsPerSec := 0.0
					if elapsed := time.Since(start).Seconds(); elapsed > 0 {
						reqsPerSec = float64(currentCompleted) / elapsed
					}

					onEvent(BenchmarkEvent{
						Type:          EventBenchmarkProgress,
						Operation:     op,
						Index:         index,
						Total:         total,
						Progress:      currentCompleted,
						MaxIter:       b.config.Iterations,
						RunningAvg:    currentTotalDuration / time.Duration(currentCompleted),
						RunningReqSec: reqsPerSec,
						ErrorCount:    currentErrorCount,
					})
				}
			}
		}()
	}

	for i := 0; i < b.config.Iterations; i++ {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// executeRequest builds a fresh descriptor and sends it. Non-success
// statuses count as errors but keep their status code.
func (b *Benchmarker) executeRequest(ctx context.Context, op *models.Operation, args map[string]any) requestResult {
	result := requestResult{}

	if b.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		defer cancel()
	}

	d, err := b.client.Describe(ctx, op.Name, args)
	if err != nil {
		result.Error = fmt.Sprintf("build request failed: %v", err)
		return result
	}

	if b.track != nil {
		defer b.track()()
	}
	startTime := time.Now()
	resp, err := b.engine.Send(d)
	if err != nil {
		result.Duration = time.Since(startTime)
		var apiErr *engine.APIError
		if errors.As(err, &apiErr) {
			result.StatusCode = apiErr.StatusCode
			result.Error = fmt.Sprintf("status %d", apiErr.StatusCode)
			return result
		}
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result
	}
	defer resp.Body.Close()

	// the body is part of the measured call
	_, err = io.Copy(io.Discard, resp.Body)
	result.Duration = time.Since(startTime)
	result.StatusCode = resp.StatusCode
	if err != nil {
		result.Error = fmt.Sprintf("reading response failed: %v", err)
	}
	return result
}

// processResults calculates statistics from raw results
func (b *Benchmarker) processResults(result models.BenchmarkResult, rawResults []requestResult) models.BenchmarkResult {
	if len(rawResults) == 0 {
		return result
	}

	var durations []time.Duration
	var totalDuration time.Duration
	errorSet := make(map[string]bool)

	for _, r := range rawResults {
		if r.Error != "" {
			result.ErrorCount++
			if len(result.SampleErrors) < 5 && !errorSet[r.Error] {
				result.SampleErrors = append(result.SampleErrors, r.Error)
				errorSet[r.Error] = true
			}
		} else {
			result.SuccessCount++
			durations = append(durations, r.Duration)
			totalDuration += r.Duration
		}

		if r.StatusCode > 0 {
			result.StatusCodes[r.StatusCode]++
		}
	}

	// only successful requests contribute latency
	if len(durations) > 0 {
		sort.Slice(durations, func(i, j int) bool {
			return durations[i] < durations[j]
		})

		result.Latency = models.Latency{
			Min: durations[0],
			Max: durations[len(durations)-1],
			Avg: totalDuration / time.Duration(len(durations)),
			P50: percentile(durations, 50),
			P90: percentile(durations, 90),
			P99: percentile(durations, 99),
		}
	}

	if result.TotalDuration > 0 {
		result.RequestsPerSec = float64(result.Iterations) / result.TotalDuration.Seconds()
	}
	if result.Iterations > 0 {
		result.ErrorRate = float64(result.ErrorCount) / float64(result.Iterations) * 100
	}

	return result
}

// percentile calculates the p-th percentile from sorted durations
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	index := float64(len(sorted)-1) * float64(p) / 100.0
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[lower]
	}

	// linear interpolation
	weight := index - float64(lower)
	return time.Duration(float64(sorted[lower])*(1-weight) + float64(sorted[upper])*weight)
}

// BenchmarkOperations benchmarks multiple operations with live event reporting
func (b *Benchmarker) BenchmarkOperations(
	ctx context.Context,
	operations []*models.Operation,
	onEvent OnBenchmarkEvent,
) models.BenchmarkSummary {
	summary := models.BenchmarkSummary{
		Contract:    b.contract.Surface.Name,
		Iterations:  b.config.Iterations,
		Concurrency: b.config.Concurrency,
		WarmupRuns:  b.config.WarmupRuns,
		Results:     make([]models.BenchmarkResult, 0, len(operations)),
	}

	startTime := time.Now()

	for i, op := range operations {
		if ctx.Err() != nil {
			break
		}

		result, err := b.BenchmarkOperation(ctx, op, onEvent, i, len(operations))
		if err != nil {
			result.SampleErrors = append(result.SampleErrors, err.Error())
			result.ErrorCount = result.Iterations
			result.ErrorRate = 100
		}
		summary.AddResult(result)
	}

	summary.Finalize(time.Since(startTime))
	return summary
}

// Operations returns every operation that sends a request
func (b *Benchmarker) Operations() []*models.Operation {
	var ops []*models.Operation
	for _, op := range b.contract.Surface.AllOperations() {
		if !op.Dispose {
			ops = append(ops, op)
		}
	}
	return ops
}
