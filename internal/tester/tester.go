// Package tester smoke-tests every operation of a contract through the
// request composition engine.
package tester

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moamenhredeen/restbind/internal/descriptor"
	"github.com/moamenhredeen/restbind/internal/engine"
	"github.com/moamenhredeen/restbind/internal/generator"
	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/parser"
)

// EventType represents the type of test event
type EventType int

const (
	// EventStarting indicates a test is about to start
	EventStarting EventType = iota
	// EventCompleted indicates a test has completed
	EventCompleted
)

// TestEvent represents an event during test execution
type TestEvent struct {
	Type      EventType
	Operation *models.Operation
	Result    *models.TestResult // nil for Starting events
	Index     int                // current test index (0-based)
	Total     int                // total number of tests
}

// OnTestEvent is a callback function for test events
type OnTestEvent func(event TestEvent)

// Tester calls contract operations with sample arguments and checks the responses
type Tester struct {
	engine    *engine.Engine
	client    *descriptor.Client
	contract  *parser.Contract
	generator *generator.Generator
	checker   *Checker
	timeout   time.Duration
	track     func() func()
}

// Option configures a Tester
type Option func(*Tester)

// WithTimeout bounds each operation call
func WithTimeout(d time.Duration) Option {
	return func(t *Tester) { t.timeout = d }
}

// WithGenerator replaces the sample argument generator
func WithGenerator(g *generator.Generator) Option {
	return func(t *Tester) { t.generator = g }
}

// WithTracker is called around every request, e.g. to count requests in flight
func WithTracker(track func() func()) Option {
	return func(t *Tester) { t.track = track }
}

// NewTester validates the contract surface and prepares a client for it.
// Initial property values of the contract are applied.
func NewTester(e *engine.Engine, c *parser.Contract, opts ...Option) (*Tester, error) {
	b, err := descriptor.New(c.Surface)
	if err != nil {
		return nil, err
	}
	client := descriptor.NewClient(b, e)
	for name, v := range c.Properties {
		if err := client.SetProperty(name, v); err != nil {
			return nil, fmt.Errorf("failed to set property %s: %w", name, err)
		}
	}

	t := &Tester{
		engine:    e,
		client:    client,
		contract:  c,
		generator: generator.NewGenerator(),
		checker:   NewChecker(),
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Client returns the client used to call operations
func (t *Tester) Client() *descriptor.Client {
	return t.client
}

// Operations returns every operation that sends a request
func (t *Tester) Operations() []*models.Operation {
	var ops []*models.Operation
	for _, op := range t.contract.Surface.AllOperations() {
		if !op.Dispose {
			ops = append(ops, op)
		}
	}
	return ops
}

// TestOperation calls a single operation. A call passes when its status
// satisfies the operation's status policy and the response matches what the
// contract declares.
func (t *Tester) TestOperation(ctx context.Context, op *models.Operation) models.TestResult {
	result := models.TestResult{Operation: op.Name}
	if req, ok := op.Request(); ok {
		result.Method = req.Method
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	args := t.generator.SampleArgs(op, t.contract.Examples[op.Name], t.contract.Schemas[op.Name])
	d, err := t.client.Describe(ctx, op.Name, args)
	if err != nil {
		result.Error = fmt.Sprintf("failed to build request: %v", err)
		return result
	}

	if t.track != nil {
		defer t.track()()
	}
	start := time.Now()
	resp, err := engine.Fetch[any](t.engine, d)
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result
	}

	result.StatusCode = resp.StatusCode
	if resp.Request != nil {
		result.URI = resp.Request.URL.String()
	}
	result.Problems = t.checker.Check(resp, t.contract.Responses[op.Name])

	switch {
	case resp.Error != nil:
		result.Error = resp.Error.Error()
	case len(result.Problems) > 0:
		msgs := make([]string, 0, len(result.Problems))
		for _, p := range result.Problems {
			msgs = append(msgs, p.Field+": "+p.Message)
		}
		result.Error = "response check failed: " + strings.Join(msgs, "; ")
	default:
		result.Passed = true
	}
	return result
}

// TestOperations tests multiple operations with optional live event reporting
func (t *Tester) TestOperations(ctx context.Context, operations []*models.Operation, onEvent OnTestEvent) models.TestSummary {
	summary := models.TestSummary{
		Contract: t.contract.Surface.Name,
		Results:  make([]models.TestResult, 0, len(operations)),
	}
	total := len(operations)

	for i, op := range operations {
		if onEvent != nil {
			onEvent(TestEvent{Type: EventStarting, Operation: op, Index: i, Total: total})
		}

		result := t.TestOperation(ctx, op)
		summary.AddResult(result)

		if onEvent != nil {
			onEvent(TestEvent{Type: EventCompleted, Operation: op, Result: &result, Index: i, Total: total})
		}
	}

	return summary
}
