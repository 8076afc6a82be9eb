/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"

	"github.com/moamenhredeen/restbind/internal/engine"
	"github.com/moamenhredeen/restbind/internal/models"
	"github.com/moamenhredeen/restbind/internal/parser"
	"github.com/moamenhredeen/restbind/internal/transport"
)

var (
	isTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color helpers
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	white  = color.New(color.FgWhite, color.Bold).SprintFunc()
)

// loadContract loads a contract file and applies the --server override
func loadContract(path string) (*parser.Contract, error) {
	c, err := parser.Load(path)
	if err != nil {
		return nil, err
	}
	c.SetServer(viper.GetString("server"))
	return c, nil
}

// newEngine builds the HTTP transport from RESTBIND_* variables and wraps it
// in an engine.
func newEngine(timeout time.Duration, keepAlive bool, concurrency int, opts ...engine.Option) (*engine.Engine, error) {
	cfg, err := transport.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	if !keepAlive {
		cfg.DisableKeepAlive = true
	}
	if concurrency > cfg.MaxIdleConnsPerHost {
		cfg.MaxIdleConnsPerHost = concurrency
	}

	t, err := transport.New(cfg, transport.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	opts = append([]engine.Option{engine.WithLogger(logger)}, opts...)
	return engine.New(t, opts...), nil
}

// filterOperations keeps the operations whose name or path contains filterStr
func filterOperations(operations []*models.Operation, filterStr string) []*models.Operation {
	if filterStr == "" {
		return operations
	}

	var filtered []*models.Operation
	for _, op := range operations {
		req, _ := op.Request()
		if strings.Contains(op.Name, filterStr) || strings.Contains(req.Path, filterStr) {
			filtered = append(filtered, op)
		}
	}
	return filtered
}

// describeOperation renders "METHOD path" for progress output
func describeOperation(op *models.Operation) string {
	req, ok := op.Request()
	if !ok {
		return op.Name
	}
	if req.Path == "" {
		return fmt.Sprintf("%s %s", req.Method, op.Name)
	}
	return fmt.Sprintf("%s %s", req.Method, req.Path)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
