/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/moamenhredeen/restbind/internal/diagnostics"
	"github.com/moamenhredeen/restbind/internal/output"
	"github.com/moamenhredeen/restbind/internal/parser"
	"github.com/moamenhredeen/restbind/internal/validator"
)

var (
	validateOutput string
	validateWatch  bool
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [contract-file]",
	Short: "Check a contract for consistency",
	Long: `Load a contract and report every diagnostic the validator raises.

The command exits with status 1 when the contract has error diagnostics.
With --watch the contract is validated again whenever the file changes.

Examples:
  restbind validate pets.yaml
  restbind validate pets.yaml -o json
  restbind validate pets.yaml --watch`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var format output.Format
		if validateOutput != "" {
			f, err := output.ParseFormat(validateOutput)
			if err != nil {
				fatalf("%v", err)
			}
			format = f
		}

		if !validateWatch {
			if !validateFile(args[0], format) {
				os.Exit(1)
			}
			return
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := watchContract(ctx, args[0], func() { validateFile(args[0], format) }); err != nil {
			fatalf("%v", err)
		}
	},
}

// validateFile prints the diagnostics of one contract file and reports
// whether the contract is usable
func validateFile(path string, format output.Format) bool {
	c, err := parser.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("✗"), err)
		return false
	}

	result := validator.Validate(c.Surface)
	logger.Debug().
		Str("contract", c.Surface.Name).
		Int("diagnostics", len(result.Diagnostics)).
		Msg("contract validated")

	if format != "" {
		if err := output.ExportDiagnostics(result.Diagnostics, format, ""); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting diagnostics: %v\n", err)
			return false
		}
		return result.Usable()
	}

	displayDiagnostics(c.Surface.Name, result.Diagnostics)
	return result.Usable()
}

func displayDiagnostics(name string, ds diagnostics.Diagnostics) {
	errs := len(ds.Filter(diagnostics.Error))
	warnings := len(ds.Filter(diagnostics.Warning))

	for _, d := range ds {
		severity := yellow(d.Severity)
		if d.Severity == diagnostics.Error {
			severity = red(d.Severity)
		}
		fmt.Printf("%s %s %s: %s\n", cyan(d.Code), severity, d.Location, d.Message)
		if verbose {
			fmt.Printf("    %s\n", d.Code.Name())
			for _, loc := range d.Related {
				fmt.Printf("    see %s\n", loc)
			}
		}
	}

	if errs == 0 {
		fmt.Printf("%s %s is usable (%d warnings)\n", green("✓"), white(name), warnings)
		return
	}
	fmt.Printf("%s %s has %d errors and %d warnings\n", red("✗"), white(name), errs, warnings)
}

// watchContract runs onChange once and again after every write to path.
// The parent directory is watched since editors often replace files.
func watchContract(ctx context.Context, path string, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	onChange()
	fmt.Printf("\nWatching %s for changes...\n", path)

	// editors emit bursts of events for one save
	const settle = 100 * time.Millisecond
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				logger.Debug().Str("event", event.Op.String()).Msg("contract changed")
				pending = time.After(settle)
			}
		case <-pending:
			pending = nil
			fmt.Printf("\n%s %s\n", white("==="), time.Now().Format(time.TimeOnly))
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logger.Warn().Err(err).Msg("watch events dropped")
				continue
			}
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateOutput, "output", "o", "", "Output format: json, csv")
	validateCmd.Flags().BoolVarP(&validateWatch, "watch", "w", false, "Validate again whenever the contract changes")
}
