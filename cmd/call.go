/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httputil"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/moamenhredeen/restbind/internal/descriptor"
	"github.com/moamenhredeen/restbind/internal/engine"
	"github.com/moamenhredeen/restbind/internal/generator"
)

var (
	callArgs           []string
	callProps          []string
	callSample         bool
	callAllowAnyStatus bool
	callDryRun         bool
	callTimeout        time.Duration
)

// callCmd represents the call command
var callCmd = &cobra.Command{
	Use:   "call [contract-file] [operation]",
	Short: "Compose and send one operation",
	Long: `Compose the request for one contract operation and send it.

Argument and property values are YAML scalars or flow collections, so
--arg id=7 passes a number and --arg tags=[a,b] a list.

Examples:
  restbind call pets.yaml GetPet --arg id=7
  restbind call pets.yaml ListPets --prop Tenant=acme --arg 'filter={color: red}'
  restbind call pet-store.yaml createPet --sample --dry-run`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := loadContract(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		opName := args[1]
		op, ok := c.Surface.Operation(opName)
		if !ok {
			fatalf("operation %s not found in %s", opName, c.Surface.Name)
		}

		values, err := parseAssignments(callArgs)
		if err != nil {
			fatalf("%v", err)
		}
		props, err := parseAssignments(callProps)
		if err != nil {
			fatalf("%v", err)
		}
		if callSample {
			sample := generator.NewGenerator().SampleArgs(op, c.Examples[opName], c.Schemas[opName])
			for name, v := range sample {
				if _, set := values[name]; !set {
					values[name] = v
				}
			}
		}

		e, err := newEngine(callTimeout, true, 1)
		if err != nil {
			fatalf("%v", err)
		}

		b, err := descriptor.New(c.Surface)
		if err != nil {
			fatalf("contract is not usable: %v", err)
		}
		client := descriptor.NewClient(b, e)
		defer client.Close()
		for _, initial := range []map[string]any{c.Properties, props} {
			for name, v := range initial {
				if err := client.SetProperty(name, v); err != nil {
					fatalf("setting property %s: %v", name, err)
				}
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()

		if op.Dispose {
			if _, err := client.Call(ctx, opName, nil); err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("%s transport closed\n", green("✓"))
			return
		}

		d, err := client.Describe(ctx, opName, values)
		if err != nil {
			fatalf("%v", err)
		}
		if callAllowAnyStatus {
			d.AllowAnyStatus = true
		}

		if callDryRun {
			req, err := e.Compose(d)
			if err != nil {
				fatalf("%v", err)
			}
			dump, err := httputil.DumpRequestOut(req, true)
			if err != nil {
				fatalf("%v", err)
			}
			os.Stdout.Write(dump)
			fmt.Println()
			return
		}

		start := time.Now()
		resp, err := e.Send(d)
		elapsed := time.Since(start)
		if err != nil {
			var apiErr *engine.APIError
			if errors.As(err, &apiErr) {
				fmt.Printf("%s %s (%v)\n", red("✗"), apiErr.Status, elapsed.Round(time.Millisecond))
				printHeaders(apiErr.Header)
				if apiErr.RawBody != "" {
					fmt.Println(apiErr.RawBody)
				}
				os.Exit(1)
			}
			fatalf("%v", err)
		}
		defer resp.Body.Close()

		status := green("✓")
		if resp.StatusCode >= 400 {
			status = yellow("●")
		}
		fmt.Printf("%s %s (%v)\n", status, resp.Status, elapsed.Round(time.Millisecond))
		printHeaders(resp.Header)
		if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
			fatalf("reading response: %v", err)
		}
		fmt.Println()
	},
}

// parseAssignments decodes name=value pairs, reading each value as YAML
func parseAssignments(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected name=value", pair)
		}

		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", name, err)
		}
		if v == nil && raw != "" && raw != "null" && raw != "~" {
			v = raw
		}
		values[name] = v
	}
	return values, nil
}

func printHeaders(h map[string][]string) {
	if !verbose {
		return
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range h[name] {
			fmt.Printf("%s: %s\n", cyan(name), v)
		}
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringArrayVar(&callArgs, "arg", nil, "Operation argument as name=value (repeatable)")
	callCmd.Flags().StringArrayVar(&callProps, "prop", nil, "Property value as name=value (repeatable)")
	callCmd.Flags().BoolVar(&callSample, "sample", false, "Fill missing arguments with examples or generated values")
	callCmd.Flags().BoolVar(&callAllowAnyStatus, "allow-any-status", false, "Return every response instead of failing on error statuses")
	callCmd.Flags().BoolVar(&callDryRun, "dry-run", false, "Print the composed request without sending it")
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 30*time.Second, "Call timeout")
}
