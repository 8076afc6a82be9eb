/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/moamenhredeen/restbind/internal/parser"
)

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of contract documents",
	Long: `Print the JSON Schema that restbind contract documents follow.

Point your editor's YAML or JSON language server at it for completion:
  restbind schema > restbind.schema.json`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(parser.DocumentSchema()); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
