/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool

	logger = zerolog.Nop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "restbind",
	Short: "Declarative HTTP API bindings from contract documents",
	Long: `restbind turns a declared contract surface into HTTP requests.

A contract is either a restbind contract document (YAML or JSON) or an
OpenAPI 3 specification. restbind validates the contract, composes requests
from it and can smoke-test or benchmark every operation it declares.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(viper.GetString("log-level"))
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func Execute() {
	cobra.OnInitialize(initConfig)
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// initConfig reads restbind.{toml,yaml,json} from the working directory or
// --config, and RESTBIND_* environment variables. A missing file is fine.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("restbind")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("RESTBIND")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen, NoColor: !isTTY}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./restbind.toml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("server", "", "Override the base address of the contract")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed output")

	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
}
