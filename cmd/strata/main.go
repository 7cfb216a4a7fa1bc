// Package main provides the CLI entry point for strata.
package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/strata-install/strata/internal/xdg"
	"github.com/strata-install/strata/pkg/logger"
)

var (
	debugMode  bool
	traceMode  bool
	configPath string
	logToFile  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Pluggable Arch Linux installer",
	Long: `strata installs an Arch Linux system from a declarative configuration.
Plugins can hook into every installation step to reshape its inputs.`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&traceMode, "trace", false, "Enable trace logging")
	rootCmd.PersistentFlags().StringVarP(
		&configPath,
		"config",
		"c",
		"",
		"Path to configuration file (default: .strata/config.toml)",
	)
	rootCmd.PersistentFlags().BoolVar(
		&logToFile,
		"log-to-file",
		false,
		"Write logs to the state directory instead of stderr",
	)

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(pluginsCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger from the global flags.
//
//nolint:ireturn // callers depend on the interface
func newLogger() (logger.Logger, error) {
	if logToFile {
		log, err := logger.NewFileLogger(xdg.LogFile(), debugMode, traceMode)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open log file")
		}

		return log, nil
	}

	return logger.NewWriterLogger(os.Stderr, debugMode, traceMode), nil
}
