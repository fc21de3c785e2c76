package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/bsv-synth/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"

	verbose bool
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "bsv-synth",
		Short: "Bluespec frontend with library primitive resolution",
		Long: `bsv-synth compiles a Bluespec package with bsc, reads the generated
Verilog and loads every Bluespec library primitive the design instantiates
from $BLUESPECDIR/Verilog.

Configuration is read from bsv_synth.{json,yaml,toml} in the working
directory, its dotfile variant, ~/.config/bsv_synth/config.json, or --config.

Examples:
  bsv-synth read --top mkTop Top.bsv
  bsv-synth resolve --top mkTop build/verilog
  bsv-synth primitives
  bsv-synth env`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: search bsv_synth.{json,yaml,toml})")

	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(primitivesCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(initCmd)
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// ExitError carries an exit code out of a RunE handler whose failure was
// already reported.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.LoadFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", cfgFile, err)
		}
		return cfg, nil
	}
	return config.Load("")
}

func newLogger(cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:     log.InfoLevel,
		Formatter: formatterFor(cfg.Log.Format),
	})
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func formatterFor(format string) log.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
