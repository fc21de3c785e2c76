// Command netlist-facts dumps a loaded Verilog design as flat fact tables,
// optionally with the library primitives resolution pulled in and a delta
// against a previous snapshot.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/bsv-synth/internal/config"
	"github.com/robert-at-pretension-io/bsv-synth/internal/facts"
	"github.com/robert-at-pretension-io/bsv-synth/internal/frontend"
	"github.com/robert-at-pretension-io/bsv-synth/internal/validator"
)

var (
	output    string
	deltaFrom string
	deltaOut  string
	cfgFile   string
	top       string
	noResolve bool
	externs   []string

	rootCmd = &cobra.Command{
		Use:   "netlist-facts [flags] <netlist|dir|glob>...",
		Short: "Dump a Verilog design as fact tables",
		Long: `Read Verilog netlists, resolve the Bluespec library primitives they use
and print files, modules, cells and primitives as JSON tables. With --top
only the modules reachable from the top module are kept.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "write facts JSON to file (default: stdout)")
	rootCmd.Flags().StringVar(&deltaFrom, "delta-from", "", "previous facts JSON to compute delta from")
	rootCmd.Flags().StringVar(&deltaOut, "delta-out", "", "write delta JSON to file (requires --delta-from)")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file")
	rootCmd.Flags().StringVar(&top, "top", "", "keep only modules reachable from this module")
	rootCmd.Flags().BoolVar(&noResolve, "no-resolve", false, "do not load library primitives")
	rootCmd.Flags().StringArrayVar(&externs, "extern", nil, "module allowed to stay undefined (repeatable)")
	rootCmd.MarkFlagsRequiredTogether("delta-from", "delta-out")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt)); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load("")
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if noResolve {
		cfg.AutoloadPrimitives = false
	}
	for _, ext := range externs {
		if !cfg.IsExternal(ext) {
			cfg.Externals = append(cfg.Externals, ext)
		}
	}
	cfg.PolicyDir = ""
	cfg.MetricsFile = ""

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "netlist-facts", Level: log.WarnLevel})

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	paths, err := config.ExpandNetlists(wd, args)
	if err != nil {
		return err
	}

	res, err := frontend.New(frontend.Options{Config: cfg, Logger: logger}).Resolve(cmd.Context(), paths, top)
	if err != nil {
		return err
	}
	if top != "" && !res.Design.HasModule(top) {
		return fmt.Errorf("top module %s is not defined", top)
	}

	tables := facts.Build(res.Design, res.Resolution)
	if top != "" {
		tables = facts.FilterTablesByModules(tables, facts.Reachable(tables, top))
	}
	if err := validate(validator.NewFactsValidator, tables); err != nil {
		return err
	}

	if output != "" {
		if err := writeJSON(output, tables); err != nil {
			return fmt.Errorf("writing facts: %w", err)
		}
	} else {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(tables); err != nil {
			return fmt.Errorf("encoding facts: %w", err)
		}
	}

	if deltaFrom == "" {
		return nil
	}
	prev, err := readTables(deltaFrom)
	if err != nil {
		return fmt.Errorf("reading delta-from: %w", err)
	}
	delta := facts.ComputeDelta(prev, tables)
	if err := validate(validator.NewFactsDeltaValidator, delta); err != nil {
		return err
	}
	if err := writeJSON(deltaOut, delta); err != nil {
		return fmt.Errorf("writing delta: %w", err)
	}
	return nil
}

func validate(newValidator func() (*validator.Validator, error), data interface{}) error {
	v, err := newValidator()
	if err != nil {
		return err
	}
	if err := v.Validate(data); err != nil {
		return errors.Join(fmt.Errorf("%s contract", v.Definition()), err)
	}
	return nil
}

func readTables(path string) (facts.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return facts.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	var tables facts.Tables
	if err := json.NewDecoder(f).Decode(&tables); err != nil {
		return facts.Tables{}, err
	}
	return tables, nil
}

func writeJSON(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
