package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/bsv-synth/internal/config"
	"github.com/robert-at-pretension-io/bsv-synth/internal/frontend"
	"github.com/robert-at-pretension-io/bsv-synth/internal/metrics"
	"github.com/robert-at-pretension-io/bsv-synth/internal/validator"
)

// runFlags are shared by read and resolve.
type runFlags struct {
	top         string
	externals   []string
	noAutoload  bool
	jsonOut     bool
	policyDir   string
	metricsFile string
	timingFile  string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.top, "top", "", "top-level module")
	cmd.Flags().StringArrayVar(&f.externals, "extern", nil, "module allowed to stay undefined (repeatable)")
	cmd.Flags().BoolVar(&f.noAutoload, "no-autoload-bsv-prims", false, "do not load Bluespec library primitives")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print the run report as JSON")
	cmd.Flags().StringVar(&f.policyDir, "policy-dir", "", "directory of .rego design policies")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "write run metrics in text exposition format")
	cmd.Flags().StringVar(&f.timingFile, "timing-file", "", "append per-stage timings as JSON lines")
}

// apply overlays command-line settings on cfg.
func (f *runFlags) apply(cfg *config.Config) {
	for _, ext := range f.externals {
		if !cfg.IsExternal(ext) {
			cfg.Externals = append(cfg.Externals, ext)
		}
	}
	if f.noAutoload {
		cfg.AutoloadPrimitives = false
	}
	if f.policyDir != "" {
		cfg.PolicyDir = f.policyDir
	}
	if f.metricsFile != "" {
		cfg.MetricsFile = f.metricsFile
	}
	if f.timingFile != "" {
		cfg.TimingFile = f.timingFile
	}
}

// execute builds the frontend, runs fn and reports its result.
func execute(cmd *cobra.Command, flags *runFlags, setup func(*config.Config), fn func(*frontend.Frontend) (*frontend.Result, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags.apply(cfg)
	if setup != nil {
		setup(cfg)
	}
	logger := newLogger(cfg)
	if cfg.Source != "" {
		logger.Debug("loaded config", "file", cfg.Source)
	}

	rec := metrics.New(cfg.TimingFile)
	fe := frontend.New(frontend.Options{
		Config:  cfg,
		Logger:  logger,
		Metrics: rec,
	})

	res, runErr := fn(fe)
	if cerr := rec.Close(); cerr != nil {
		logger.Warn("timing file not written", "err", cerr)
	}

	if flags.jsonOut {
		if err := writeReport(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else {
		writeSummary(cmd.OutOrStdout(), res)
	}

	if runErr != nil {
		logger.Error("run failed", "kind", frontend.FailureKind(runErr), "err", runErr)
		return &ExitError{Code: 1, Err: runErr}
	}
	return nil
}

func writeReport(w io.Writer, res *frontend.Result) error {
	v, err := validator.NewReportValidator()
	if err != nil {
		return fmt.Errorf("init report validator: %w", err)
	}
	if err := v.Validate(res); err != nil {
		return fmt.Errorf("run report: %w", err)
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeSummary(w io.Writer, res *frontend.Result) {
	if res.Resolution != nil && !res.Resolution.Disabled {
		for _, p := range res.Resolution.Loaded {
			fmt.Fprintf(w, "loaded %s from %s (pass %d)\n", p.Name, p.Path, p.Pass)
		}
		for _, ref := range res.Resolution.Externals {
			fmt.Fprintf(w, "external %s referenced in %s\n", ref.Name, ref.Module)
		}
	}
	for _, v := range res.Violations {
		fmt.Fprintf(w, "%s: [%s] %s\n", v.Severity, v.Rule, v.Message)
	}
	status := "ok"
	if !res.OK {
		status = "failed"
	}
	fmt.Fprintf(w, "%s: %d module(s) from %d netlist(s)\n", status, len(res.Modules), len(res.Netlists))
}
