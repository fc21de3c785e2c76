package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/bsv-synth/internal/config"
	"github.com/robert-at-pretension-io/bsv-synth/internal/frontend"
)

var (
	resolveFlags runFlags

	resolveCmd = &cobra.Command{
		Use:   "resolve <netlist|dir|glob>...",
		Short: "Load existing Verilog netlists and resolve library primitives",
		Long: `Read Verilog netlists without running the compiler and load the library
primitives they use. Directories are searched recursively for .v and .sv
files; globs may use ** to match any number of directories.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runResolve,
	}
)

func init() {
	resolveFlags.register(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	paths, err := config.ExpandNetlists(wd, args)
	if err != nil {
		return err
	}
	return execute(cmd, &resolveFlags, nil, func(fe *frontend.Frontend) (*frontend.Result, error) {
		return fe.Resolve(cmd.Context(), paths, resolveFlags.top)
	})
}
