package main

import (
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/bsv-synth/internal/config"
	"github.com/robert-at-pretension-io/bsv-synth/internal/frontend"
)

var (
	readFlags runFlags

	readDefines              []string
	readSearchPath           string
	readCPP                  bool
	readAggressiveConditions bool
	readShowSchedule         bool
	readShowStats            bool

	readCmd = &cobra.Command{
		Use:   "read <package.bsv>",
		Short: "Compile a Bluespec package and load the generated Verilog",
		Long: `Compile the package with bsc into a temporary workspace, read every
generated Verilog file and load the library primitives the design uses.
The workspace is removed afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: runRead,
	}
)

func init() {
	readFlags.register(readCmd)
	readCmd.Flags().StringArrayVarP(&readDefines, "define", "D", nil, "macro passed to bsc as -D (repeatable)")
	readCmd.Flags().StringVarP(&readSearchPath, "search-path", "p", "", "bsc package search path")
	readCmd.Flags().BoolVar(&readCPP, "cpp", false, "run the C preprocessor (bsc -cpp)")
	readCmd.Flags().BoolVar(&readAggressiveConditions, "aggressive-conditions", false, "pass -aggressive-conditions to bsc")
	readCmd.Flags().BoolVar(&readShowSchedule, "show-schedule", false, "pass -show-schedule to bsc")
	readCmd.Flags().BoolVar(&readShowStats, "show-stats", false, "pass -show-stats to bsc")
	_ = readCmd.MarkFlagRequired("top")
}

// compilerFlags returns the bsc switches selected on the command line.
func compilerFlags() []string {
	var flags []string
	for _, f := range []struct {
		on   bool
		flag string
	}{
		{readCPP, "-cpp"},
		{readAggressiveConditions, "-aggressive-conditions"},
		{readShowSchedule, "-show-schedule"},
		{readShowStats, "-show-stats"},
	} {
		if f.on {
			flags = append(flags, f.flag)
		}
	}
	return flags
}

func runRead(cmd *cobra.Command, args []string) error {
	setup := func(cfg *config.Config) {
		cfg.Defines = append(cfg.Defines, readDefines...)
		cfg.Flags = append(cfg.Flags, compilerFlags()...)
		if readSearchPath != "" {
			cfg.SearchPath = readSearchPath
		}
	}
	return execute(cmd, &readFlags, setup, func(fe *frontend.Frontend) (*frontend.Result, error) {
		return fe.Compile(cmd.Context(), args[0], readFlags.top)
	})
}
