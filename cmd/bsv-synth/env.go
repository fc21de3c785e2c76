package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/bsv-synth/internal/compiler"
	"github.com/robert-at-pretension-io/bsv-synth/internal/resolver"
)

var (
	envProbe bool

	envCmd = &cobra.Command{
		Use:   "env",
		Short: "Show the Bluespec environment bsv-synth will use",
		Long: `Print the compiler, the library root (BLUESPECDIR) and the directory
library primitives are loaded from. Warns when no library root is set.`,
		Args: cobra.NoArgs,
		RunE: runEnv,
	}
)

func init() {
	envCmd.Flags().BoolVar(&envProbe, "probe", false, "ask bluetcl for BLUESPECDIR when it is not configured")
}

func runEnv(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	out := cmd.OutOrStdout()

	source := cfg.Source
	if source == "" {
		source = "(defaults)"
	}
	fmt.Fprintf(out, "config:        %s\n", source)
	fmt.Fprintf(out, "compiler:      %s\n", cfg.Compiler)
	fmt.Fprintf(out, "autoload:      %t\n", cfg.AutoloadPrimitives)

	root := cfg.LibraryRoot
	if root == "" && envProbe {
		probed, err := compiler.ProbeLibraryRoot(cmd.Context(), cfg.Bluetcl)
		if err != nil {
			logger.Warn("probing library root", "bluetcl", cfg.Bluetcl, "err", err)
		}
		root = probed
	}

	if root == "" {
		fmt.Fprintln(out, "BLUESPECDIR:   (not set)")
		logger.Warn("BLUESPECDIR is not set; library primitives cannot be loaded")
		return nil
	}
	primDir := filepath.Join(root, resolver.LibrarySubdir)
	fmt.Fprintf(out, "BLUESPECDIR:   %s\n", root)
	fmt.Fprintf(out, "primitive dir: %s\n", primDir)
	if info, err := os.Stat(primDir); err != nil || !info.IsDir() {
		logger.Warn("primitive directory does not exist", "dir", primDir)
	}
	if len(cfg.Externals) > 0 {
		fmt.Fprintf(out, "externals:     %v\n", cfg.Externals)
	}
	return nil
}
