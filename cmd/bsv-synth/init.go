package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/bsv-synth/internal/config"
)

var (
	initForce bool

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a bsv_synth.json configuration file",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
}

func runInit(cmd *cobra.Command, _ []string) error {
	configPath := config.FileName + ".json"

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", configPath)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("creating config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", configPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - library_root (defaults to $BLUESPECDIR)")
	fmt.Fprintln(out, "  - compiler flags, defines and search path")
	fmt.Fprintln(out, "  - externals allowed to stay undefined")
	return nil
}
