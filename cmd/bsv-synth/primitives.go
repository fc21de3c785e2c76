package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/bsv-synth/internal/catalog"
	"github.com/robert-at-pretension-io/bsv-synth/internal/resolver"
)

var (
	primitivesJSON bool

	primitivesCmd = &cobra.Command{
		Use:   "primitives",
		Short: "List the Bluespec library primitives and the unsupported ones",
		Args:  cobra.NoArgs,
		RunE:  runPrimitives,
	}
)

func init() {
	primitivesCmd.Flags().BoolVar(&primitivesJSON, "json", false, "print the catalog as JSON")
}

type primitiveEntry struct {
	Name    string `json:"name"`
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
	Path    string `json:"path,omitempty"`
	Present *bool  `json:"present,omitempty"`
}

func runPrimitives(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c := catalog.Default()

	var entries []primitiveEntry
	for _, name := range c.Known() {
		e := primitiveEntry{Name: name}
		if cfg.LibraryRoot != "" {
			e.Path = resolver.PrimitivePath(cfg.LibraryRoot, name)
			_, statErr := os.Stat(e.Path)
			present := statErr == nil
			e.Present = &present
		}
		entries = append(entries, e)
	}
	for _, name := range c.Blocked() {
		reason, _ := c.BlockReason(name)
		entries = append(entries, primitiveEntry{Name: name, Blocked: true, Reason: reason})
	}

	out := cmd.OutOrStdout()
	if primitivesJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	for _, e := range entries {
		switch {
		case e.Blocked:
			fmt.Fprintf(out, "%-24s blocked: %s\n", e.Name, e.Reason)
		case e.Present != nil && !*e.Present:
			fmt.Fprintf(out, "%-24s missing: %s\n", e.Name, e.Path)
		default:
			fmt.Fprintln(out, e.Name)
		}
	}
	return nil
}
