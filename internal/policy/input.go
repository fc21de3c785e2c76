package policy

import (
	"path/filepath"
	"strings"

	"github.com/robert-at-pretension-io/bsv-synth/internal/design"
	"github.com/robert-at-pretension-io/bsv-synth/internal/resolver"
)

// Input is the data structure passed to OPA
type Input struct {
	Top       string   `json:"top,omitempty"`
	Modules   []Module `json:"modules"`
	Loaded    []string `json:"loaded"`
	Externals []string `json:"externals"`
}

// Module is a design module as seen by policies.
type Module struct {
	Name      string `json:"name"`
	Source    string `json:"source,omitempty"`
	Primitive bool   `json:"primitive"`
	Cells     []Cell `json:"cells"`
}

// Cell is one instance inside a module.
type Cell struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Line     int    `json:"line"`
	Internal bool   `json:"internal"`
}

// BuildInput flattens a design and its resolution report. report may be nil
// when resolution did not run.
func BuildInput(d *design.Design, report *resolver.Report, top string) Input {
	input := Input{
		Top:       top,
		Modules:   []Module{},
		Loaded:    []string{},
		Externals: []string{},
	}

	libraryDir := ""
	if report != nil {
		libraryDir = report.LibraryDir
		input.Loaded = append(input.Loaded, report.LoadedNames()...)
		for _, ref := range report.Externals {
			input.Externals = appendUnique(input.Externals, ref.Name)
		}
	}

	for _, m := range d.Modules() {
		mod := Module{
			Name:      m.Name,
			Source:    m.Source,
			Primitive: libraryDir != "" && inDir(m.Source, libraryDir),
			Cells:     []Cell{},
		}
		for _, c := range m.Cells() {
			mod.Cells = append(mod.Cells, Cell{
				Name:     c.Name,
				Type:     c.Type,
				Line:     c.Line,
				Internal: design.IsInternal(c.Type),
			})
		}
		input.Modules = append(input.Modules, mod)
	}

	return input
}

func inDir(path, dir string) bool {
	if path == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
