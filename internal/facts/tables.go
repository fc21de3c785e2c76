package facts

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/bsv-synth/internal/design"
	"github.com/robert-at-pretension-io/bsv-synth/internal/resolver"
)

// Primitive statuses.
const (
	StatusLoaded   = "loaded"
	StatusExternal = "external"
)

// Tables is the relational fact model of a design.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Files      []FileRow      `json:"files"`
	Modules    []ModuleRow    `json:"modules"`
	Cells      []CellRow      `json:"cells"`
	Primitives []PrimitiveRow `json:"primitives"`
}

type FileRow struct {
	Path    string `json:"path"`
	Modules int    `json:"modules"`
}

type ModuleRow struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Primitive bool   `json:"primitive"`
}

type CellRow struct {
	Module   string `json:"module"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Line     int    `json:"line"`
	Internal bool   `json:"internal"`
}

// PrimitiveRow is a library primitive pulled in by resolution, or a
// reference left undefined because it was declared external.
type PrimitiveRow struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Pass   int    `json:"pass,omitempty"`
}

// Build converts a design and its resolution report into tables. report may
// be nil when resolution did not run.
func Build(d *design.Design, report *resolver.Report) Tables {
	tables := emptyTables()

	libraryDir := ""
	if report != nil {
		libraryDir = report.LibraryDir
	}

	perFile := make(map[string]int)
	for _, m := range d.Modules() {
		if m.Source != "" {
			perFile[m.Source]++
		}
		tables.Modules = append(tables.Modules, ModuleRow{
			Name:      m.Name,
			File:      m.Source,
			Line:      m.Line,
			Primitive: libraryDir != "" && underDir(m.Source, libraryDir),
		})
		for _, c := range m.Cells() {
			tables.Cells = append(tables.Cells, CellRow{
				Module:   m.Name,
				Name:     c.Name,
				Type:     c.Type,
				Line:     c.Line,
				Internal: design.IsInternal(c.Type),
			})
		}
	}

	for path, n := range perFile {
		tables.Files = append(tables.Files, FileRow{Path: path, Modules: n})
	}
	sort.Slice(tables.Files, func(i, j int) bool { return tables.Files[i].Path < tables.Files[j].Path })

	if report != nil {
		for _, p := range report.Loaded {
			tables.Primitives = append(tables.Primitives, PrimitiveRow{
				Name:   p.Name,
				Status: StatusLoaded,
				Path:   p.Path,
				Pass:   p.Pass,
			})
		}
		seen := make(map[string]bool)
		for _, ref := range report.Externals {
			if seen[ref.Name] {
				continue
			}
			seen[ref.Name] = true
			tables.Primitives = append(tables.Primitives, PrimitiveRow{Name: ref.Name, Status: StatusExternal})
		}
	}

	return tables
}

func underDir(path, dir string) bool {
	if path == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
