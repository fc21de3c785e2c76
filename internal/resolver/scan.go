package resolver

import (
	"sort"

	"github.com/robert-at-pretension-io/bsv-synth/internal/design"
)

// Reference is a cell type that no module in the design defines.
type Reference struct {
	Name   string `json:"name"`
	Module string `json:"module"`
	Cell   string `json:"cell"`  // first referencing instance, lexically
	Cells  int    `json:"cells"` // instances of Name inside Module
}

// ScanModule returns the distinct undefined, non-internal types referenced by
// m's cells, ordered by name.
func ScanModule(d *design.Design, m *design.Module) []Reference {
	if m == nil {
		return nil
	}

	byName := make(map[string]*Reference)
	for _, cell := range m.Cells() {
		if design.IsInternal(cell.Type) || d.HasModule(cell.Type) {
			continue
		}
		if ref, ok := byName[cell.Type]; ok {
			ref.Cells++
			continue
		}
		byName[cell.Type] = &Reference{Name: cell.Type, Module: m.Name, Cell: cell.Name, Cells: 1}
	}

	refs := make([]Reference, 0, len(byName))
	for _, ref := range byName {
		refs = append(refs, *ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs
}

// Scan runs ScanModule over every module of d in lexical order.
func Scan(d *design.Design) []Reference {
	var refs []Reference
	for _, m := range d.Modules() {
		refs = append(refs, ScanModule(d, m)...)
	}
	return refs
}
