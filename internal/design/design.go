package design

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// InternalMarker prefixes cell types that belong to the synthesis engine itself
// ($and, $dff, ...). They never name a loadable module.
const InternalMarker = '$'

// ErrDuplicateModule is returned when a module name is already defined.
var ErrDuplicateModule = errors.New("duplicate module")

// ErrDuplicateCell is returned when an instance name is reused inside a module.
var ErrDuplicateCell = errors.New("duplicate cell")

// Design is a mutable collection of uniquely named modules.
// It is owned by a single run and is not safe for concurrent use.
type Design struct {
	modules map[string]*Module
}

// Module is a named hardware block holding cell instances.
type Module struct {
	Name   string
	Source string // file the module was read from
	Line   int

	cells map[string]*Cell
}

// Cell is an instance of a module type inside another module.
type Cell struct {
	Name string // instance name
	Type string // referenced module type
	Line int
}

// New creates an empty design.
func New() *Design {
	return &Design{modules: make(map[string]*Module)}
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name, cells: make(map[string]*Cell)}
}

// AddModule inserts m. Module names are unique within a design.
func (d *Design) AddModule(m *Module) error {
	if m == nil || m.Name == "" {
		return errors.New("module has no name")
	}
	if prev, ok := d.modules[m.Name]; ok {
		if prev.Source != "" {
			return fmt.Errorf("%w: %s (already defined in %s)", ErrDuplicateModule, m.Name, prev.Source)
		}
		return fmt.Errorf("%w: %s", ErrDuplicateModule, m.Name)
	}
	if m.cells == nil {
		m.cells = make(map[string]*Cell)
	}
	d.modules[m.Name] = m
	return nil
}

// Module returns the module with the given name.
func (d *Design) Module(name string) (*Module, bool) {
	m, ok := d.modules[name]
	return m, ok
}

// HasModule reports whether a module with the given name is defined.
func (d *Design) HasModule(name string) bool {
	_, ok := d.modules[name]
	return ok
}

// ModuleNames returns all module names in lexical order.
func (d *Design) ModuleNames() []string {
	names := make([]string, 0, len(d.modules))
	for name := range d.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Modules returns all modules in lexical order of their names.
func (d *Design) Modules() []*Module {
	names := d.ModuleNames()
	mods := make([]*Module, 0, len(names))
	for _, name := range names {
		mods = append(mods, d.modules[name])
	}
	return mods
}

// Len returns the number of modules.
func (d *Design) Len() int {
	return len(d.modules)
}

// AddCell adds an instance to the module.
func (m *Module) AddCell(c Cell) error {
	if c.Name == "" || c.Type == "" {
		return fmt.Errorf("cell in module %s needs a name and a type", m.Name)
	}
	if m.cells == nil {
		m.cells = make(map[string]*Cell)
	}
	if _, ok := m.cells[c.Name]; ok {
		return fmt.Errorf("%w: %s in module %s", ErrDuplicateCell, c.Name, m.Name)
	}
	cell := c
	m.cells[c.Name] = &cell
	return nil
}

// Cells returns the module's cells ordered by instance name.
func (m *Module) Cells() []*Cell {
	names := make([]string, 0, len(m.cells))
	for name := range m.cells {
		names = append(names, name)
	}
	sort.Strings(names)
	cells := make([]*Cell, 0, len(names))
	for _, name := range names {
		cells = append(cells, m.cells[name])
	}
	return cells
}

// CellCount returns the number of cells in the module.
func (m *Module) CellCount() int {
	return len(m.cells)
}

// IsInternal reports whether name is an engine-internal type.
func IsInternal(name string) bool {
	return name != "" && name[0] == InternalMarker
}

// Unescape strips the Verilog escaped-identifier backslash and its terminating
// whitespace, giving the plain name used for file lookups.
func Unescape(name string) string {
	if strings.HasPrefix(name, `\`) {
		return strings.TrimRight(name[1:], " \t\r\n")
	}
	return name
}
