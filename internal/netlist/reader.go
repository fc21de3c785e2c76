package netlist

import (
	"errors"
	"fmt"
	"os"

	"github.com/robert-at-pretension-io/bsv-synth/internal/design"
)

// ErrSyntax is wrapped by errors for malformed netlists.
var ErrSyntax = errors.New("netlist syntax error")

// Reader parses structural Verilog netlists (compiler output and library
// primitives) and loads their modules into a design.
type Reader struct{}

// File contains everything extracted from a single netlist file
type File struct {
	Path    string
	Modules []ModuleDecl
}

// ModuleDecl is a module definition and the instances it contains
type ModuleDecl struct {
	Name      string
	Line      int
	Instances []Instance
}

// Instance is a module or gate instantiation inside a module body
type Instance struct {
	Name string
	Type string
	Line int
}

// New creates a Reader.
func New() *Reader {
	return &Reader{}
}

// Read parses the netlist file at path.
func (r *Reader) Read(path string) (File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return File{Path: path}, fmt.Errorf("reading netlist: %w", err)
	}
	return r.Parse(path, content)
}

// Parse parses netlist source. path is only used for positions and messages.
func (r *Reader) Parse(path string, content []byte) (File, error) {
	return parseSimple(path, content)
}

// Load reads the netlist at path and adds its modules to d. Either every
// module in the file is added or none is.
func (r *Reader) Load(d *design.Design, path string) error {
	f, err := r.Read(path)
	if err != nil {
		return err
	}
	return addFile(d, f)
}

// LoadSource is Load for in-memory source text.
func (r *Reader) LoadSource(d *design.Design, path string, content []byte) error {
	f, err := r.Parse(path, content)
	if err != nil {
		return err
	}
	return addFile(d, f)
}

func addFile(d *design.Design, f File) error {
	mods := make([]*design.Module, 0, len(f.Modules))
	declared := make(map[string]int, len(f.Modules))
	for _, decl := range f.Modules {
		if line, ok := declared[decl.Name]; ok {
			return fmt.Errorf("%s:%d: %w: %s (first defined at line %d)",
				f.Path, decl.Line, design.ErrDuplicateModule, decl.Name, line)
		}
		declared[decl.Name] = decl.Line
		if d.HasModule(decl.Name) {
			prev, _ := d.Module(decl.Name)
			return fmt.Errorf("%s:%d: %w: %s (already defined in %s)",
				f.Path, decl.Line, design.ErrDuplicateModule, decl.Name, prev.Source)
		}
		m := design.NewModule(decl.Name)
		m.Source = f.Path
		m.Line = decl.Line
		for _, inst := range decl.Instances {
			if err := m.AddCell(design.Cell{Name: inst.Name, Type: inst.Type, Line: inst.Line}); err != nil {
				return fmt.Errorf("%s:%d: %w", f.Path, inst.Line, err)
			}
		}
		mods = append(mods, m)
	}
	for _, m := range mods {
		if err := d.AddModule(m); err != nil {
			return fmt.Errorf("%s:%d: %w", f.Path, m.Line, err)
		}
	}
	return nil
}

// anonymousGateName names an unlabelled gate; seq counts anonymous gates per module.
func anonymousGateName(gate string, seq int) string {
	return fmt.Sprintf("%c%s$%d", design.InternalMarker, gate, seq)
}
