package facts

import (
	"path/filepath"
	"testing"

	"github.com/robert-at-pretension-io/bsv-synth/internal/design"
	"github.com/robert-at-pretension-io/bsv-synth/internal/resolver"
)

func buildDesign(t *testing.T) (*design.Design, *resolver.Report) {
	t.Helper()
	lib := filepath.Join("lib", "Verilog")

	d := design.New()
	top := design.NewModule("mkTop")
	top.Source = "out/mkTop.v"
	top.Line = 3
	for _, c := range []design.Cell{
		{Name: "r", Type: "RegN", Line: 10},
		{Name: "add", Type: "$add", Line: 12},
		{Name: "io", Type: "ExtIO", Line: 14},
		{Name: "io2", Type: "ExtIO", Line: 15},
	} {
		if err := top.AddCell(c); err != nil {
			t.Fatal(err)
		}
	}
	reg := design.NewModule("RegN")
	reg.Source = filepath.Join(lib, "RegN.v")
	reg.Line = 1
	for _, m := range []*design.Module{top, reg} {
		if err := d.AddModule(m); err != nil {
			t.Fatal(err)
		}
	}

	report := &resolver.Report{
		LibraryDir: lib,
		Passes:     2,
		Loaded:     []resolver.LoadedPrimitive{{Name: "RegN", Path: reg.Source, Pass: 1, Module: "mkTop", Cell: "r"}},
		Externals: []resolver.Reference{
			{Name: "ExtIO", Module: "mkTop", Cell: "io"},
			{Name: "ExtIO", Module: "mkOther", Cell: "x"},
		},
	}
	return d, report
}

func TestBuildPopulatesRelations(t *testing.T) {
	d, report := buildDesign(t)

	tables := Build(d, report)

	if len(tables.Files) != 2 {
		t.Fatalf("expected 2 file rows, got %+v", tables.Files)
	}
	if len(tables.Modules) != 2 {
		t.Fatalf("expected 2 module rows, got %+v", tables.Modules)
	}
	if tables.Modules[0].Name != "RegN" || !tables.Modules[0].Primitive {
		t.Errorf("RegN should be a primitive row, got %+v", tables.Modules[0])
	}
	if tables.Modules[1].Name != "mkTop" || tables.Modules[1].Primitive || tables.Modules[1].Line != 3 {
		t.Errorf("unexpected top row %+v", tables.Modules[1])
	}
	if len(tables.Cells) != 4 {
		t.Fatalf("expected 4 cell rows, got %+v", tables.Cells)
	}
	if tables.Cells[0].Name != "add" || !tables.Cells[0].Internal {
		t.Errorf("expected internal add cell first, got %+v", tables.Cells[0])
	}

	want := []PrimitiveRow{
		{Name: "RegN", Status: StatusLoaded, Path: filepath.Join("lib", "Verilog", "RegN.v"), Pass: 1},
		{Name: "ExtIO", Status: StatusExternal},
	}
	if len(tables.Primitives) != len(want) {
		t.Fatalf("primitives = %+v, want %+v", tables.Primitives, want)
	}
	for i := range want {
		if tables.Primitives[i] != want[i] {
			t.Errorf("primitive %d = %+v, want %+v", i, tables.Primitives[i], want[i])
		}
	}
}

func TestBuildWithoutReport(t *testing.T) {
	d, _ := buildDesign(t)

	tables := Build(d, nil)

	if tables.Primitives == nil || len(tables.Primitives) != 0 {
		t.Fatalf("expected empty primitive table, got %#v", tables.Primitives)
	}
	for _, m := range tables.Modules {
		if m.Primitive {
			t.Errorf("module %s marked primitive without a report", m.Name)
		}
	}
}

func TestBuildEmptyDesign(t *testing.T) {
	tables := Build(design.New(), nil)
	if tables.Files == nil || tables.Modules == nil || tables.Cells == nil {
		t.Fatalf("tables must be non-nil for JSON output: %#v", tables)
	}
}
