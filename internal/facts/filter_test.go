package facts

import "testing"

func TestReachableAndFilter(t *testing.T) {
	tables := Tables{
		Files: []FileRow{{Path: "top.v", Modules: 2}, {Path: "lib/RegN.v", Modules: 1}},
		Modules: []ModuleRow{
			{Name: "mkTop", File: "top.v"},
			{Name: "mkUnused", File: "top.v"},
			{Name: "RegN", File: "lib/RegN.v", Primitive: true},
		},
		Cells: []CellRow{
			{Module: "mkTop", Name: "r", Type: "RegN"},
			{Module: "mkTop", Name: "add", Type: "$add", Internal: true},
			{Module: "mkUnused", Name: "f", Type: "FIFO2"},
		},
		Primitives: []PrimitiveRow{
			{Name: "RegN", Status: StatusLoaded, Pass: 1},
			{Name: "FIFO2", Status: StatusLoaded, Pass: 1},
		},
	}

	keep := Reachable(tables, "mkTop")
	if !keep["mkTop"] || !keep["RegN"] || keep["mkUnused"] || keep["$add"] {
		t.Fatalf("unexpected reachable set %v", keep)
	}

	out := FilterTablesByModules(tables, keep)
	if len(out.Modules) != 2 {
		t.Fatalf("expected 2 modules, got %+v", out.Modules)
	}
	if len(out.Cells) != 2 {
		t.Fatalf("expected mkTop cells only, got %+v", out.Cells)
	}
	if len(out.Primitives) != 1 || out.Primitives[0].Name != "RegN" {
		t.Fatalf("expected RegN primitive only, got %+v", out.Primitives)
	}
	if len(out.Files) != 2 || out.Files[0].Path != "top.v" || out.Files[0].Modules != 1 {
		t.Fatalf("unexpected files %+v", out.Files)
	}
}

func TestFilterEmptySelection(t *testing.T) {
	out := FilterTablesByModules(Tables{Modules: []ModuleRow{{Name: "a"}}}, nil)
	if len(out.Modules) != 0 || out.Modules == nil {
		t.Fatalf("expected empty non-nil tables, got %#v", out)
	}
}
