package design

import (
	"errors"
	"testing"
)

func TestAddModuleRejectsDuplicates(t *testing.T) {
	d := New()
	first := NewModule("RegN")
	first.Source = "/lib/Verilog/RegN.v"
	if err := d.AddModule(first); err != nil {
		t.Fatalf("AddModule: %v", err)
	}

	err := d.AddModule(NewModule("RegN"))
	if !errors.Is(err, ErrDuplicateModule) {
		t.Fatalf("expected ErrDuplicateModule, got %v", err)
	}
	if d.Len() != 1 {
		t.Fatalf("expected 1 module, got %d", d.Len())
	}
}

func TestModulesAreLexicallyOrdered(t *testing.T) {
	d := New()
	for _, name := range []string{"mkTop", "FIFO2", "RegN", "mkCore"} {
		if err := d.AddModule(NewModule(name)); err != nil {
			t.Fatalf("AddModule(%s): %v", name, err)
		}
	}

	got := d.ModuleNames()
	want := []string{"FIFO2", "RegN", "mkCore", "mkTop"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCellsOrderedAndUnique(t *testing.T) {
	m := NewModule("mkTop")
	for _, c := range []Cell{
		{Name: "r2", Type: "RegN"},
		{Name: "f", Type: "FIFO2"},
		{Name: "r1", Type: "RegN"},
	} {
		if err := m.AddCell(c); err != nil {
			t.Fatalf("AddCell(%s): %v", c.Name, err)
		}
	}
	if err := m.AddCell(Cell{Name: "r1", Type: "RegUN"}); !errors.Is(err, ErrDuplicateCell) {
		t.Fatalf("expected ErrDuplicateCell, got %v", err)
	}

	cells := m.Cells()
	if len(cells) != 3 || cells[0].Name != "f" || cells[1].Name != "r1" || cells[2].Name != "r2" {
		t.Fatalf("unexpected cell order: %+v", cells)
	}
	if cells[1].Type != "RegN" {
		t.Fatalf("duplicate insert overwrote cell: %+v", cells[1])
	}
}

func TestNamingHelpers(t *testing.T) {
	tests := []struct {
		name      string
		internal  bool
		unescaped string
	}{
		{name: "$and", internal: true, unescaped: "$and"},
		{name: "RegN", internal: false, unescaped: "RegN"},
		{name: `\RegN `, internal: false, unescaped: "RegN"},
		{name: "", internal: false, unescaped: ""},
	}
	for _, tt := range tests {
		if got := IsInternal(tt.name); got != tt.internal {
			t.Errorf("IsInternal(%q) = %v, want %v", tt.name, got, tt.internal)
		}
		if got := Unescape(tt.name); got != tt.unescaped {
			t.Errorf("Unescape(%q) = %q, want %q", tt.name, got, tt.unescaped)
		}
	}
}
