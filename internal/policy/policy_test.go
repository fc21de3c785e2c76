package policy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/robert-at-pretension-io/bsv-synth/internal/design"
	"github.com/robert-at-pretension-io/bsv-synth/internal/resolver"
)

const gatedClockPolicy = `package bsv.synth

import rego.v1

violations contains v if {
	some m in input.modules
	some c in m.cells
	c.type == "GatedClock"
	v := {
		"rule": "no_gated_clocks",
		"severity": "error",
		"message": sprintf("%s.%s gates a clock", [m.name, c.name]),
		"module": m.name,
		"cell": c.name,
	}
}

violations contains v if {
	count(input.loaded) > 1
	v := {"rule": "many_primitives", "severity": "warn", "message": "more than one primitive loaded"}
}
`

func buildDesign(t *testing.T, libraryDir string) *design.Design {
	t.Helper()
	d := design.New()
	top := design.NewModule("mkTop")
	top.Source = "/tmp/v/mkTop.v"
	for _, c := range []design.Cell{
		{Name: "gc", Type: "GatedClock", Line: 4},
		{Name: "r", Type: "RegN", Line: 5},
		{Name: "g1", Type: "$and", Line: 6},
		{Name: "ip", Type: "VendorPll", Line: 7},
	} {
		if err := top.AddCell(c); err != nil {
			t.Fatalf("AddCell: %v", err)
		}
	}
	for _, m := range []*design.Module{top, design.NewModule("RegN"), design.NewModule("GatedClock")} {
		if m.Name != "mkTop" {
			m.Source = filepath.Join(libraryDir, m.Name+".v")
		}
		if err := d.AddModule(m); err != nil {
			t.Fatalf("AddModule: %v", err)
		}
	}
	return d
}

func testReport(libraryDir string) *resolver.Report {
	return &resolver.Report{
		LibraryDir: libraryDir,
		Passes:     2,
		Loaded: []resolver.LoadedPrimitive{
			{Name: "GatedClock", Path: filepath.Join(libraryDir, "GatedClock.v"), Pass: 1, Module: "mkTop", Cell: "gc"},
			{Name: "RegN", Path: filepath.Join(libraryDir, "RegN.v"), Pass: 1, Module: "mkTop", Cell: "r"},
		},
		Externals: []resolver.Reference{{Name: "VendorPll", Module: "mkTop", Cell: "ip", Cells: 1}},
	}
}

func TestBuildInput(t *testing.T) {
	lib := "/opt/bsc/lib/Verilog"
	input := BuildInput(buildDesign(t, lib), testReport(lib), "mkTop")

	if len(input.Modules) != 3 {
		t.Fatalf("modules = %d", len(input.Modules))
	}
	byName := map[string]Module{}
	for _, m := range input.Modules {
		byName[m.Name] = m
	}
	if byName["mkTop"].Primitive || !byName["RegN"].Primitive {
		t.Fatalf("primitive flags wrong: %+v", input.Modules)
	}
	cells := byName["mkTop"].Cells
	if len(cells) != 4 || cells[0].Name != "g1" || !cells[0].Internal {
		t.Fatalf("unexpected cells %+v", cells)
	}
	if len(input.Loaded) != 2 || len(input.Externals) != 1 || input.Externals[0] != "VendorPll" {
		t.Fatalf("unexpected resolution data %+v", input)
	}

	bare := BuildInput(design.New(), nil, "")
	if bare.Modules == nil || bare.Loaded == nil || bare.Externals == nil {
		t.Fatalf("lists must be non-nil: %+v", bare)
	}
}

func TestEvaluateInlinePolicies(t *testing.T) {
	engine, err := NewFromModules(map[string]string{"gated.rego": gatedClockPolicy})
	if err != nil {
		t.Fatalf("NewFromModules: %v", err)
	}

	lib := "/opt/bsc/lib/Verilog"
	result, err := engine.Evaluate(context.Background(), BuildInput(buildDesign(t, lib), testReport(lib), "mkTop"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if result.Summary.TotalViolations != 2 || result.Summary.Errors != 1 || result.Summary.Warnings != 1 {
		t.Fatalf("unexpected summary %+v", result.Summary)
	}
	first := result.Violations[0]
	if first.Rule != "many_primitives" || first.Severity != "warning" {
		t.Fatalf("violations not sorted or severity not normalized: %+v", result.Violations)
	}
	second := result.Violations[1]
	if second.Module != "mkTop" || second.Cell != "gc" || second.Message != "mkTop.gc gates a clock" {
		t.Fatalf("unexpected violation %+v", second)
	}

	if err := result.Err(); !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("expected policy violation error, got %v", err)
	}
}

func TestEvaluateCleanDesign(t *testing.T) {
	engine, err := NewFromModules(map[string]string{"gated.rego": gatedClockPolicy})
	if err != nil {
		t.Fatalf("NewFromModules: %v", err)
	}

	d := design.New()
	if err := d.AddModule(design.NewModule("mkTop")); err != nil {
		t.Fatalf("AddModule: %v", err)
	}
	result, err := engine.Evaluate(context.Background(), BuildInput(d, nil, "mkTop"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(result.Violations) != 0 || result.Err() != nil {
		t.Fatalf("expected no violations, got %+v", result)
	}
}

func TestNewFromDirectory(t *testing.T) {
	if _, err := New(t.TempDir()); err == nil {
		t.Fatalf("expected error for a directory without policies")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.rego"), []byte("package bsv.synth\n\nviolations[v] {\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestShippedPolicies(t *testing.T) {
	_, file, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(file), "..", "..", "policies")

	engine, err := New(dir)
	if err != nil {
		t.Fatalf("New(%s): %v", dir, err)
	}
	if len(engine.Files()) == 0 {
		t.Fatalf("no policy files loaded")
	}

	lib := "/opt/bsc/lib/Verilog"
	d := buildDesign(t, lib)
	top, _ := d.Module("mkTop")
	if err := top.AddCell(design.Cell{Name: "latch", Type: "LatchN", Line: 9}); err != nil {
		t.Fatalf("AddCell: %v", err)
	}

	result, err := engine.Evaluate(context.Background(), BuildInput(d, testReport(lib), "mkTop"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	rules := map[string]string{}
	for _, v := range result.Violations {
		rules[v.Rule] = v.Severity
	}
	if rules["latch_primitive"] != "warning" || rules["external_module"] != "info" {
		t.Fatalf("unexpected violations %+v", result.Violations)
	}
	if result.Err() != nil {
		t.Fatalf("shipped policies should not fail this design: %v", result.Err())
	}

	result, err = engine.Evaluate(context.Background(), BuildInput(d, testReport(lib), "RegN"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !errors.Is(result.Err(), ErrPolicyViolation) {
		t.Fatalf("primitive top should be an error, got %+v", result.Violations)
	}
}
