package main

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/robert-at-pretension-io/bsv-synth/internal/config"
	"github.com/robert-at-pretension-io/bsv-synth/internal/frontend"
	"github.com/robert-at-pretension-io/bsv-synth/internal/policy"
	"github.com/robert-at-pretension-io/bsv-synth/internal/resolver"
)

func TestRunFlagsApply(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Externals = []string{"VendorPll"}

	flags := runFlags{
		externals:   []string{"VendorPll", "VendorRam"},
		noAutoload:  true,
		policyDir:   "policies",
		metricsFile: "run.prom",
	}
	flags.apply(cfg)

	if want := []string{"VendorPll", "VendorRam"}; !reflect.DeepEqual(cfg.Externals, want) {
		t.Errorf("externals = %v, want %v", cfg.Externals, want)
	}
	if cfg.AutoloadPrimitives {
		t.Error("autoload should be disabled")
	}
	if cfg.PolicyDir != "policies" || cfg.MetricsFile != "run.prom" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestCompilerFlags(t *testing.T) {
	readCPP, readShowStats = true, true
	t.Cleanup(func() { readCPP, readShowStats = false, false })

	if got, want := compilerFlags(), []string{"-cpp", "-show-stats"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("compilerFlags() = %v, want %v", got, want)
	}
}

func TestFormatterFor(t *testing.T) {
	tests := map[string]log.Formatter{
		"json":   log.JSONFormatter,
		"LOGFMT": log.LogfmtFormatter,
		"text":   log.TextFormatter,
		"":       log.TextFormatter,
	}
	for format, want := range tests {
		if got := formatterFor(format); got != want {
			t.Errorf("formatterFor(%q) = %v, want %v", format, got, want)
		}
	}
}

func TestWriteReportValidates(t *testing.T) {
	res := &frontend.Result{
		OK:         true,
		Mode:       frontend.ModeResolve,
		Netlists:   []string{"top.v"},
		Modules:    []frontend.ModuleSummary{{Name: "mkTop", Source: "top.v", Cells: 1}},
		Violations: nil,
		Resolution: &resolver.Report{
			LibraryDir: "/opt/bluespec/Verilog",
			Passes:     2,
			Loaded:     []resolver.LoadedPrimitive{{Name: "RegN", Path: "/opt/bluespec/Verilog/RegN.v", Pass: 1, Module: "mkTop", Cell: "r"}},
			Externals:  []resolver.Reference{},
		},
	}

	var buf bytes.Buffer
	err := writeReport(&buf, res)
	if err == nil || !strings.Contains(err.Error(), "run report") {
		t.Fatalf("expected null violations to be rejected, got %v", err)
	}

	res.Violations = []policy.Violation{}
	buf.Reset()
	if err := writeReport(&buf, res); err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if decoded["mode"] != "resolve" {
		t.Errorf("mode = %v", decoded["mode"])
	}
}

func TestWriteSummary(t *testing.T) {
	res := &frontend.Result{
		Netlists: []string{"a.v"},
		Modules:  []frontend.ModuleSummary{{Name: "mkTop"}, {Name: "RegN"}},
		Resolution: &resolver.Report{
			Loaded: []resolver.LoadedPrimitive{{Name: "RegN", Path: "lib/Verilog/RegN.v", Pass: 1}},
		},
	}
	var buf bytes.Buffer
	writeSummary(&buf, res)

	out := buf.String()
	for _, want := range []string{"loaded RegN from lib/Verilog/RegN.v (pass 1)", "failed: 2 module(s) from 1 netlist(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
