package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate keeps the user's environment and home config out of a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Compiler != "bsc" || cfg.Bluetcl != "bluetcl" {
		t.Fatalf("unexpected tools %q %q", cfg.Compiler, cfg.Bluetcl)
	}
	if !cfg.AutoloadPrimitives {
		t.Fatalf("primitives should autoload by default")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
	if cfg.LibraryRoot != "" || cfg.Source != "" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadSearchOrder(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}

	hidden := write(".bsv_synth.json", `{"compiler": "/opt/hidden/bsc"}`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != hidden || cfg.Compiler != "/opt/hidden/bsc" {
		t.Fatalf("expected dotfile config, got %+v", cfg)
	}

	visible := write("bsv_synth.yaml", "compiler: /opt/visible/bsc\nexternals:\n  - MyCustomIp\n")
	cfg, err = Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != visible || cfg.Compiler != "/opt/visible/bsc" {
		t.Fatalf("expected bsv_synth.yaml to win, got %+v", cfg)
	}
	if !cfg.IsExternal("MyCustomIp") || cfg.IsExternal("RegN") {
		t.Fatalf("externals = %v", cfg.Externals)
	}
}

func TestLoadFileWithEnvironment(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "cfg.json")
	content := `{
  "library_root": "/from/file",
  "autoload_primitives": false,
  "flags": ["-aggressive-conditions"],
  "defines": ["WIDTH=8"],
  "log": {"level": "debug", "format": "json"}
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("BLUESPECDIR", "/from/env")
	t.Setenv("BSC_PATH", "/usr/local/bin/bsc")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.LibraryRoot != "/from/env" {
		t.Fatalf("BLUESPECDIR should override the file, got %q", cfg.LibraryRoot)
	}
	if cfg.Compiler != "/usr/local/bin/bsc" {
		t.Fatalf("BSC_PATH not applied: %q", cfg.Compiler)
	}
	if cfg.AutoloadPrimitives {
		t.Fatalf("autoload_primitives from file ignored")
	}
	if len(cfg.Flags) != 1 || cfg.Flags[0] != "-aggressive-conditions" || cfg.Defines[0] != "WIDTH=8" {
		t.Fatalf("unexpected compiler options %v %v", cfg.Flags, cfg.Defines)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "bad_level", content: `{"log": {"level": "loud"}}`, want: "level"},
		{name: "typo", content: `{"libary_root": "/opt"}`, want: "libary_root"},
		{name: "bad_flag", content: `{"flags": ["verilog"]}`, want: "flags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, err := LoadFile(path)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(dir, "absent.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bsv_synth.json")

	cfg := DefaultConfig()
	cfg.Externals = []string{"VendorPll"}
	cfg.PolicyDir = "policies"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.PolicyDir != "policies" || !loaded.IsExternal("VendorPll") {
		t.Fatalf("round trip lost settings: %+v", loaded)
	}
}

func TestResolveLibraryRoot(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.LibraryRoot = root
	probed := false
	probe := func(ctx context.Context, bluetcl string) (string, error) {
		probed = true
		return root, nil
	}

	got, err := cfg.ResolveLibraryRoot(context.Background(), probe)
	if err != nil || got != root {
		t.Fatalf("ResolveLibraryRoot = %q, %v", got, err)
	}
	if probed {
		t.Fatalf("configured root must not be probed")
	}

	cfg = DefaultConfig()
	got, err = cfg.ResolveLibraryRoot(context.Background(), probe)
	if err != nil || got != root || cfg.LibraryRoot != root {
		t.Fatalf("probe fallback = %q, %v", got, err)
	}

	cfg = DefaultConfig()
	if _, err := cfg.ResolveLibraryRoot(context.Background(), nil); !errors.Is(err, ErrLibraryRootMissing) {
		t.Fatalf("expected missing root, got %v", err)
	}

	failing := func(ctx context.Context, bluetcl string) (string, error) {
		return "", errors.New("bluetcl: not found")
	}
	if _, err := cfg.ResolveLibraryRoot(context.Background(), failing); !errors.Is(err, ErrLibraryRootMissing) {
		t.Fatalf("expected missing root after failed probe, got %v", err)
	}

	cfg.LibraryRoot = filepath.Join(root, "absent")
	if _, err := cfg.ResolveLibraryRoot(context.Background(), nil); !errors.Is(err, ErrLibraryRootMissing) {
		t.Fatalf("expected error for absent directory, got %v", err)
	}
}
