package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/robert-at-pretension-io/bsv-synth/internal/validator"
)

// ErrLibraryRootMissing means no Bluespec library root could be determined.
var ErrLibraryRootMissing = errors.New("BLUESPECDIR is not set")

const (
	// FileName is the config file name without extension.
	FileName = "bsv_synth"

	defaultCompiler = "bsc"
	defaultBluetcl  = "bluetcl"
)

// Config is the top-level configuration for bsv-synth
type Config struct {
	// LibraryRoot is the Bluespec installation directory (BLUESPECDIR)
	LibraryRoot string `json:"library_root,omitempty" mapstructure:"library_root"`

	// Compiler is the bsc executable (BSC_PATH)
	Compiler string `json:"compiler" mapstructure:"compiler"`

	// Bluetcl is used to probe the library root when it isn't configured
	Bluetcl string `json:"bluetcl" mapstructure:"bluetcl"`

	// AutoloadPrimitives enables loading library primitives into the design
	AutoloadPrimitives bool `json:"autoload_primitives" mapstructure:"autoload_primitives"`

	// Externals are module names allowed to stay undefined
	Externals []string `json:"externals,omitempty" mapstructure:"externals"`

	// SearchPath is passed to bsc as -p
	SearchPath string `json:"search_path,omitempty" mapstructure:"search_path"`

	// Defines are passed to bsc as -D
	Defines []string `json:"defines,omitempty" mapstructure:"defines"`

	// Flags are passed to bsc verbatim
	Flags []string `json:"flags,omitempty" mapstructure:"flags"`

	// TempDir is where compiler workspaces are created (system default when empty)
	TempDir string `json:"temp_dir,omitempty" mapstructure:"temp_dir"`

	// PolicyDir holds .rego design policies
	PolicyDir string `json:"policy_dir,omitempty" mapstructure:"policy_dir"`

	// MetricsFile receives run metrics in text exposition format
	MetricsFile string `json:"metrics_file,omitempty" mapstructure:"metrics_file"`

	// TimingFile receives per-stage timings as JSON lines
	TimingFile string `json:"timing_file,omitempty" mapstructure:"timing_file"`

	Log LogConfig `json:"log" mapstructure:"log"`

	// Source is the config file that was loaded, empty for defaults
	Source string `json:"-" mapstructure:"-"`
}

// LogConfig controls the CLI logger
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" mapstructure:"level"`
	// Format is one of text, json, logfmt
	Format string `json:"format" mapstructure:"format"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Compiler:           defaultCompiler,
		Bluetcl:            defaultBluetcl,
		AutoloadPrimitives: true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load finds and loads the configuration file
// Search order:
//  1. <dir>/bsv_synth.{json,yaml,toml}
//  2. <dir>/.bsv_synth.{json,yaml,toml}
//  3. ~/.config/bsv_synth/config.json
//
// Defaults are used if no config file is found. Environment variables
// override file values either way.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir, _ = os.Getwd()
	}

	var searchPaths []string
	for _, prefix := range []string{FileName, "." + FileName} {
		for _, ext := range []string{"json", "yaml", "toml"} {
			searchPaths = append(searchPaths, filepath.Join(dir, prefix+"."+ext))
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", FileName, "config.json"))
	}

	for _, path := range searchPaths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return LoadFile(path)
		}
	}

	return load("")
}

// LoadFile loads configuration from a specific file
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("compiler", defaults.Compiler)
	v.SetDefault("bluetcl", defaults.Bluetcl)
	v.SetDefault("autoload_primitives", defaults.AutoloadPrimitives)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := validateSettings(v.AllSettings(), path); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Source = path
	cfg.applyDefaults()

	return &cfg, nil
}

// envBindings maps config keys to the environment variables overriding them.
var envBindings = map[string]string{
	"library_root": "BLUESPECDIR",
	"compiler":     "BSC_PATH",
	"log.level":    "BSV_SYNTH_LOG_LEVEL",
}

func validateSettings(settings map[string]interface{}, path string) error {
	v, err := validator.NewConfigValidator()
	if err != nil {
		return err
	}
	if errs := v.ValidationErrors(settings); len(errs) > 0 {
		source := path
		if source == "" {
			source = "environment"
		}
		return fmt.Errorf("invalid configuration in %s: %s", source, strings.Join(errs, "; "))
	}
	return nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.Compiler == "" {
		c.Compiler = defaultCompiler
	}
	if c.Bluetcl == "" {
		c.Bluetcl = defaultBluetcl
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Prober asks the Bluespec installation for its library root.
type Prober func(ctx context.Context, bluetcl string) (string, error)

// ResolveLibraryRoot returns the configured library root, falling back to
// probe when none is set. The result is stored in c. The returned directory
// is checked to exist.
func (c *Config) ResolveLibraryRoot(ctx context.Context, probe Prober) (string, error) {
	root := c.LibraryRoot
	if root == "" && probe != nil {
		probed, err := probe(ctx, c.Bluetcl)
		if err != nil {
			return "", fmt.Errorf("%w: probing %s: %v", ErrLibraryRootMissing, c.Bluetcl, err)
		}
		root = probed
	}
	if root == "" {
		return "", ErrLibraryRootMissing
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrLibraryRootMissing, root)
	}

	c.LibraryRoot = root
	return root, nil
}

// IsExternal reports whether name was declared as an external module.
func (c *Config) IsExternal(name string) bool {
	for _, ext := range c.Externals {
		if ext == name {
			return true
		}
	}
	return false
}
