// Package frontend runs the Bluespec flow end to end: compile a package with
// bsc, read the generated Verilog, pull in the library primitives it uses and
// check the result against design policies.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/robert-at-pretension-io/bsv-synth/internal/catalog"
	"github.com/robert-at-pretension-io/bsv-synth/internal/compiler"
	"github.com/robert-at-pretension-io/bsv-synth/internal/config"
	"github.com/robert-at-pretension-io/bsv-synth/internal/design"
	"github.com/robert-at-pretension-io/bsv-synth/internal/metrics"
	"github.com/robert-at-pretension-io/bsv-synth/internal/netlist"
	"github.com/robert-at-pretension-io/bsv-synth/internal/policy"
	"github.com/robert-at-pretension-io/bsv-synth/internal/resolver"
)

// ErrNoNetlists means the compiler finished without writing any Verilog.
var ErrNoNetlists = errors.New("no Verilog netlists produced")

// Mode names how the design was obtained.
type Mode string

const (
	ModeCompile Mode = "compile"
	ModeResolve Mode = "resolve"
)

// Options wires the frontend's collaborators. Only Config is required.
type Options struct {
	Config  *config.Config
	Logger  *log.Logger
	Metrics *metrics.Recorder
	Catalog *catalog.Catalog
	Reader  *netlist.Reader
	Probe   config.Prober
}

// Frontend runs compile and resolve requests.
type Frontend struct {
	cfg     *config.Config
	logger  *log.Logger
	metrics *metrics.Recorder
	catalog *catalog.Catalog
	reader  *netlist.Reader
	probe   config.Prober
}

// New returns a frontend with defaults filled in for missing options.
func New(opts Options) *Frontend {
	f := &Frontend{
		cfg:     opts.Config,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		catalog: opts.Catalog,
		reader:  opts.Reader,
		probe:   opts.Probe,
	}
	if f.cfg == nil {
		f.cfg = config.DefaultConfig()
	}
	if f.logger == nil {
		f.logger = log.New(io.Discard)
	}
	if f.catalog == nil {
		f.catalog = catalog.Default()
	}
	if f.reader == nil {
		f.reader = netlist.New()
	}
	if f.probe == nil {
		f.probe = compiler.ProbeLibraryRoot
	}
	return f
}

// Compile builds top from the BSV package pkg and resolves the resulting
// design. The compiler workspace is removed before Compile returns. The
// result is filled in as far as the run got, also on error.
func (f *Frontend) Compile(ctx context.Context, pkg, top string) (*Result, error) {
	res := newResult(ModeCompile)
	res.Package = pkg
	res.Top = top
	err := f.compile(ctx, res)
	return f.finish(res, err)
}

func (f *Frontend) compile(ctx context.Context, res *Result) error {
	if res.Top == "" {
		return errors.New("missing top-level module")
	}
	if res.Package == "" {
		return errors.New("missing package file")
	}

	root, err := f.libraryRoot(ctx)
	if err != nil {
		return err
	}
	res.LibraryRoot = root

	ws, err := compiler.NewWorkspace(f.cfg.TempDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			f.logger.Warn("removing compiler workspace", "dir", ws.Root, "err", err)
		}
	}()

	f.logger.Info("compiling", "package", res.Package, "top", res.Top, "vdir", ws.VDir, "bdir", ws.BDir)
	stageStart := time.Now()
	bsc := compiler.New(f.cfg.Compiler, f.logger)
	err = bsc.Run(ctx, compiler.Invocation{
		Package:    res.Package,
		Top:        res.Top,
		VDir:       ws.VDir,
		BDir:       ws.BDir,
		SearchPath: f.cfg.SearchPath,
		Defines:    f.cfg.Defines,
		Flags:      f.cfg.Flags,
	})
	f.metrics.Stage("compile", stageStart, err)
	if err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(ws.VDir, "*.v"))
	if err != nil {
		return fmt.Errorf("listing compiler output: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w in %s", ErrNoNetlists, ws.VDir)
	}

	return f.process(ctx, res, files)
}

// Resolve reads existing netlists and resolves them without running the
// compiler. The library root is only required when primitives are loaded.
func (f *Frontend) Resolve(ctx context.Context, paths []string, top string) (*Result, error) {
	res := newResult(ModeResolve)
	res.Top = top
	err := f.resolveOnly(ctx, res, paths)
	return f.finish(res, err)
}

func (f *Frontend) resolveOnly(ctx context.Context, res *Result, paths []string) error {
	if len(paths) == 0 {
		return errors.New("no netlists given")
	}
	if f.cfg.AutoloadPrimitives {
		root, err := f.libraryRoot(ctx)
		if err != nil {
			return err
		}
		res.LibraryRoot = root
	}
	return f.process(ctx, res, paths)
}

func (f *Frontend) libraryRoot(ctx context.Context) (string, error) {
	root, err := f.cfg.ResolveLibraryRoot(ctx, f.probe)
	if err != nil {
		return "", err
	}
	f.logger.Debug("library root", "dir", root)
	return root, nil
}

// process reads files into a fresh design, resolves primitives and applies
// policies.
func (f *Frontend) process(ctx context.Context, res *Result, files []string) error {
	res.Netlists = append(res.Netlists, files...)

	d, err := f.readNetlists(files)
	res.Design = d
	if err != nil {
		return err
	}

	stageStart := time.Now()
	report, err := resolver.Resolve(d, resolver.Options{
		LibraryRoot: res.LibraryRoot,
		AutoResolve: f.cfg.AutoloadPrimitives,
		Catalog:     f.catalog,
		Loader:      f.reader,
		Externals:   f.cfg.Externals,
		Logger:      f.logger,
	})
	f.metrics.Stage("resolve", stageStart, err)
	if report != nil {
		res.Resolution = report
		f.metrics.PrimitivesLoaded(len(report.Loaded))
	}
	if err != nil {
		return err
	}
	if report.Disabled {
		f.logger.Info("primitive autoload disabled")
	} else {
		f.logger.Info("resolved primitives", "loaded", len(report.Loaded), "passes", report.Passes, "externals", len(report.Externals))
	}

	return f.applyPolicies(ctx, res)
}

func (f *Frontend) readNetlists(files []string) (*design.Design, error) {
	stageStart := time.Now()
	d := design.New()
	for _, path := range files {
		fileStart := time.Now()
		f.logger.Info("reading", "file", path)
		err := f.reader.Load(d, path)
		f.metrics.File("read", path, fileStart, err)
		if err != nil {
			f.metrics.Stage("read", stageStart, err)
			return d, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	f.metrics.Stage("read", stageStart, nil)
	return d, nil
}

func (f *Frontend) applyPolicies(ctx context.Context, res *Result) error {
	if f.cfg.PolicyDir == "" {
		return nil
	}

	stageStart := time.Now()
	engine, err := policy.New(f.cfg.PolicyDir)
	if err != nil {
		f.metrics.Stage("policy", stageStart, err)
		return fmt.Errorf("loading policies: %w", err)
	}
	result, err := engine.Evaluate(ctx, policy.BuildInput(res.Design, res.Resolution, res.Top))
	if err != nil {
		f.metrics.Stage("policy", stageStart, err)
		return err
	}
	res.Violations = append(res.Violations, result.Violations...)
	for _, v := range result.Violations {
		switch v.Severity {
		case "error":
			f.logger.Error(v.Message, "rule", v.Rule, "module", v.Module, "cell", v.Cell)
		case "warning":
			f.logger.Warn(v.Message, "rule", v.Rule, "module", v.Module, "cell", v.Cell)
		default:
			f.logger.Info(v.Message, "rule", v.Rule)
		}
	}
	err = result.Err()
	f.metrics.Stage("policy", stageStart, err)
	return err
}

func (f *Frontend) finish(res *Result, err error) (*Result, error) {
	res.summarize()
	if res.Design != nil {
		cells := 0
		for _, m := range res.Modules {
			cells += m.Cells
		}
		f.metrics.DesignSize(len(res.Modules), cells)
	}

	if err != nil {
		kind := FailureKind(err)
		res.Error = &Failure{Kind: kind, Message: err.Error()}
		f.metrics.Failure(kind)
	}
	res.OK = err == nil

	if werr := f.metrics.WriteTextfile(f.cfg.MetricsFile); werr != nil {
		f.logger.Warn("metrics not written", "err", werr)
	}
	return res, err
}

// FailureKind names the error taxonomy entry of err.
func FailureKind(err error) string {
	if k := resolver.KindOf(err); k != 0 {
		return k.String()
	}
	switch {
	case errors.Is(err, config.ErrLibraryRootMissing), errors.Is(err, resolver.ErrNoLibraryRoot):
		return "configuration_missing"
	case errors.Is(err, compiler.ErrCompilerFailed):
		return "compiler_failed"
	case errors.Is(err, policy.ErrPolicyViolation):
		return "policy_violation"
	case errors.Is(err, ErrNoNetlists):
		return "no_netlists"
	case errors.Is(err, netlist.ErrSyntax), errors.Is(err, design.ErrDuplicateModule), errors.Is(err, design.ErrDuplicateCell):
		return "netlist"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
