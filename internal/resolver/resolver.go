// Package resolver closes a design over the Bluespec primitive library.
//
// Cells whose type is not defined by any module are looked up in the
// primitive catalog. Blocked primitives abort the run, known primitives are
// loaded from <library root>/Verilog/<Name>.v, and the modules brought in that
// way are scanned in turn until nothing new is added. Whatever is still
// undefined afterwards must be a declared external.
package resolver

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/robert-at-pretension-io/bsv-synth/internal/catalog"
	"github.com/robert-at-pretension-io/bsv-synth/internal/design"
)

const (
	// LibrarySubdir holds the primitive sources under the library root.
	LibrarySubdir = "Verilog"
	// LibraryExt is the primitive source file extension.
	LibraryExt = ".v"
)

// Loader adds the modules of one Verilog file to a design.
type Loader interface {
	Load(d *design.Design, path string) error
}

// Options configures Resolve.
type Options struct {
	LibraryRoot string
	AutoResolve bool
	Catalog     *catalog.Catalog // nil means catalog.Default()
	Loader      Loader
	Externals   []string // names allowed to stay undefined
	Logger      *log.Logger
}

// LoadedPrimitive records one library file merged into the design.
type LoadedPrimitive struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Pass   int    `json:"pass"`
	Module string `json:"module"` // first requester
	Cell   string `json:"cell"`
}

// Report summarizes a resolution run.
type Report struct {
	Disabled   bool              `json:"disabled"`
	LibraryDir string            `json:"library_dir,omitempty"`
	Passes     int               `json:"passes"`
	Deferred   int               `json:"deferred"` // non-primitive references seen during the closure
	Loaded     []LoadedPrimitive `json:"loaded"`
	Externals  []Reference       `json:"externals"`
}

// LoadedNames returns the names of the loaded primitives in load order.
func (r *Report) LoadedNames() []string {
	names := make([]string, len(r.Loaded))
	for i, p := range r.Loaded {
		names[i] = p.Name
	}
	return names
}

// Configuration errors returned by Resolve before any loading starts.
var (
	ErrNoLoader      = errors.New("resolver: no loader configured")
	ErrNoLibraryRoot = errors.New("resolver: library root is empty")
)

// PrimitivePath returns the library file expected to define name.
func PrimitivePath(root, name string) string {
	return filepath.Join(root, LibrarySubdir, design.Unescape(name)+LibraryExt)
}

type run struct {
	d       *design.Design
	opts    Options
	catalog *catalog.Catalog
	logger  *log.Logger
	seen    map[string]bool
	report  *Report
}

// Resolve loads every primitive the design needs, transitively. On failure
// the design may hold a partial closure; the returned report still lists what
// was loaded before the error.
func Resolve(d *design.Design, opts Options) (*Report, error) {
	if !opts.AutoResolve {
		return &Report{Disabled: true, Loaded: []LoadedPrimitive{}, Externals: []Reference{}}, nil
	}
	if opts.Loader == nil {
		return nil, ErrNoLoader
	}
	if opts.LibraryRoot == "" {
		return nil, ErrNoLibraryRoot
	}

	r := &run{
		d:       d,
		opts:    opts,
		catalog: opts.Catalog,
		logger:  opts.Logger,
		seen:    make(map[string]bool),
		report: &Report{
			LibraryDir: filepath.Join(opts.LibraryRoot, LibrarySubdir),
			Loaded:     []LoadedPrimitive{},
			Externals:  []Reference{},
		},
	}
	if r.catalog == nil {
		r.catalog = catalog.Default()
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}

	scanned := make(map[string]bool)
	pending := d.ModuleNames()
	for len(pending) > 0 {
		r.report.Passes++
		for _, name := range pending {
			scanned[name] = true
			m, _ := d.Module(name)
			for _, ref := range ScanModule(d, m) {
				if err := r.visit(ref); err != nil {
					return r.report, err
				}
			}
		}
		pending = pending[:0]
		for _, name := range d.ModuleNames() {
			if !scanned[name] {
				pending = append(pending, name)
			}
		}
	}

	if err := r.checkUnknowns(); err != nil {
		return r.report, err
	}

	r.logger.Debug("resolved primitives",
		"passes", r.report.Passes,
		"loaded", len(r.report.Loaded),
		"externals", len(r.report.Externals))
	return r.report, nil
}

func (r *run) visit(ref Reference) error {
	// An earlier load in this pass may have defined it already.
	if r.d.HasModule(ref.Name) {
		return nil
	}

	action, reason := Classify(r.catalog, ref.Name, r.seen)
	switch action {
	case ActionFail:
		return &Error{
			Kind:      KindBlockedPrimitive,
			Reference: ref.Name,
			Module:    ref.Module,
			Cell:      ref.Cell,
			Reason:    reason,
		}
	case ActionLoad:
		return r.load(ref)
	case ActionDefer:
		r.report.Deferred++
		r.logger.Debug("deferring non-primitive module", "module", ref.Name, "in", ref.Module)
	}
	return nil
}

func (r *run) load(ref Reference) error {
	r.seen[ref.Name] = true
	path := PrimitivePath(r.opts.LibraryRoot, ref.Name)
	fail := func(kind Kind, err error) error {
		return &Error{
			Kind:      kind,
			Reference: ref.Name,
			Module:    ref.Module,
			Cell:      ref.Cell,
			Path:      path,
			Err:       err,
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fail(KindMissingLibraryFile, err)
	}
	if info.IsDir() {
		return fail(KindMissingLibraryFile, nil)
	}

	r.logger.Info("loading primitive", "module", ref.Name, "path", path)
	if err := r.opts.Loader.Load(r.d, path); err != nil {
		return fail(KindLibraryLoad, err)
	}
	if !r.d.HasModule(ref.Name) {
		return fail(KindLibraryFileMismatch, nil)
	}

	r.report.Loaded = append(r.report.Loaded, LoadedPrimitive{
		Name:   ref.Name,
		Path:   path,
		Pass:   r.report.Passes,
		Module: ref.Module,
		Cell:   ref.Cell,
	})
	return nil
}

func (r *run) checkUnknowns() error {
	externals := make(map[string]bool, len(r.opts.Externals))
	for _, name := range r.opts.Externals {
		externals[name] = true
	}

	for _, ref := range Scan(r.d) {
		if externals[ref.Name] {
			r.report.Externals = append(r.report.Externals, ref)
			continue
		}
		return &Error{
			Kind:      KindUnresolvedUnknown,
			Reference: ref.Name,
			Module:    ref.Module,
			Cell:      ref.Cell,
		}
	}
	sort.SliceStable(r.report.Externals, func(i, j int) bool {
		return r.report.Externals[i].Name < r.report.Externals[j].Name
	})
	return nil
}
