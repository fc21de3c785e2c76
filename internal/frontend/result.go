package frontend

import (
	"github.com/robert-at-pretension-io/bsv-synth/internal/design"
	"github.com/robert-at-pretension-io/bsv-synth/internal/policy"
	"github.com/robert-at-pretension-io/bsv-synth/internal/resolver"
)

// Result is the outcome of one run, printed as the JSON report.
type Result struct {
	OK          bool               `json:"ok"`
	Mode        Mode               `json:"mode"`
	Top         string             `json:"top,omitempty"`
	Package     string             `json:"package,omitempty"`
	LibraryRoot string             `json:"library_root,omitempty"`
	Netlists    []string           `json:"netlists"`
	Modules     []ModuleSummary    `json:"modules"`
	Resolution  *resolver.Report   `json:"resolution,omitempty"` // nil until resolution ran
	Violations  []policy.Violation `json:"violations"`
	Error       *Failure           `json:"error,omitempty"`

	// Design is the loaded design, nil if reading never started.
	Design *design.Design `json:"-"`
}

// ModuleSummary is one module of the final design.
type ModuleSummary struct {
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
	Cells  int    `json:"cells"`
}

// Failure describes the error that ended a run.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func newResult(mode Mode) *Result {
	return &Result{
		Mode:       mode,
		Netlists:   []string{},
		Modules:    []ModuleSummary{},
		Violations: []policy.Violation{},
	}
}

func (r *Result) summarize() {
	r.Modules = r.Modules[:0]
	if r.Design == nil {
		return
	}
	for _, m := range r.Design.Modules() {
		r.Modules = append(r.Modules, ModuleSummary{Name: m.Name, Source: m.Source, Cells: m.CellCount()})
	}
}
