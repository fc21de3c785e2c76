package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/rego"

	"github.com/robert-at-pretension-io/bsv-synth/internal/validator"
)

// Query is the rule every policy package contributes violations to.
const Query = "data.bsv.synth.violations"

// ErrPolicyViolation is returned when a policy reports an error-severity violation.
var ErrPolicyViolation = errors.New("design policy violated")

// Engine evaluates OPA policies against a resolved design
type Engine struct {
	query     rego.PreparedEvalQuery
	validator *validator.Validator
	files     []string
}

// Violation represents a policy violation
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Module   string `json:"module,omitempty"`
	Cell     string `json:"cell,omitempty"`
}

// Result contains the evaluation results
type Result struct {
	Violations []Violation `json:"violations"`
	Summary    Summary     `json:"summary"`
}

// Summary provides aggregate counts
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// New creates a new policy engine, loading policies from the given directory
func New(policyDir string) (*Engine, error) {
	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, fmt.Errorf("finding policy files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no policy files found in %s", policyDir)
	}
	sort.Strings(files)

	modules := make(map[string]string, len(files))
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		modules[f] = string(content)
	}
	return NewFromModules(modules)
}

// NewFromModules creates an engine from in-memory policy sources keyed by file name.
func NewFromModules(modules map[string]string) (*Engine, error) {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := make([]func(*rego.Rego), 0, len(names)+1)
	for _, name := range names {
		opts = append(opts, rego.Module(name, modules[name]))
	}
	opts = append(opts, rego.Query(Query))

	query, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("preparing violations query: %w", err)
	}

	v, err := validator.NewPolicyInputValidator()
	if err != nil {
		return nil, fmt.Errorf("init policy input validator: %w", err)
	}

	return &Engine{query: query, validator: v, files: names}, nil
}

// Files returns the policy sources the engine was built from.
func (e *Engine) Files() []string {
	return append([]string(nil), e.files...)
}

// Evaluate runs the policies against the input data
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Result, error) {
	if err := e.validator.Validate(input); err != nil {
		return nil, fmt.Errorf("policy input: %w", err)
	}

	inputMap, err := structToMap(input)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	rs, err := e.query.Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}

	result := &Result{Violations: []Violation{}}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		violations, ok := rs[0].Expressions[0].Value.([]interface{})
		if ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				result.Violations = append(result.Violations, Violation{
					Rule:     getString(vmap, "rule"),
					Severity: normalizeSeverity(getString(vmap, "severity")),
					Message:  getString(vmap, "message"),
					Module:   getString(vmap, "module"),
					Cell:     getString(vmap, "cell"),
				})
			}
		}
	}

	sort.Slice(result.Violations, func(i, j int) bool {
		a, b := result.Violations[i], result.Violations[j]
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Cell != b.Cell {
			return a.Cell < b.Cell
		}
		return a.Message < b.Message
	})

	for _, v := range result.Violations {
		result.Summary.TotalViolations++
		switch v.Severity {
		case "error":
			result.Summary.Errors++
		case "warning":
			result.Summary.Warnings++
		default:
			result.Summary.Info++
		}
	}

	return result, nil
}

// Err returns ErrPolicyViolation, with the first error message, when any
// violation has error severity.
func (r *Result) Err() error {
	if r == nil || r.Summary.Errors == 0 {
		return nil
	}
	for _, v := range r.Violations {
		if v.Severity == "error" {
			return fmt.Errorf("%w: %s (%d error(s))", ErrPolicyViolation, v.Message, r.Summary.Errors)
		}
	}
	return ErrPolicyViolation
}

func normalizeSeverity(s string) string {
	switch s {
	case "error", "warning", "info":
		return s
	case "warn":
		return "warning"
	default:
		return "info"
	}
}

// Helper functions
func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
