// Package validator checks data crossing a boundary (config files, the JSON
// report, policy input, fact tables) against embedded CUE schemas.
//
// A mismatch is a bug or a bad input file. It is reported immediately with
// the CUE error text instead of letting a later stage see missing fields.
package validator

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schemas/*.cue
var schemaFS embed.FS

// Validator checks values against one definition of one schema file.
type Validator struct {
	ctx        *cue.Context
	schema     cue.Value
	definition string
}

func newValidator(file, definition string) (*Validator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile("schemas/" + file)
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema %s: %w", file, err)
	}

	schema := ctx.CompileBytes(schemaBytes, cue.Filename(file))
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", file, schema.Err())
	}
	if def := schema.LookupPath(cue.ParsePath(definition)); def.Err() != nil {
		return nil, fmt.Errorf("looking up %s definition: %w", definition, def.Err())
	}

	return &Validator{ctx: ctx, schema: schema, definition: definition}, nil
}

// NewConfigValidator validates merged configuration settings.
func NewConfigValidator() (*Validator, error) {
	return newValidator("config.cue", "#Config")
}

// NewReportValidator validates the JSON run report.
func NewReportValidator() (*Validator, error) {
	return newValidator("report.cue", "#Report")
}

// NewPolicyInputValidator validates the document handed to design policies.
func NewPolicyInputValidator() (*Validator, error) {
	return newValidator("policy.cue", "#PolicyInput")
}

// NewFactsValidator validates fact tables.
func NewFactsValidator() (*Validator, error) {
	return newValidator("facts.cue", "#Facts")
}

// NewFactsDeltaValidator validates a delta between two fact snapshots.
func NewFactsDeltaValidator() (*Validator, error) {
	return newValidator("facts.cue", "#FactsDelta")
}

// Definition returns the schema definition this validator enforces.
func (v *Validator) Definition() string {
	return v.definition
}

// Validate marshals data to JSON and checks it against the definition.
func (v *Validator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}
	return v.ValidateJSON(jsonBytes)
}

// ValidateJSON checks JSON bytes against the definition.
func (v *Validator) ValidateJSON(jsonBytes []byte) error {
	unified, err := v.unify(jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s validation failed: %w", v.definition, err)
	}
	return nil
}

// ValidationErrors returns every validation error for data, one per entry.
func (v *Validator) ValidationErrors(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	unified, err := v.unify(jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

func (v *Validator) unify(jsonBytes []byte) (cue.Value, error) {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling data as CUE: %w", dataValue.Err())
	}
	def := v.schema.LookupPath(cue.ParsePath(v.definition))
	return def.Unify(dataValue), nil
}
