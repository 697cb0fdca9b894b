package validator

// The CUE validator is the contract guard between the pipeline stages and
// every downstream consumer of the JSON artifacts (fact tables, run report).
// If a field name drifts or a type changes, rule queries silently match
// nothing, so a schema violation crashes the run immediately with a message
// naming the offending field instead.

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed report_schema.cue
var reportSchemaFS embed.FS

//go:embed facts_schema.cue
var factsSchemaFS embed.FS

// ReportValidator validates the run report against the report schema.
type ReportValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New creates a validator for the run report.
func New() (*ReportValidator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := reportSchemaFS.ReadFile("report_schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded report schema: %w", err)
	}

	// report_schema.cue references definitions (#DiagnosticRow, #Severity)
	// declared in its package sibling facts_schema.cue, so that file must be
	// in scope when the report schema is compiled standalone.
	factsBytes, err := factsSchemaFS.ReadFile("facts_schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded facts schema: %w", err)
	}

	factsSchema := ctx.CompileBytes(factsBytes)
	if factsSchema.Err() != nil {
		return nil, fmt.Errorf("compiling facts schema: %w", factsSchema.Err())
	}

	schema := ctx.CompileBytes(schemaBytes, cue.Scope(factsSchema))
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling report schema: %w", schema.Err())
	}

	return &ReportValidator{
		ctx:    ctx,
		schema: schema,
	}, nil
}

// Validate checks that the report conforms to the #Report definition.
func (v *ReportValidator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling report to JSON: %w", err)
	}
	return v.ValidateJSON(jsonBytes)
}

// ValidateJSON validates JSON bytes directly against the report schema.
func (v *ReportValidator) ValidateJSON(jsonBytes []byte) error {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling report as CUE: %w", dataValue.Err())
	}

	reportDef := v.schema.LookupPath(cue.ParsePath("#Report"))
	if reportDef.Err() != nil {
		return fmt.Errorf("looking up #Report definition: %w", reportDef.Err())
	}

	unified := reportDef.Unify(dataValue)
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("report schema validation failed: %w", err)
	}

	return nil
}

// ValidationErrors returns detailed information about all validation errors.
func (v *ReportValidator) ValidationErrors(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return []string{fmt.Sprintf("compile error: %v", dataValue.Err())}
	}

	reportDef := v.schema.LookupPath(cue.ParsePath("#Report"))
	if reportDef.Err() != nil {
		return []string{fmt.Sprintf("schema lookup error: %v", reportDef.Err())}
	}

	unified := reportDef.Unify(dataValue)
	err = unified.Validate()
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

// FactsValidator validates relational fact tables against the facts schema.
type FactsValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewFactsValidator creates a validator for relational fact tables.
func NewFactsValidator() (*FactsValidator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := factsSchemaFS.ReadFile("facts_schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading facts schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling facts schema: %w", schema.Err())
	}

	return &FactsValidator{
		ctx:    ctx,
		schema: schema,
	}, nil
}

// Validate checks that the fact tables conform to the #FactTables definition.
func (v *FactsValidator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling facts to JSON: %w", err)
	}

	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling facts as CUE: %w", dataValue.Err())
	}

	factsDef := v.schema.LookupPath(cue.ParsePath("#FactTables"))
	if factsDef.Err() != nil {
		return fmt.Errorf("looking up #FactTables definition: %w", factsDef.Err())
	}

	unified := factsDef.Unify(dataValue)
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("facts schema validation failed: %w", err)
	}

	return nil
}
