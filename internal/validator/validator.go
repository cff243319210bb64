// Package validator composes the evolution engine into a publish-time policy
// check: both schemas must be well formed, the candidate must satisfy the
// subject's compatibility mode, and the result carries a migration plan with
// a rough effort estimate.
package validator

import (
	"fmt"

	"schemagate/internal/evolution"
	"schemagate/internal/schema"
)

// Severity of a validation issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// PolicyPath is the issue path used for compatibility-mode violations.
const PolicyPath = "$"

// ValidationIssue is one problem found while validating an evolution
type ValidationIssue struct {
	Path       string   `json:"path"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Context holds the inputs of one validation
type Context struct {
	Base                 schema.Node
	Candidate            schema.Node
	Mode                 evolution.CompatibilityLevel // empty means BACKWARD
	AllowBreakingChanges bool
}

// Options selects which checks run
type Options struct {
	CheckStructure     bool
	CheckCompatibility bool
	EstimateEffort     bool
}

// DefaultOptions enables every check.
func DefaultOptions() Options {
	return Options{
		CheckStructure:     true,
		CheckCompatibility: true,
		EstimateEffort:     true,
	}
}

// Result is the EvolutionValidationResult
type Result struct {
	Valid               bool                         `json:"valid"`
	Mode                evolution.CompatibilityLevel `json:"mode"`
	Errors              []ValidationIssue            `json:"errors"`
	Warnings            []ValidationIssue            `json:"warnings"`
	Compatible          bool                         `json:"compatible"`
	Analysis            *evolution.EvolutionAnalysis `json:"analysis"`
	MigrationPath       []evolution.MigrationStep    `json:"migrationPath"`
	MigrationComplexity Complexity                   `json:"migrationComplexity"`
	Effort              *EffortEstimate              `json:"effort,omitempty"`
}

// ValidateEvolution runs the selected checks. It never fails; every problem
// is reported as an issue.
func ValidateEvolution(ec Context, opts Options) *Result {
	mode := ec.Mode
	if mode == "" {
		mode = evolution.LevelBackward
	}

	analysis := evolution.AnalyzeEvolution(ec.Base, ec.Candidate)
	steps := evolution.PrependPreMigration(analysis.MigrationPath, analysis.Changes)
	sum := evolution.Summarize(analysis.Changes)

	r := &Result{
		Mode:                mode,
		Errors:              []ValidationIssue{},
		Warnings:            []ValidationIssue{},
		Compatible:          evolution.CheckCompatibilityLevel(analysis.Changes, mode),
		Analysis:            analysis,
		MigrationPath:       steps,
		MigrationComplexity: ComplexityOf(sum, len(steps)),
	}

	if opts.CheckStructure {
		r.add(CheckStructure("base", ec.Base))
		r.add(CheckStructure("candidate", ec.Candidate))
	}

	if opts.CheckCompatibility && !r.Compatible {
		check := evolution.Check(analysis.Changes, mode)
		issue := ValidationIssue{
			Path:       PolicyPath,
			Severity:   SeverityError,
			Message:    fmt.Sprintf("Schema evolution violates %s compatibility mode: %d breaking change(s)", mode, len(check.Violations)),
			Suggestion: check.Action,
		}
		if ec.AllowBreakingChanges {
			issue.Severity = SeverityWarning
			issue.Message += " (allowed by policy)"
		}
		r.add([]ValidationIssue{issue})
	}

	if opts.EstimateEffort {
		e := EstimateEffort(analysis.Changes, len(steps))
		r.Effort = &e
	}

	r.Valid = len(r.Errors) == 0
	return r
}

func (r *Result) add(issues []ValidationIssue) {
	for _, is := range issues {
		if is.Severity == SeverityError {
			r.Errors = append(r.Errors, is)
		} else {
			r.Warnings = append(r.Warnings, is)
		}
	}
}
