package validator

import (
	"math"
	"strings"
	"testing"

	"schemagate/internal/evolution"
	"schemagate/internal/schema"
)

func parse(t *testing.T, doc string) schema.Node {
	t.Helper()
	n, err := schema.ParseJSON([]byte(doc))
	if err != nil {
		t.Fatalf("ParseJSON(%s) error = %v", doc, err)
	}
	return n
}

const (
	nameRequired = `{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`
	nameOptional = `{"type":"object","properties":{"name":{"type":"string"}},"required":[]}`
)

func TestValidateEvolution_PolicyViolation(t *testing.T) {
	r := ValidateEvolution(Context{
		Base:      parse(t, nameRequired),
		Candidate: parse(t, nameOptional),
		Mode:      evolution.LevelBackward,
	}, DefaultOptions())

	if r.Valid || r.Compatible {
		t.Fatalf("Valid=%v Compatible=%v, want both false", r.Valid, r.Compatible)
	}
	if len(r.Errors) != 1 {
		t.Fatalf("Errors = %+v", r.Errors)
	}
	issue := r.Errors[0]
	if issue.Path != PolicyPath || issue.Severity != SeverityError {
		t.Errorf("issue = %+v", issue)
	}
	if !strings.Contains(issue.Message, "BACKWARD") || issue.Suggestion == "" {
		t.Errorf("issue = %+v", issue)
	}

	if len(r.MigrationPath) != 1 || r.MigrationPath[0] != evolution.PreMigrationStep() {
		t.Errorf("MigrationPath = %+v", r.MigrationPath)
	}
	if len(r.Analysis.MigrationPath) != 0 {
		t.Errorf("analysis migration path was modified: %+v", r.Analysis.MigrationPath)
	}
	if r.MigrationComplexity != ComplexityModerate {
		t.Errorf("MigrationComplexity = %s", r.MigrationComplexity)
	}
	if r.Effort == nil || r.Effort.Hours != 5.5 || r.Effort.Confidence != 0.9 || len(r.Effort.Blockers) != 1 {
		t.Errorf("Effort = %+v", r.Effort)
	}
}

func TestValidateEvolution_AllowBreaking(t *testing.T) {
	r := ValidateEvolution(Context{
		Base:                 parse(t, nameRequired),
		Candidate:            parse(t, nameOptional),
		Mode:                 evolution.LevelFull,
		AllowBreakingChanges: true,
	}, DefaultOptions())

	if !r.Valid {
		t.Errorf("Valid = false, errors = %+v", r.Errors)
	}
	if r.Compatible {
		t.Error("Compatible should still report the gate verdict")
	}
	if len(r.Warnings) != 1 || r.Warnings[0].Path != PolicyPath {
		t.Errorf("Warnings = %+v", r.Warnings)
	}
}

func TestValidateEvolution_Modes(t *testing.T) {
	tests := []struct {
		mode           evolution.CompatibilityLevel
		wantCompatible bool
	}{
		{evolution.LevelBackward, false},
		{evolution.LevelBackwardTransitive, false},
		{evolution.LevelForward, true},
		{evolution.LevelFull, false},
		{evolution.LevelNone, true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r := ValidateEvolution(Context{
				Base:      parse(t, nameRequired),
				Candidate: parse(t, nameOptional),
				Mode:      tt.mode,
			}, DefaultOptions())
			if r.Compatible != tt.wantCompatible || r.Valid != tt.wantCompatible {
				t.Errorf("Compatible=%v Valid=%v, want %v", r.Compatible, r.Valid, tt.wantCompatible)
			}
		})
	}
}

func TestValidateEvolution_Identical(t *testing.T) {
	r := ValidateEvolution(Context{
		Base:      parse(t, nameRequired),
		Candidate: parse(t, nameRequired),
	}, DefaultOptions())

	if !r.Valid || !r.Compatible {
		t.Errorf("Valid=%v Compatible=%v", r.Valid, r.Compatible)
	}
	if r.Mode != evolution.LevelBackward {
		t.Errorf("Mode = %s, want BACKWARD default", r.Mode)
	}
	if r.MigrationComplexity != ComplexitySimple || len(r.MigrationPath) != 0 {
		t.Errorf("complexity=%s steps=%d", r.MigrationComplexity, len(r.MigrationPath))
	}
	if r.Effort.Hours != 2 || len(r.Effort.Blockers) != 0 {
		t.Errorf("Effort = %+v", r.Effort)
	}
}

func TestValidateEvolution_ManyRemovals(t *testing.T) {
	r := ValidateEvolution(Context{
		Base: parse(t, `{"type":"object",
			"properties":{"a":{},"b":{},"c":{},"d":{},"e":{}},
			"required":["a","b","c","d","e"]}`),
		Candidate: parse(t, `{"type":"object"}`),
		Mode:      evolution.LevelNone,
	}, DefaultOptions())

	if !r.Valid {
		t.Errorf("NONE should accept, errors = %+v", r.Errors)
	}
	if r.Analysis.RiskAssessment.OverallRisk != evolution.RiskCritical {
		t.Errorf("risk = %s", r.Analysis.RiskAssessment.OverallRisk)
	}
	if r.MigrationComplexity != ComplexityCritical {
		t.Errorf("MigrationComplexity = %s", r.MigrationComplexity)
	}
	if r.Effort.Hours != 28 || math.Abs(r.Effort.Confidence-0.6) > 1e-9 || len(r.Effort.Blockers) != 10 {
		t.Errorf("Effort = %+v", r.Effort)
	}
}

func TestValidateEvolution_Options(t *testing.T) {
	r := ValidateEvolution(Context{
		Base:      parse(t, `{"type":"integer","minimum":5,"maximum":1}`),
		Candidate: parse(t, `{"type":"string"}`),
		Mode:      evolution.LevelFull,
	}, Options{})

	if !r.Valid || len(r.Errors) != 0 || len(r.Warnings) != 0 {
		t.Errorf("no checks selected, got errors=%+v warnings=%+v", r.Errors, r.Warnings)
	}
	if r.Compatible {
		t.Error("Compatible should reflect the gate even when the policy check is off")
	}
	if r.Effort != nil {
		t.Errorf("Effort = %+v, want nil", r.Effort)
	}

	structural := ValidateEvolution(Context{
		Base:      parse(t, `{"type":"integer","minimum":5,"maximum":1}`),
		Candidate: parse(t, `{"type":"integer"}`),
	}, Options{CheckStructure: true})
	if structural.Valid || len(structural.Errors) != 1 || !strings.HasPrefix(structural.Errors[0].Path, "base/") {
		t.Errorf("Errors = %+v", structural.Errors)
	}
}

func TestComplexityOf(t *testing.T) {
	tests := []struct {
		breaking, total, steps int
		want                   Complexity
	}{
		{0, 0, 0, ComplexitySimple},
		{0, 3, 0, ComplexitySimple},
		{0, 4, 0, ComplexityModerate},
		{2, 2, 5, ComplexityModerate},
		{2, 2, 6, ComplexityComplex},
		{3, 3, 2, ComplexityComplex},
		{5, 5, 10, ComplexityComplex},
		{5, 5, 11, ComplexityCritical},
		{6, 6, 1, ComplexityCritical},
	}
	for _, tt := range tests {
		sum := evolution.Summary{TotalChanges: tt.total, BreakingChanges: tt.breaking}
		if got := ComplexityOf(sum, tt.steps); got != tt.want {
			t.Errorf("ComplexityOf(B=%d, total=%d, steps=%d) = %s, want %s", tt.breaking, tt.total, tt.steps, got, tt.want)
		}
	}
}

func TestEstimateEffort(t *testing.T) {
	breakingHigh := evolution.Change{Breaking: true, Impact: evolution.ImpactHigh, Description: "boom"}
	breakingMedium := evolution.Change{Breaking: true, Impact: evolution.ImpactMedium, Description: "meh"}
	safe := evolution.Change{Impact: evolution.ImpactLow}

	tests := []struct {
		name           string
		changes        []evolution.Change
		steps          int
		wantHours      float64
		wantConfidence float64
		wantBlockers   int
	}{
		{"empty", nil, 0, 2, 0.9, 0},
		{"mixed", []evolution.Change{breakingHigh, breakingMedium, safe}, 2, 2 + 1.5 + 4 + 2, 0.9, 1},
		{"many breaking", repeat(breakingHigh, 4), 1, 2 + 2 + 8 + 1, 0.6, 4},
		{"everything", repeat(breakingHigh, 11), 6, 2 + 5.5 + 22 + 6, 0.3, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := EstimateEffort(tt.changes, tt.steps)
			if e.Hours != tt.wantHours {
				t.Errorf("Hours = %v, want %v", e.Hours, tt.wantHours)
			}
			if math.Abs(e.Confidence-tt.wantConfidence) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", e.Confidence, tt.wantConfidence)
			}
			if len(e.Blockers) != tt.wantBlockers {
				t.Errorf("Blockers = %q", e.Blockers)
			}
		})
	}
}

func repeat(c evolution.Change, n int) []evolution.Change {
	out := make([]evolution.Change, n)
	for i := range out {
		out[i] = c
	}
	return out
}
