package evolution

import (
	"fmt"
	"slices"
	"strings"
	"testing"

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

func analyze(t *testing.T, oldDoc, newDoc string) *EvolutionAnalysis {
	t.Helper()
	return AnalyzeEvolution(parse(t, oldDoc), parse(t, newDoc))
}

func onlyChange(t *testing.T, a *EvolutionAnalysis) Change {
	t.Helper()
	if len(a.Changes) != 1 {
		t.Fatalf("got %d changes, want 1: %+v", len(a.Changes), a.Changes)
	}
	return a.Changes[0]
}

func TestAnalyzeEvolution_RequiredFieldRemoved(t *testing.T) {
	a := analyze(t,
		`{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`,
		`{"type":"object","properties":{"name":{"type":"string"}},"required":[]}`)

	c := onlyChange(t, a)
	if c.Kind != ChangeRequiredFieldRemoved {
		t.Errorf("Kind = %s, want %s", c.Kind, ChangeRequiredFieldRemoved)
	}
	if !c.Breaking || c.Direction != DirectionBackward || c.Impact != ImpactHigh {
		t.Errorf("got breaking=%v direction=%s impact=%s, want true/backward/HIGH", c.Breaking, c.Direction, c.Impact)
	}
	if c.Field != "name" || c.Path != "/required/name" {
		t.Errorf("Field/Path = %q/%q", c.Field, c.Path)
	}
	if a.IsBackwardCompatible {
		t.Error("IsBackwardCompatible = true, want false")
	}
	if !a.IsForwardCompatible {
		t.Error("IsForwardCompatible = false, want true")
	}
}

func TestAnalyzeEvolution_IntegerWidening(t *testing.T) {
	a := analyze(t,
		`{"properties":{"age":{"type":"integer"}}}`,
		`{"properties":{"age":{"type":"number"}}}`)

	c := onlyChange(t, a)
	if c.Kind != ChangeFieldType {
		t.Errorf("Kind = %s, want %s", c.Kind, ChangeFieldType)
	}
	if c.Breaking {
		t.Error("integer to number must not be breaking")
	}
	if c.Impact != ImpactMedium {
		t.Errorf("Impact = %s, want MEDIUM", c.Impact)
	}
	if c.Path != "/properties/age/type" {
		t.Errorf("Path = %q", c.Path)
	}
	if !a.IsBackwardCompatible || !a.IsForwardCompatible {
		t.Error("widening should stay compatible both ways")
	}
}

func TestAnalyzeEvolution_EnumValueRemoved(t *testing.T) {
	a := analyze(t,
		`{"properties":{"status":{"type":"string","enum":["a","b"]}}}`,
		`{"properties":{"status":{"type":"string","enum":["a"]}}}`)

	c := onlyChange(t, a)
	if c.Kind != ChangeEnumValueRemoved || !c.Breaking || c.Impact != ImpactHigh {
		t.Errorf("got %+v, want breaking HIGH ENUM_VALUE_REMOVED", c)
	}
	if c.OldValue != "b" {
		t.Errorf("OldValue = %v, want b", c.OldValue)
	}
	if a.RiskAssessment.OverallRisk != RiskMedium {
		t.Errorf("OverallRisk = %s, want MEDIUM", a.RiskAssessment.OverallRisk)
	}
	if len(a.MigrationPath) != 1 || a.MigrationPath[0].Action != "Update enum values" {
		t.Errorf("MigrationPath = %+v", a.MigrationPath)
	}
}

func TestAnalyzeEvolution_AdditionalPropertiesRestricted(t *testing.T) {
	a := analyze(t,
		`{"type":"object"}`,
		`{"type":"object","additionalProperties":false}`)

	c := onlyChange(t, a)
	if c.Kind != ChangeAdditionalRestricted || !c.Breaking || c.Impact != ImpactHigh {
		t.Errorf("got %+v", c)
	}
	if !CheckCompatibilityLevel(a.Changes, LevelNone) {
		t.Error("NONE must always pass")
	}
	if CheckCompatibilityLevel(a.Changes, LevelFull) {
		t.Error("FULL must fail")
	}
}

func TestAnalyzeEvolution_ManyBreakingChangesAreCritical(t *testing.T) {
	a := analyze(t,
		`{"type":"object",
		  "properties":{"a":{"type":"string"},"b":{"type":"string"},"c":{"type":"string"},"d":{"type":"string"},"e":{"type":"string"}},
		  "required":["a","b","c","d","e"]}`,
		`{"type":"object"}`)

	sum := Summarize(a.Changes)
	if sum.BreakingChanges != 10 || sum.HighImpact != 10 {
		t.Fatalf("Summary = %+v, want 10 breaking HIGH changes", sum)
	}
	risk := a.RiskAssessment
	if risk.OverallRisk != RiskCritical {
		t.Errorf("OverallRisk = %s, want CRITICAL", risk.OverallRisk)
	}
	for _, want := range []string{ActionSplitChange, ActionRollbackPlan} {
		if !slices.Contains(risk.RecommendedActions, want) {
			t.Errorf("RecommendedActions missing %q", want)
		}
	}
}

func TestAnalyzeEvolution_Identical(t *testing.T) {
	docs := []string{
		`{}`,
		`true`,
		`{"type":"string","minLength":1,"pattern":"^a"}`,
		`{"type":"object","title":"T","properties":{"x":{"type":"integer","enum":[1,2]}},"required":["x"],"additionalProperties":false}`,
		`{"allOf":[{"type":"object"}],"oneOf":[{"required":["a"]},{"required":["b"]}]}`,
	}
	for _, doc := range docs {
		t.Run(doc, func(t *testing.T) {
			a := analyze(t, doc, doc)
			if len(a.Changes) != 0 {
				t.Errorf("Changes = %+v, want none", a.Changes)
			}
			if a.Changes == nil || a.MigrationPath == nil {
				t.Error("Changes and MigrationPath must be non-nil")
			}
			if !a.IsBackwardCompatible || !a.IsForwardCompatible {
				t.Error("identical schemas must be compatible")
			}
			if a.RiskAssessment.OverallRisk != RiskLow {
				t.Errorf("OverallRisk = %s, want LOW", a.RiskAssessment.OverallRisk)
			}
		})
	}
}

func TestAnalyzeEvolution_Deterministic(t *testing.T) {
	oldDoc := `{"type":"object","properties":{"a":{"type":"string"},"b":{"enum":[1,2,3]}},"required":["a"]}`
	newDoc := `{"type":"object","properties":{"b":{"enum":[3,4]},"c":{"type":"boolean"}},"required":["c"]}`

	first := analyze(t, oldDoc, newDoc)
	for i := 0; i < 5; i++ {
		again := analyze(t, oldDoc, newDoc)
		if fmt.Sprint(again.Changes) != fmt.Sprint(first.Changes) {
			t.Fatalf("run %d differs:\n%v\n%v", i, again.Changes, first.Changes)
		}
	}
}

// Pairs here only drop required fields. Optional removals have no dual, see
// TestAnalyzeEvolution_OptionalRemovalHasNoDual.
func TestAnalyzeEvolution_DirectionDuality(t *testing.T) {
	pairs := []struct{ a, b string }{
		{
			`{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`,
			`{"type":"object"}`,
		},
		{
			`{"type":"object","properties":{"id":{"type":"integer"},"tag":{"type":"string"}},"required":["id","tag"]}`,
			`{"type":"object","properties":{"id":{"type":"integer"}},"required":["id"]}`,
		},
	}

	for i, p := range pairs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			forward := analyze(t, p.a, p.b)
			reversed := analyze(t, p.b, p.a)

			checked := 0
			for _, c := range forward.Changes {
				if !c.Breaking || c.Direction != DirectionBackward {
					continue
				}
				checked++
				if !slices.ContainsFunc(reversed.Changes, func(r Change) bool {
					return r.Breaking && r.Field == c.Field && r.Direction == DirectionForward
				}) {
					t.Errorf("no forward counterpart for %s on %q in %+v", c.Kind, c.Field, reversed.Changes)
				}
			}
			if checked == 0 {
				t.Fatal("pair produced no backward-breaking change")
			}
			if forward.IsBackwardCompatible || !reversed.IsBackwardCompatible {
				t.Error("compatibility should flip when the pair is swapped")
			}
			if forward.IsForwardCompatible == reversed.IsForwardCompatible {
				t.Error("forward compatibility should flip when the pair is swapped")
			}
		})
	}
}

// Removing an optional field breaks backward compatibility, but adding it
// back is never breaking, so FIELD_REMOVED has no forward-breaking dual.
func TestAnalyzeEvolution_OptionalRemovalHasNoDual(t *testing.T) {
	withNote := `{"type":"object","properties":{"id":{"type":"string"},"note":{"type":"string"}}}`
	without := `{"type":"object","properties":{"id":{"type":"string"}}}`

	removed := onlyChange(t, analyze(t, withNote, without))
	if removed.Kind != ChangeFieldRemoved || !removed.Breaking || removed.Direction != DirectionBackward {
		t.Fatalf("removal = %+v", removed)
	}

	swapped := analyze(t, without, withNote)
	added := onlyChange(t, swapped)
	if added.Kind != ChangeFieldAdded || added.Breaking {
		t.Errorf("re-adding an optional field = %+v, want non-breaking FIELD_ADDED", added)
	}
	if !swapped.IsBackwardCompatible || !swapped.IsForwardCompatible {
		t.Error("re-adding an optional field should be compatible both ways")
	}
}

func TestAnalyzeEvolution_GateConsistency(t *testing.T) {
	pairs := []struct{ a, b string }{
		{`{}`, `{}`},
		{`{"properties":{"x":{"type":"string"}}}`, `{"properties":{"x":{"type":"integer"}}}`},
		{`{"required":["x"]}`, `{}`},
		{`{}`, `{"required":["x"]}`},
		{`{"properties":{"x":{"type":"integer"}}}`, `{"properties":{"x":{"type":"number"}}}`},
		{`{"type":"object"}`, `{"type":"object","additionalProperties":false}`},
		{`{"title":"a"}`, `{"title":"b"}`},
	}
	for _, p := range pairs {
		t.Run(p.a+"->"+p.b, func(t *testing.T) {
			changes := analyze(t, p.a, p.b).Changes
			full := CheckCompatibilityLevel(changes, LevelFull)
			both := IsBackwardCompatible(changes) && IsForwardCompatible(changes)
			if full != both {
				t.Errorf("FULL = %v, backward&&forward = %v", full, both)
			}
		})
	}
}

func TestAnalyzeEvolution_ShallowPropertyDiff(t *testing.T) {
	a := analyze(t,
		`{"properties":{"address":{"type":"object","properties":{"zip":{"type":"string"}},"required":["zip"]}}}`,
		`{"properties":{"address":{"type":"object","properties":{"zip":{"type":"integer"}}}}}`)

	if len(a.Changes) != 0 {
		t.Errorf("nested changes should not be reported, got %+v", a.Changes)
	}
}

func TestAnalyzeEvolution_NilSchemas(t *testing.T) {
	a := AnalyzeEvolution(nil, nil)
	if len(a.Changes) != 0 || !a.IsBackwardCompatible {
		t.Errorf("nil schemas should compare equal, got %+v", a)
	}

	b := AnalyzeEvolution(nil, parse(t, `{"type":"string"}`))
	c := onlyChange(t, b)
	if c.Kind != ChangeType || c.OldValue != nil || c.NewValue != "string" {
		t.Errorf("got %+v", c)
	}
	if !strings.Contains(c.Description, "(untyped)") {
		t.Errorf("Description = %q", c.Description)
	}
}

func TestAnalyzeDocuments(t *testing.T) {
	oldDoc, err := schema.ParseBytes([]byte(`{"type":"object","required":["a"]}`), false)
	if err != nil {
		t.Fatal(err)
	}
	newDoc, err := schema.ParseBytes([]byte("type: object\n"), true)
	if err != nil {
		t.Fatal(err)
	}

	a := AnalyzeDocuments(oldDoc, newDoc)
	c := onlyChange(t, a)
	if c.Kind != ChangeRequiredFieldRemoved {
		t.Errorf("Kind = %s", c.Kind)
	}
}
