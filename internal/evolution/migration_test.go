package evolution

import (
	"strings"
	"testing"
)

func TestGenerateMigrationPath(t *testing.T) {
	changes := []Change{
		{Kind: ChangeMetadata, Field: RootField},
		{Kind: ChangeRequiredFieldAdded, Field: "id", Breaking: true},
		{Kind: ChangeFieldType, Field: "age", OldValue: "string", NewValue: "integer", Breaking: true},
		{Kind: ChangeFieldRemoved, Field: "gone", Breaking: true},
		{Kind: ChangeConstraintTightened, Field: "name", Path: "/properties/name/maxLength", Breaking: true},
		{Kind: ChangeEnumValueRemoved, Field: "status", OldValue: "archived", Breaking: true},
	}

	steps := GenerateMigrationPath(changes)
	want := []struct {
		action     string
		field      string
		automated  bool
		complexity Impact
	}{
		{"Add default value", "id", false, ImpactMedium},
		{"Migrate field type", "age", false, ImpactHigh},
		{"Validate existing data", "name", true, ImpactMedium},
		{"Update enum values", "status", false, ImpactHigh},
	}
	if len(steps) != len(want) {
		t.Fatalf("got %d steps, want %d: %+v", len(steps), len(want), steps)
	}
	for i, w := range want {
		s := steps[i]
		if s.Action != w.action || s.Field != w.field || s.Automated != w.automated || s.Complexity != w.complexity {
			t.Errorf("step %d = %+v, want %+v", i, s, w)
		}
		if s.Description == "" || s.Code == "" {
			t.Errorf("step %d missing description or code", i)
		}
	}
	if !strings.Contains(steps[1].Description, "from string to integer") {
		t.Errorf("type step description = %q", steps[1].Description)
	}
	if !strings.Contains(steps[3].Description, `"archived"`) {
		t.Errorf("enum step description = %q", steps[3].Description)
	}
}

func TestGenerateMigrationPath_Empty(t *testing.T) {
	steps := GenerateMigrationPath(nil)
	if steps == nil || len(steps) != 0 {
		t.Errorf("GenerateMigrationPath(nil) = %#v, want empty non-nil", steps)
	}
}

func TestPrependPreMigration(t *testing.T) {
	base := []MigrationStep{{Action: "Add default value", Field: "id"}}

	safe := PrependPreMigration(base, []Change{{Kind: ChangeFieldAdded}})
	if len(safe) != 1 || safe[0].Action != "Add default value" {
		t.Errorf("non-breaking steps = %+v", safe)
	}

	breaking := PrependPreMigration(base, []Change{{Kind: ChangeFieldRemoved, Breaking: true}})
	if len(breaking) != 2 {
		t.Fatalf("got %d steps, want 2", len(breaking))
	}
	pre := breaking[0]
	if pre != PreMigrationStep() || !pre.Automated || pre.Complexity != ImpactMedium {
		t.Errorf("first step = %+v", pre)
	}
	if len(base) != 1 || base[0].Action != "Add default value" {
		t.Errorf("input modified: %+v", base)
	}
}
