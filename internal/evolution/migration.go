package evolution

import "fmt"

// stepRule builds the migration step for one change kind.
type stepRule func(c Change) MigrationStep

var migrationRules = map[ChangeKind]stepRule{
	ChangeRequiredFieldAdded: func(c Change) MigrationStep {
		return MigrationStep{
			Action:      "Add default value",
			Field:       c.Field,
			Description: fmt.Sprintf("Add a default value for new required field '%s' to existing records", c.Field),
			Code:        fmt.Sprintf("UPDATE records SET %s = <default> WHERE %s IS NULL;", c.Field, c.Field),
			Automated:   false,
			Complexity:  ImpactMedium,
		}
	},
	ChangeFieldType: func(c Change) MigrationStep {
		return MigrationStep{
			Action:      "Migrate field type",
			Field:       c.Field,
			Description: fmt.Sprintf("Migrate field '%s' from %s to %s", c.Field, valueLabel(c.OldValue), valueLabel(c.NewValue)),
			Code:        fmt.Sprintf("record.%s = convert(record.%s, %q)", c.Field, c.Field, valueLabel(c.NewValue)),
			Automated:   false,
			Complexity:  ImpactHigh,
		}
	},
	ChangeConstraintTightened: func(c Change) MigrationStep {
		return MigrationStep{
			Action:      "Validate existing data",
			Field:       c.Field,
			Description: fmt.Sprintf("Validate existing data for '%s' against the new constraint at %s", c.Field, c.Path),
			Code:        fmt.Sprintf("SELECT id FROM records WHERE NOT satisfies(%s, %q);", c.Field, c.Path),
			Automated:   true,
			Complexity:  ImpactMedium,
		}
	},
	ChangeEnumValueRemoved: func(c Change) MigrationStep {
		return MigrationStep{
			Action:      "Update enum values",
			Field:       c.Field,
			Description: fmt.Sprintf("Update existing records of '%s' that use removed enum value %s", c.Field, literalKey(c.OldValue)),
			Code:        fmt.Sprintf("UPDATE records SET %s = <replacement> WHERE %s = %s;", c.Field, c.Field, literalKey(c.OldValue)),
			Automated:   false,
			Complexity:  ImpactHigh,
		}
	},
}

// GenerateMigrationPath maps changes to migration steps in change order.
// Changes without a rule produce no step.
func GenerateMigrationPath(changes []Change) []MigrationStep {
	steps := []MigrationStep{}
	for _, c := range changes {
		if rule, ok := migrationRules[c.Kind]; ok {
			steps = append(steps, rule(c))
		}
	}
	return steps
}

// PreMigrationStep validates all existing data before any breaking change is applied.
func PreMigrationStep() MigrationStep {
	return MigrationStep{
		Action:      "Run pre-migration validation",
		Field:       "*",
		Description: "Validate all existing data against the candidate schema before applying breaking changes",
		Code:        "schemagate validate <base> <candidate>",
		Automated:   true,
		Complexity:  ImpactMedium,
	}
}

// PrependPreMigration returns steps with PreMigrationStep in front when any
// change is breaking. steps is not modified.
func PrependPreMigration(steps []MigrationStep, changes []Change) []MigrationStep {
	out := make([]MigrationStep, 0, len(steps)+1)
	if HasBreaking(changes) {
		out = append(out, PreMigrationStep())
	}
	return append(out, steps...)
}

func valueLabel(v any) string {
	if v == nil {
		return "(untyped)"
	}
	return fmt.Sprint(v)
}
