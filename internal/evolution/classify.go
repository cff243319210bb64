package evolution

import (
	"encoding/json"
	"fmt"
	"math"

	"schemagate/internal/schema"
)

// CompatibleTypes reports whether data valid for oldType stays valid for
// newType. Integer widening to number is the only compatible change.
func CompatibleTypes(oldType, newType string) bool {
	return oldType == newType || (oldType == "integer" && newType == "number")
}

func classifyType(kind ChangeKind, field, path, oldType, newType string) []Change {
	if oldType == newType {
		return nil
	}

	breaking := !CompatibleTypes(oldType, newType)
	impact := ImpactHigh
	desc := fmt.Sprintf("%s type changed from %s to %s", subject(field), typeLabel(oldType), typeLabel(newType))
	if !breaking {
		impact = ImpactMedium
		desc += " (safe widening)"
	}

	return []Change{{
		Kind:        kind,
		Field:       field,
		Path:        path,
		Breaking:    breaking,
		Direction:   DirectionBoth,
		Impact:      impact,
		Description: desc,
		OldValue:    optional(oldType),
		NewValue:    optional(newType),
	}}
}

func classifyEnum(field, path string, oldEnum, newEnum []any) []Change {
	switch {
	case oldEnum == nil && newEnum == nil:
		return nil
	case oldEnum == nil:
		return []Change{{
			Kind:        ChangeEnumAdded,
			Field:       field,
			Path:        path,
			Breaking:    true,
			Direction:   DirectionBoth,
			Impact:      ImpactHigh,
			Description: fmt.Sprintf("%s is now restricted to %d enum value(s)", subject(field), len(newEnum)),
			NewValue:    newEnum,
		}}
	case newEnum == nil:
		return []Change{{
			Kind:        ChangeEnumRemoved,
			Field:       field,
			Path:        path,
			Breaking:    false,
			Direction:   DirectionBoth,
			Impact:      ImpactLow,
			Description: fmt.Sprintf("%s no longer has an enum restriction", subject(field)),
			OldValue:    oldEnum,
		}}
	}

	oldKeys := literalSet(oldEnum)
	newKeys := literalSet(newEnum)

	var changes []Change
	for _, v := range oldEnum {
		if _, kept := newKeys[literalKey(v)]; kept {
			continue
		}
		changes = append(changes, Change{
			Kind:        ChangeEnumValueRemoved,
			Field:       field,
			Path:        path,
			Breaking:    true,
			Direction:   DirectionBoth,
			Impact:      ImpactHigh,
			Description: fmt.Sprintf("%s no longer accepts enum value %s", subject(field), literalKey(v)),
			OldValue:    v,
		})
	}
	for _, v := range newEnum {
		if _, existed := oldKeys[literalKey(v)]; existed {
			continue
		}
		changes = append(changes, Change{
			Kind:        ChangeEnumValueAdded,
			Field:       field,
			Path:        path,
			Breaking:    false,
			Direction:   DirectionBoth,
			Impact:      ImpactLow,
			Description: fmt.Sprintf("%s accepts new enum value %s", subject(field), literalKey(v)),
			NewValue:    v,
		})
	}
	return dedupe(changes)
}

func classifyConstraints(field, path string, oldNode, newNode schema.Node) []Change {
	oldCons := schema.ConstraintMap(oldNode)
	newCons := schema.ConstraintMap(newNode)

	var changes []Change
	for _, keyword := range schema.ConstraintKeywords {
		o, hadOld := oldCons[keyword]
		n, hasNew := newCons[keyword]
		keyPath := path + "/" + keyword

		switch {
		case !hadOld && !hasNew:
			continue
		case !hadOld:
			changes = append(changes, tightened(field, keyPath, nil, n,
				fmt.Sprintf("%s gained constraint %s=%s", subject(field), keyword, n.Display())))
		case !hasNew:
			changes = append(changes, relaxed(field, keyPath, o, nil, ImpactLow,
				fmt.Sprintf("%s dropped constraint %s", subject(field), keyword)))
		default:
			if c, ok := compareConstraint(field, keyPath, o, n); ok {
				changes = append(changes, c)
			}
		}
	}
	return changes
}

// compareConstraint judges a keyword present on both sides. Floors may only
// fall and ceilings may only rise without excluding previously valid data.
func compareConstraint(field, path string, o, n schema.Constraint) (Change, bool) {
	detail := fmt.Sprintf("%s %s changed from %s to %s", subject(field), o.Keyword, o.Display(), n.Display())

	switch o.Kind {
	case schema.Floor:
		switch {
		case n.Num > o.Num:
			return tightened(field, path, &o, n, detail), true
		case n.Num < o.Num:
			return relaxed(field, path, o, &n, ImpactMedium, detail), true
		}
	case schema.Ceiling:
		switch {
		case n.Num < o.Num:
			return tightened(field, path, &o, n, detail), true
		case n.Num > o.Num:
			return relaxed(field, path, o, &n, ImpactMedium, detail), true
		}
	case schema.Divisor:
		if n.Num == o.Num {
			return Change{}, false
		}
		// every multiple of the old divisor stays valid iff old is a whole multiple of new
		if n.Num != 0 && isWholeMultiple(o.Num, n.Num) {
			return relaxed(field, path, o, &n, ImpactMedium, detail), true
		}
		return tightened(field, path, &o, n, detail), true
	case schema.Text:
		if n.Text != o.Text {
			return tightened(field, path, &o, n, detail), true
		}
	}
	return Change{}, false
}

func tightened(field, path string, o *schema.Constraint, n schema.Constraint, desc string) Change {
	c := Change{
		Kind:        ChangeConstraintTightened,
		Field:       field,
		Path:        path,
		Breaking:    true,
		Direction:   DirectionBoth,
		Impact:      ImpactHigh,
		Description: desc,
		NewValue:    n.Value(),
	}
	if o != nil {
		c.OldValue = o.Value()
	}
	return c
}

func relaxed(field, path string, o schema.Constraint, n *schema.Constraint, impact Impact, desc string) Change {
	c := Change{
		Kind:        ChangeConstraintRelaxed,
		Field:       field,
		Path:        path,
		Breaking:    false,
		Direction:   DirectionBoth,
		Impact:      impact,
		Description: desc,
		OldValue:    o.Value(),
	}
	if n != nil {
		c.NewValue = n.Value()
	}
	return c
}

func isWholeMultiple(a, b float64) bool {
	q := a / b
	return math.Abs(q-math.Round(q)) < 1e-9
}

// literalKey is the canonical JSON form of an enum literal.
func literalKey(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func literalSet(values []any) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[literalKey(v)] = struct{}{}
	}
	return set
}

// dedupe drops repeated enum value changes caused by duplicate literals.
func dedupe(changes []Change) []Change {
	seen := make(map[string]bool, len(changes))
	out := changes[:0]
	for _, c := range changes {
		key := string(c.Kind) + "\x00" + literalKey(c.OldValue) + "\x00" + literalKey(c.NewValue)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func subject(field string) string {
	if field == RootField {
		return "Root schema"
	}
	return fmt.Sprintf("Field '%s'", field)
}

func typeLabel(t string) string {
	if t == "" {
		return "(untyped)"
	}
	return t
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
