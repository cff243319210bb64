package evolution

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"schemagate/internal/schema"
)

// pass is one independent detection pass. Passes never see each other's output.
type pass func(oldNode, newNode schema.Node) []Change

// detectionPasses run in this order; the order only affects output readability.
var detectionPasses = []pass{
	detectMetadata,
	detectRootType,
	detectRequired,
	detectProperties,
	detectPropertyChanges,
	detectComposition,
	detectAdditionalProperties,
}

// DetectChanges returns every structural difference between two versions of
// a schema, in detection order. It is deterministic and never fails.
//
// Only the root and its direct properties are compared. Changes nested
// inside a property's own properties or items are not reported.
func DetectChanges(oldNode, newNode schema.Node) []Change {
	oldNode, newNode = orEmpty(oldNode), orEmpty(newNode)

	changes := []Change{}
	for _, p := range detectionPasses {
		changes = append(changes, p(oldNode, newNode)...)
	}
	return changes
}

func orEmpty(n schema.Node) schema.Node {
	if n == nil {
		return &schema.UnknownNode{}
	}
	return n
}

// Pass 1: title and description.
func detectMetadata(oldNode, newNode schema.Node) []Change {
	om, nm := oldNode.Meta(), newNode.Meta()

	var changes []Change
	meta := func(keyword, oldValue, newValue string) {
		if oldValue == newValue {
			return
		}
		changes = append(changes, Change{
			Kind:        ChangeMetadata,
			Field:       RootField,
			Path:        "/" + keyword,
			Breaking:    false,
			Direction:   DirectionBoth,
			Impact:      ImpactLow,
			Description: fmt.Sprintf("Schema %s changed", keyword),
			OldValue:    optional(oldValue),
			NewValue:    optional(newValue),
		})
	}
	meta("title", om.Title, nm.Title)
	meta("description", om.Description, nm.Description)
	return changes
}

// Pass 2: the root type keyword.
func detectRootType(oldNode, newNode schema.Node) []Change {
	return classifyType(ChangeType, RootField, "/type", schema.TypeName(oldNode), schema.TypeName(newNode))
}

// Pass 3: the top-level required set.
func detectRequired(oldNode, newNode schema.Node) []Change {
	oldShape, newShape := schema.ShapeOf(oldNode), schema.ShapeOf(newNode)

	var changes []Change
	for _, name := range unique(oldShape.Required) {
		if newShape.IsRequired(name) {
			continue
		}
		changes = append(changes, Change{
			Kind:        ChangeRequiredFieldRemoved,
			Field:       name,
			Path:        "/required/" + name,
			Breaking:    true,
			Direction:   DirectionBackward,
			Impact:      ImpactHigh,
			Description: fmt.Sprintf("Field '%s' is no longer required", name),
		})
	}
	for _, name := range unique(newShape.Required) {
		if oldShape.IsRequired(name) {
			continue
		}
		changes = append(changes, Change{
			Kind:        ChangeRequiredFieldAdded,
			Field:       name,
			Path:        "/required/" + name,
			Breaking:    true,
			Direction:   DirectionForward,
			Impact:      ImpactHigh,
			Description: fmt.Sprintf("Field '%s' is now required", name),
		})
	}
	return changes
}

// Pass 4: the top-level property set.
func detectProperties(oldNode, newNode schema.Node) []Change {
	oldShape, newShape := schema.ShapeOf(oldNode), schema.ShapeOf(newNode)

	var changes []Change
	for _, p := range oldShape.Properties {
		if _, ok := newShape.Property(p.Name); ok {
			continue
		}
		changes = append(changes, Change{
			Kind:        ChangeFieldRemoved,
			Field:       p.Name,
			Path:        "/properties/" + p.Name,
			Breaking:    true,
			Direction:   DirectionBackward,
			Impact:      ImpactHigh,
			Description: fmt.Sprintf("Field '%s' was removed", p.Name),
			OldValue:    optional(schema.TypeName(p.Schema)),
		})
	}
	for _, p := range newShape.Properties {
		if _, ok := oldShape.Property(p.Name); ok {
			continue
		}
		c := Change{
			Kind:        ChangeFieldAdded,
			Field:       p.Name,
			Path:        "/properties/" + p.Name,
			Breaking:    false,
			Direction:   DirectionBoth,
			Impact:      ImpactLow,
			Description: fmt.Sprintf("Optional field '%s' was added", p.Name),
			NewValue:    optional(schema.TypeName(p.Schema)),
		}
		if newShape.IsRequired(p.Name) {
			c.Breaking = true
			c.Direction = DirectionForward
			c.Impact = ImpactMedium
			c.Description = fmt.Sprintf("Required field '%s' was added", p.Name)
		}
		changes = append(changes, c)
	}
	return changes
}

// Pass 5: type, enum and constraints of properties present in both versions.
func detectPropertyChanges(oldNode, newNode schema.Node) []Change {
	oldShape, newShape := schema.ShapeOf(oldNode), schema.ShapeOf(newNode)

	var changes []Change
	for _, p := range oldShape.Properties {
		np, ok := newShape.Property(p.Name)
		if !ok {
			continue
		}
		op := orEmpty(p.Schema)
		np = orEmpty(np)
		base := "/properties/" + p.Name

		changes = append(changes, classifyType(ChangeFieldType, p.Name, base+"/type", schema.TypeName(op), schema.TypeName(np))...)
		changes = append(changes, classifyEnum(p.Name, base+"/enum", op.Meta().Enum, np.Meta().Enum)...)
		changes = append(changes, classifyConstraints(p.Name, base, op, np)...)
	}
	return changes
}

// compositionEquality treats an empty list and an absent keyword alike,
// except for enum: a nil Enum accepts anything while an empty one accepts
// nothing.
var compositionEquality = cmp.FilterPath(notEnum, cmpopts.EquateEmpty())

func notEnum(p cmp.Path) bool {
	sf, ok := p.Last().(cmp.StructField)
	return !ok || sf.Name() != "Enum"
}

// Pass 6: allOf and oneOf. Any structural difference is breaking because
// compatibility of composed subschemas is not attempted.
func detectComposition(oldNode, newNode schema.Node) []Change {
	om, nm := oldNode.Meta(), newNode.Meta()

	var changes []Change
	compose := func(keyword string, oldList, newList []schema.Node) {
		if len(oldList) == 0 && len(newList) == 0 {
			return
		}
		if cmp.Equal(oldList, newList, compositionEquality) {
			return
		}
		desc := fmt.Sprintf("%s composition changed (%d to %d subschemas); composed schemas are not checked for compatibility",
			keyword, len(oldList), len(newList))
		changes = append(changes, Change{
			Kind:        ChangeComposition,
			Field:       RootField,
			Path:        "/" + keyword,
			Breaking:    true,
			Direction:   DirectionBoth,
			Impact:      ImpactHigh,
			Description: desc,
			OldValue:    len(oldList),
			NewValue:    len(newList),
		})
	}
	compose("allOf", om.AllOf, nm.AllOf)
	compose("oneOf", om.OneOf, nm.OneOf)
	return changes
}

// Pass 7: additionalProperties moving between allowed and false.
func detectAdditionalProperties(oldNode, newNode schema.Node) []Change {
	oldAllowed := schema.ShapeOf(oldNode).AdditionalProperties.Allowed()
	newAllowed := schema.ShapeOf(newNode).AdditionalProperties.Allowed()

	switch {
	case oldAllowed && !newAllowed:
		return []Change{{
			Kind:        ChangeAdditionalRestricted,
			Field:       RootField,
			Path:        "/additionalProperties",
			Breaking:    true,
			Direction:   DirectionBoth,
			Impact:      ImpactHigh,
			Description: "Additional properties are no longer allowed",
			OldValue:    true,
			NewValue:    false,
		}}
	case !oldAllowed && newAllowed:
		return []Change{{
			Kind:        ChangeAdditionalRelaxed,
			Field:       RootField,
			Path:        "/additionalProperties",
			Breaking:    false,
			Direction:   DirectionBoth,
			Impact:      ImpactLow,
			Description: "Additional properties are now allowed",
			OldValue:    false,
			NewValue:    true,
		}}
	default:
		return nil
	}
}

func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
