package evolution

import (
	"fmt"
	"strings"

	"schemagate/internal/errors"
)

// CompatibilityLevel is a registry-style compatibility mode
type CompatibilityLevel string

const (
	LevelBackward           CompatibilityLevel = "BACKWARD"
	LevelBackwardTransitive CompatibilityLevel = "BACKWARD_TRANSITIVE"
	LevelForward            CompatibilityLevel = "FORWARD"
	LevelForwardTransitive  CompatibilityLevel = "FORWARD_TRANSITIVE"
	LevelFull               CompatibilityLevel = "FULL"
	LevelFullTransitive     CompatibilityLevel = "FULL_TRANSITIVE"
	LevelNone               CompatibilityLevel = "NONE"
)

// Levels lists every compatibility level.
var Levels = []CompatibilityLevel{
	LevelBackward, LevelBackwardTransitive,
	LevelForward, LevelForwardTransitive,
	LevelFull, LevelFullTransitive,
	LevelNone,
}

const transitiveSuffix = "_TRANSITIVE"

// ParseCompatibilityLevel parses a level name, ignoring case and surrounding space.
func ParseCompatibilityLevel(s string) (CompatibilityLevel, error) {
	name := CompatibilityLevel(strings.ToUpper(strings.TrimSpace(s)))
	for _, l := range Levels {
		if l == name {
			return l, nil
		}
	}
	return "", errors.NewSchemaGateError(errors.InvalidLevel, fmt.Sprintf("unknown compatibility level %q", s), nil)
}

// Base strips the _TRANSITIVE suffix.
func (l CompatibilityLevel) Base() CompatibilityLevel {
	return CompatibilityLevel(strings.TrimSuffix(string(l), transitiveSuffix))
}

// Transitive reports whether the level applies across the whole version history.
// Two-version checks treat it like Base.
func (l CompatibilityLevel) Transitive() bool {
	return strings.HasSuffix(string(l), transitiveSuffix)
}

// IsBackwardCompatible reports whether the new schema can read data written
// under the old one.
func IsBackwardCompatible(changes []Change) bool {
	for _, c := range changes {
		if c.breaksBackward() {
			return false
		}
	}
	return true
}

// IsForwardCompatible reports whether the old schema can read data written
// under the new one.
func IsForwardCompatible(changes []Change) bool {
	for _, c := range changes {
		if c.breaksForward() {
			return false
		}
	}
	return true
}

// CheckCompatibilityLevel answers whether changes satisfy level. Unknown
// levels fail closed.
func CheckCompatibilityLevel(changes []Change, level CompatibilityLevel) bool {
	switch level.Base() {
	case LevelBackward:
		return IsBackwardCompatible(changes)
	case LevelForward:
		return IsForwardCompatible(changes)
	case LevelFull:
		return !HasBreaking(changes)
	case LevelNone:
		return true
	default:
		return false
	}
}

// Violations returns the changes that make level fail, in order.
func Violations(changes []Change, level CompatibilityLevel) []Change {
	var out []Change
	for _, c := range changes {
		var violates bool
		switch level.Base() {
		case LevelBackward:
			violates = c.breaksBackward()
		case LevelForward:
			violates = c.breaksForward()
		case LevelFull:
			violates = c.Breaking
		}
		if violates {
			out = append(out, c)
		}
	}
	return out
}

// CompatibilityCheck is the verdict of one gate evaluation
type CompatibilityCheck struct {
	Level      CompatibilityLevel `json:"level"`
	Compatible bool               `json:"compatible"`
	Message    string             `json:"message"`
	Action     string             `json:"action,omitempty"`
	Violations []Change           `json:"violations,omitempty"`
}

// Check evaluates level against changes and explains the verdict.
func Check(changes []Change, level CompatibilityLevel) CompatibilityCheck {
	check := CompatibilityCheck{
		Level:      level,
		Compatible: CheckCompatibilityLevel(changes, level),
		Violations: Violations(changes, level),
	}

	if check.Compatible {
		check.Message = fmt.Sprintf("Candidate schema satisfies %s compatibility", level)
		return check
	}

	check.Message = fmt.Sprintf("Candidate schema violates %s compatibility with %d breaking change(s)", level, len(check.Violations))
	switch level.Base() {
	case LevelBackward:
		check.Action = "Make removed or newly required fields optional, or upgrade consumers before producers"
	case LevelForward:
		check.Action = "Give new required fields defaults, or upgrade producers only after consumers accept the new shape"
	default:
		check.Action = "Split the change so each step is compatible, or publish under a new subject"
	}
	return check
}
