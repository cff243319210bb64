package validator

import (
	"math"

	"schemagate/internal/evolution"
)

// Complexity is the migration complexity tier
type Complexity string

const (
	ComplexitySimple   Complexity = "SIMPLE"
	ComplexityModerate Complexity = "MODERATE"
	ComplexityComplex  Complexity = "COMPLEX"
	ComplexityCritical Complexity = "CRITICAL"
)

// ComplexityOf tiers a change set by breaking count, total changes and the
// number of migration steps.
func ComplexityOf(sum evolution.Summary, steps int) Complexity {
	b := sum.BreakingChanges
	switch {
	case b == 0 && sum.TotalChanges <= 3:
		return ComplexitySimple
	case b <= 2 && steps <= 5:
		return ComplexityModerate
	case b <= 5 && steps <= 10:
		return ComplexityComplex
	default:
		return ComplexityCritical
	}
}

// EffortEstimate is a rough effort figure for applying a migration
type EffortEstimate struct {
	Hours      float64  `json:"hours"`
	Confidence float64  `json:"confidence"`
	Blockers   []string `json:"blockers"`
}

const (
	baseHours        = 2.0
	hoursPerChange   = 0.5
	hoursPerBreaking = 2.0
	hoursPerStep     = 1.0

	startConfidence = 0.9
	minConfidence   = 0.1
)

// EstimateEffort computes hours, confidence and blockers. Blockers are the
// descriptions of breaking HIGH-impact changes.
func EstimateEffort(changes []evolution.Change, steps int) EffortEstimate {
	sum := evolution.Summarize(changes)
	total, b := sum.TotalChanges, sum.BreakingChanges

	hours := baseHours + hoursPerChange*float64(total) + hoursPerBreaking*float64(b) + hoursPerStep*float64(steps)

	confidence := startConfidence
	if b > 3 {
		confidence -= 0.3
	}
	if total > 10 {
		confidence -= 0.2
	}
	if steps > 5 {
		confidence -= 0.1
	}
	confidence = math.Max(minConfidence, math.Round(confidence*100)/100)

	blockers := []string{}
	for _, c := range changes {
		if c.Breaking && c.Impact == evolution.ImpactHigh {
			blockers = append(blockers, c.Description)
		}
	}

	return EffortEstimate{Hours: hours, Confidence: confidence, Blockers: blockers}
}
