package evolution

// Recommended actions, in the order AssessRisk emits them.
const (
	ActionSplitChange        = "Split this change into smaller, incremental schema versions"
	ActionFeatureFlags       = "Roll out the new schema behind feature flags"
	ActionRollbackPlan       = "Prepare a tested rollback plan before deploying"
	ActionProvideDefaults    = "Provide default values for new required fields"
	ActionUpdateConsumers    = "Update all consumers before publishing the new schema"
	ActionMigrationScripts   = "Write data migration scripts for changed field types"
	ActionTestConversions    = "Test type conversions thoroughly against production-like data"
	ActionCoordinate         = "Coordinate the rollout with every team consuming this schema"
	ActionSequenceDeployment = "Sequence deployments so readers upgrade before writers"
	ActionMonitorErrors      = "Monitor consumer error rates closely after deployment"
)

// Rollback plan items, in the order AssessRisk emits them.
const (
	RollbackKeepPrevious    = "Keep the previous schema version available in the registry"
	RollbackVersionFallback = "Ensure consumers can fall back to the previous schema version"
	RollbackReversalScripts = "Maintain scripts that reverse the data migration"
	RollbackStagingTest     = "Test the rollback procedure in staging"
	RollbackCommunication   = "Prepare a communication plan for affected consumers"
)

// AssessRisk scores a change set.
//
// With B breaking changes and H high-impact changes the tier is LOW when
// B == 0, MEDIUM when B <= 2 and H <= 1, HIGH when B <= 5, else CRITICAL.
func AssessRisk(changes []Change) RiskAssessment {
	sum := Summarize(changes)
	risk := determineRiskLevel(sum.BreakingChanges, sum.HighImpact)

	return RiskAssessment{
		OverallRisk:        risk,
		BreakingChanges:    sum.BreakingChanges,
		RecommendedActions: recommendedActions(changes, risk),
		RollbackPlan:       rollbackPlan(changes),
	}
}

func determineRiskLevel(breaking, highImpact int) RiskLevel {
	switch {
	case breaking == 0:
		return RiskLow
	case breaking <= 2 && highImpact <= 1:
		return RiskMedium
	case breaking <= 5:
		return RiskHigh
	default:
		return RiskCritical
	}
}

func recommendedActions(changes []Change, risk RiskLevel) []string {
	actions := []string{}
	if risk == RiskCritical {
		actions = append(actions, ActionSplitChange, ActionFeatureFlags, ActionRollbackPlan)
	}
	if HasKind(changes, ChangeRequiredFieldAdded) {
		actions = append(actions, ActionProvideDefaults, ActionUpdateConsumers)
	}
	if HasKind(changes, ChangeFieldType) {
		actions = append(actions, ActionMigrationScripts, ActionTestConversions)
	}
	if HasBreaking(changes) {
		actions = append(actions, ActionCoordinate, ActionSequenceDeployment, ActionMonitorErrors)
	}
	return actions
}

func rollbackPlan(changes []Change) []string {
	plan := []string{RollbackKeepPrevious, RollbackVersionFallback}
	if HasKind(changes, ChangeFieldType) {
		plan = append(plan, RollbackReversalScripts)
	}
	if HasBreaking(changes) {
		plan = append(plan, RollbackStagingTest, RollbackCommunication)
	}
	return plan
}

// riskOrder ranks risk levels for comparison.
var riskOrder = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// MaxRisk returns the higher of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if riskOrder[b] > riskOrder[a] {
		return b
	}
	return a
}
