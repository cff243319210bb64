// Package evolution compares two versions of a JSON Schema and reports what
// changed, whether the change is compatible in each direction, what has to be
// migrated and how risky the rollout is.
//
// Everything here is a pure function over parsed schema trees. Calls share no
// state and can run concurrently.
package evolution

import "schemagate/internal/schema"

// AnalyzeEvolution is the single entry point for comparing two schema versions.
func AnalyzeEvolution(oldNode, newNode schema.Node) *EvolutionAnalysis {
	changes := DetectChanges(oldNode, newNode)

	return &EvolutionAnalysis{
		IsBackwardCompatible: IsBackwardCompatible(changes),
		IsForwardCompatible:  IsForwardCompatible(changes),
		Changes:              changes,
		MigrationPath:        GenerateMigrationPath(changes),
		RiskAssessment:       AssessRisk(changes),
	}
}

// AnalyzeDocuments is AnalyzeEvolution over parsed documents.
func AnalyzeDocuments(oldDoc, newDoc *schema.Document) *EvolutionAnalysis {
	var oldNode, newNode schema.Node
	if oldDoc != nil {
		oldNode = oldDoc.Root
	}
	if newDoc != nil {
		newNode = newDoc.Root
	}
	return AnalyzeEvolution(oldNode, newNode)
}
