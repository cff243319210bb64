package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"schemagate/internal/evolution"
	"schemagate/internal/paths"
	"schemagate/internal/schema"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <old-schema> <new-schema>",
		Short: "Analyze the evolution between two schema versions",
		Long: `Compare two schema documents and report every structural change, whether
each change is breaking, the migration steps and the overall risk.

Schemas may be JSON or YAML (.yaml, .yml).

Examples:
  schemagate analyze schemas/user/v1.json schemas/user/v2.json
  schemagate analyze old.yaml new.yaml --format=json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			oldDoc, newDoc, err := a.loadPair(args[0], args[1])
			if err != nil {
				return err
			}

			analysis := evolution.AnalyzeDocuments(oldDoc, newDoc)
			resp := &AnalyzeResponse{
				Old:      args[0],
				New:      args[1],
				Summary:  evolution.Summarize(analysis.Changes),
				Analysis: analysis,
			}

			a.logger.Debug("Analysis completed",
				"changes", len(analysis.Changes),
				"risk", analysis.RiskAssessment.OverallRisk,
				"duration", time.Since(start).Milliseconds(),
			)
			return a.print(resp)
		},
	}
}

// AnalyzeResponse is the output of `schemagate analyze`
type AnalyzeResponse struct {
	Old      string                       `json:"old"`
	New      string                       `json:"new"`
	Summary  evolution.Summary            `json:"summary"`
	Analysis *evolution.EvolutionAnalysis `json:"analysis"`
}

// loadPair parses the base and candidate documents. Relative paths resolve
// against the project directory.
func (a *app) loadPair(oldPath, newPath string) (*schema.Document, *schema.Document, error) {
	oldDoc, err := schema.ParseFile(paths.JoinRoot(a.root, oldPath))
	if err != nil {
		return nil, nil, fmt.Errorf("base schema: %w", err)
	}
	newDoc, err := schema.ParseFile(paths.JoinRoot(a.root, newPath))
	if err != nil {
		return nil, nil, fmt.Errorf("candidate schema: %w", err)
	}
	return oldDoc, newDoc, nil
}

// levelFlag resolves --level against the configured default.
func (a *app) levelFlag(flag string) (evolution.CompatibilityLevel, error) {
	if flag == "" {
		return a.cfg.Level(), nil
	}
	return evolution.ParseCompatibilityLevel(flag)
}
