package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"schemagate/internal/errors"
	"schemagate/internal/evolution"
)

func newCheckCmd(a *app) *cobra.Command {
	var level string

	cmd := &cobra.Command{
		Use:   "check <old-schema> <new-schema>",
		Short: "Check a candidate schema against a compatibility level",
		Long: `Run the compatibility gate for a candidate schema. Exits with code 1 when
the candidate is not compatible, so CI pipelines can fail on it.

Levels: BACKWARD, FORWARD, FULL, NONE and their _TRANSITIVE variants.
For two documents a _TRANSITIVE level behaves like its base level; use
'schemagate subjects test' to check a whole version history.

Examples:
  schemagate check v1.json v2.json
  schemagate check v1.json v2.json --level=FULL`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := a.levelFlag(level)
			if err != nil {
				return err
			}
			oldDoc, newDoc, err := a.loadPair(args[0], args[1])
			if err != nil {
				return err
			}

			analysis := evolution.AnalyzeDocuments(oldDoc, newDoc)
			resp := &CheckResponse{
				Old:   args[0],
				New:   args[1],
				Check: evolution.Check(analysis.Changes, lvl),
				Risk:  analysis.RiskAssessment.OverallRisk,
			}
			if err := a.print(resp); err != nil {
				return err
			}

			a.logger.Info("Compatibility check completed",
				"level", lvl,
				"compatible", resp.Check.Compatible,
			)
			if !resp.Check.Compatible {
				return errors.NewSchemaGateError(errors.PolicyViolation,
					fmt.Sprintf("%s is not %s compatible with %s", args[1], lvl, args[0]), nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&level, "level", "", "Compatibility level (default from config defaultLevel)")
	return cmd
}

// CheckResponse is the output of `schemagate check`
type CheckResponse struct {
	Old   string                       `json:"old"`
	New   string                       `json:"new"`
	Check evolution.CompatibilityCheck `json:"check"`
	Risk  evolution.RiskLevel          `json:"risk"`
}
