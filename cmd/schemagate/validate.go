package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"schemagate/internal/errors"
	"schemagate/internal/validator"
)

func newValidateCmd(a *app) *cobra.Command {
	var (
		level         string
		allowBreaking bool
		skipStructure bool
		skipEffort    bool
	)

	cmd := &cobra.Command{
		Use:   "validate <base-schema> <candidate-schema>",
		Short: "Validate a schema evolution",
		Long: `Validate the structure of both schemas, enforce the compatibility mode and
estimate the migration effort. Exits with code 1 when the evolution is not
valid.

--allow-breaking reports a compatibility violation as a warning instead of
an error.

Examples:
  schemagate validate v1.json v2.json --level=BACKWARD
  schemagate validate v1.json v2.json --allow-breaking --format=json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := a.levelFlag(level)
			if err != nil {
				return err
			}
			base, candidate, err := a.loadPair(args[0], args[1])
			if err != nil {
				return err
			}

			opts := validator.DefaultOptions()
			opts.CheckStructure = !skipStructure
			opts.EstimateEffort = !skipEffort

			allow := allowBreaking
			if !cmd.Flags().Changed("allow-breaking") {
				allow = a.cfg.AllowBreakingChanges
			}

			result := validator.ValidateEvolution(validator.Context{
				Base:                 base.Root,
				Candidate:            candidate.Root,
				Mode:                 mode,
				AllowBreakingChanges: allow,
			}, opts)

			resp := &ValidateResponse{Base: args[0], Candidate: args[1], Result: result}
			if err := a.print(resp); err != nil {
				return err
			}

			a.logger.Info("Validation completed",
				"mode", mode,
				"valid", result.Valid,
				"errors", len(result.Errors),
				"warnings", len(result.Warnings),
			)
			if !result.Valid {
				return errors.NewSchemaGateError(errors.PolicyViolation,
					fmt.Sprintf("schema evolution is not valid: %d error(s)", len(result.Errors)), nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&level, "level", "", "Compatibility mode (default from config defaultLevel)")
	cmd.Flags().BoolVar(&allowBreaking, "allow-breaking", false, "Report compatibility violations as warnings")
	cmd.Flags().BoolVar(&skipStructure, "skip-structure", false, "Skip structural validation of both schemas")
	cmd.Flags().BoolVar(&skipEffort, "skip-effort", false, "Skip migration effort estimation")
	return cmd
}

// ValidateResponse is the output of `schemagate validate`
type ValidateResponse struct {
	Base      string            `json:"base"`
	Candidate string            `json:"candidate"`
	Result    *validator.Result `json:"result"`
}
