package main

import (
	"github.com/spf13/cobra"

	"schemagate/internal/errors"
	"schemagate/internal/storage"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [subject]",
		Short: "List recorded compatibility verdicts",
		Long: `List the verdicts recorded by 'schemagate subjects test', newest first.
Without a subject every subject is listed.

Examples:
  schemagate history order
  schemagate history --limit=5 --format=json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := ""
			if len(args) == 1 {
				subject = args[0]
			}

			db, err := a.openStore()
			if err != nil {
				return err
			}
			if db == nil {
				return errors.NewSchemaGateError(errors.StorageError, "history storage is disabled", nil,
					errors.FixAction{
						Type:        errors.EditFile,
						Path:        ".schemagate/config.json",
						Description: "Set storage.enabled to true",
					})
			}
			defer db.Close()

			checks, err := db.ListChecks(a.context(), subject, limit)
			if err != nil {
				return err
			}
			return a.print(&HistoryResponse{Subject: subject, Checks: checks})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of verdicts (0 for all)")
	return cmd
}

// HistoryResponse is the output of `schemagate history`
type HistoryResponse struct {
	Subject string                `json:"subject,omitempty"`
	Checks  []storage.CheckRecord `json:"checks"`
}
