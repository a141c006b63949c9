package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mediapack/internal/audit"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the history of issued hashes",
	}
	cmd.AddCommand(newAuditListCommand(ctx))
	return cmd
}

func newAuditListCommand(ctx *commandContext) *cobra.Command {
	var (
		filter audit.Filter
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issued hashes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Audit.Enabled {
				return errors.New("audit is disabled (audit.enabled = false)")
			}
			store, err := audit.Open(cfg.Paths.AuditDB)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if asJSON {
				type recordView struct {
					ID        int64     `json:"id"`
					Hash      string    `json:"hash"`
					Subject   string    `json:"subject"`
					Timestamp time.Time `json:"timestamp"`
				}
				views := make([]recordView, 0, len(records))
				for _, rec := range records {
					views = append(views, recordView{ID: rec.ID, Hash: rec.HashValue, Subject: rec.Subject, Timestamp: rec.Timestamp})
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No issued hashes recorded")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				issued := ""
				if !rec.Timestamp.IsZero() {
					issued = rec.Timestamp.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{strconv.FormatInt(rec.ID, 10), rec.Subject, rec.HashValue, issued})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Subject", "Hash", "Issued"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Subject, "subject", "", "Only show hashes issued for this subject")
	cmd.Flags().StringVar(&filter.Hash, "hash", "", "Only show records for this hash")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum records to show (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
