package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mediapack/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, the launcher template and external tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			checks := preflight.RunAll(cmd.Context(), cfg)
			failed := 0
			rows := make([][]string, 0, len(checks))
			for _, check := range checks {
				status := "ok"
				if !check.Passed {
					status = "FAIL"
					failed++
				}
				rows = append(rows, []string{check.Name, status, check.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			statuses := preflight.LookupTools(preflight.ConfiguredTools(cfg))
			if len(statuses) > 0 {
				rows = rows[:0]
				for _, status := range statuses {
					detail := status.Purpose
					if status.Available() {
						detail = status.Path
					}
					rows = append(rows, []string{status.Name, status.Command, toolState(status), detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Tool", "Command", "Status", "Detail"}, rows, nil))
			}

			missing := preflight.MissingRequired(statuses)
			if failed > 0 || len(missing) > 0 {
				return errors.New("environment checks failed")
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}

func toolState(status preflight.ToolStatus) string {
	switch {
	case status.Available():
		return "found"
	case status.Optional:
		return "missing (optional)"
	default:
		return "MISSING"
	}
}
