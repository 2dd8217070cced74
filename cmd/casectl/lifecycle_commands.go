package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/repository"
)

func newWorkloadCommand(ctx *commandContext) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "workload",
		Short: "Show active operators ordered by open processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := ctx.assignments.Workload(cmd.Context(), repository.OperatorFilter{
				Role:   models.OperatorRole(role),
				Status: models.OperatorStatusActive,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderWorkload(ops))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "Filter by role (ADMIN or OPERATOR)")
	return cmd
}

func renderWorkload(ops []models.Operator) string {
	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		rows = append(rows, []string{op.ID, op.Name, string(op.Role), strconv.Itoa(op.ProcessesCount)})
	}
	return renderTable([]string{"ID", "Name", "Role", "Open"}, rows, 3)
}

func newNotificationsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Notification maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete notifications past their expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := ctx.notifications.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d notification(s)\n", removed)
			return nil
		},
	})
	return cmd
}
