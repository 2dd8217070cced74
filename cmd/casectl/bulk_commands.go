package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/noah-isme/casetrack-api/internal/dto"
	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/service"
)

func newBulkCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Apply one change to many processes in a single transaction",
	}
	cmd.AddCommand(newBulkReassignCommand(ctx))
	cmd.AddCommand(newBulkPriorityCommand(ctx))
	cmd.AddCommand(newBulkStatusCommand(ctx))
	return cmd
}

func newBulkReassignCommand(ctx *commandContext) *cobra.Command {
	var operatorID string
	cmd := &cobra.Command{
		Use:   "reassign <process-id>...",
		Short: "Move processes to another operator",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulk(cmd, ctx, func(actor service.Actor) (*dto.BulkResult, error) {
				return ctx.bulk.Reassign(cmd.Context(), dto.BulkReassignRequest{ProcessIDs: args, OperatorID: operatorID}, actor)
			})
		},
	}
	cmd.Flags().StringVar(&operatorID, "operator", "", "Target operator id")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}

func newBulkPriorityCommand(ctx *commandContext) *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "priority <process-id>...",
		Short: "Set the priority of processes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulk(cmd, ctx, func(actor service.Actor) (*dto.BulkResult, error) {
				req := dto.BulkPriorityRequest{ProcessIDs: args, Priority: models.ProcessPriority(priority)}
				return ctx.bulk.UpdatePriority(cmd.Context(), req, actor)
			})
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "", "HIGH, MEDIUM or LOW")
	_ = cmd.MarkFlagRequired("priority")
	return cmd
}

func newBulkStatusCommand(ctx *commandContext) *cobra.Command {
	var status, reason string
	cmd := &cobra.Command{
		Use:   "status <process-id>...",
		Short: "Move processes to a status",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulk(cmd, ctx, func(actor service.Actor) (*dto.BulkResult, error) {
				req := dto.BulkStatusRequest{ProcessIDs: args, Status: models.ProcessStatus(status), Reason: reason}
				return ctx.bulk.UpdateStatus(cmd.Context(), req, actor)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Target status")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded on the timeline")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func runBulk(cmd *cobra.Command, ctx *commandContext, fn func(service.Actor) (*dto.BulkResult, error)) error {
	actor, err := ctx.actor()
	if err != nil {
		return err
	}
	res, err := fn(actor)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderBulkResult(res))
	return nil
}

func renderBulkResult(res *dto.BulkResult) string {
	rows := make([][]string, 0, len(res.ProcessIDs)+len(res.Skipped))
	for _, id := range res.ProcessIDs {
		rows = append(rows, []string{id, "updated"})
	}
	for _, id := range res.Skipped {
		rows = append(rows, []string{id, "skipped (terminal)"})
	}
	return renderTable([]string{"Process", "Result"}, rows) + "\nUpdated: " + strconv.Itoa(res.Updated)
}
