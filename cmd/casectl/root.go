package main

import (
	"github.com/spf13/cobra"
)

// skipBackend marks commands that never touch postgres.
const skipBackend = "casectl/offline"

func newRootCommand() *cobra.Command {
	var actorFlag string
	ctx := newCommandContext(&actorFlag)

	rootCmd := &cobra.Command{
		Use:           "casectl",
		Short:         "Operational tooling for the casetrack API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, skip := cmd.Annotations[skipBackend]; skip {
				return nil
			}
			return ctx.ensureBackend(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&actorFlag, "as", "", "Admin operator id recorded on audit entries")

	rootCmd.AddCommand(newBulkCommand(ctx))
	rootCmd.AddCommand(newWorkloadCommand(ctx))
	rootCmd.AddCommand(newNotificationsCommand(ctx))
	rootCmd.AddCommand(newBotCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))

	return rootCmd
}

func offline(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[skipBackend] = "true"
	return cmd
}
