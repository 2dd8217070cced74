package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/service"
)

func newBotCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Bot channel credentials",
	}
	cmd.AddCommand(offline(&cobra.Command{
		Use:   "hash-key <key>",
		Short: "Print a bcrypt hash for BOT_API_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := service.HashBotKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}))
	return cmd
}

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var role string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Operator access tokens",
	}
	issue := offline(&cobra.Command{
		Use:   "issue <operator-id>",
		Short: "Sign an access token with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := models.OperatorRole(role)
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			token, err := service.NewTokenService(cfg.JWT.Secret, "casetrack").Issue(args[0], r, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	})
	issue.Flags().StringVar(&role, "role", string(models.RoleOperator), "ADMIN or OPERATOR")
	issue.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	cmd.AddCommand(issue)
	return cmd
}
