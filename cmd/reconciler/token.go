package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/invoice-reconciler/internal/auth"
)

func tokenCmd() *cobra.Command {
	var (
		tenant  string
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a tenant-scoped API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant %q: %w", tenant, err)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			token, err := auth.GenerateToken(tenantID, subject, cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant id the token is scoped to")
	cmd.Flags().StringVar(&subject, "subject", "ops", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}
