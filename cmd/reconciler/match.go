package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func matchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "match <payment-id>",
		Short: "Run auto-matching for a completed payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paymentID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid payment id %q: %w", args[0], err)
			}

			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.Engine.AutoMatch(cmd.Context(), paymentID)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, outcome)
		},
	}
}

func validateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <payment-id> <invoice-id>",
		Short: "Check whether a payment could be allocated to an invoice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseUUIDs(args)
			if err != nil {
				return err
			}

			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Engine.ValidateMatch(cmd.Context(), ids[0], ids[1])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, res)
		},
	}
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
