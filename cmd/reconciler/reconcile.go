package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/reconciliation"
)

type reconcileOptions struct {
	tenant   string
	invoices []string
	payments []string
}

func reconcileCmd(opts *rootOptions) *cobra.Command {
	ro := &reconcileOptions{}

	cmd := &cobra.Command{
		Use:       "reconcile daily|weekly|manual",
		Short:     "Run a reconciliation audit and print its report",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"daily", "weekly", "manual"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := domain.ReconciliationMode(strings.ToUpper(args[0]))
			params, err := ro.params(mode)
			if err != nil {
				return err
			}

			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Reconciliation.RunReconciliation(cmd.Context(), mode, params)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, report)
		},
	}

	cmd.Flags().StringVar(&ro.tenant, "tenant", "", "Restrict the run to one tenant id")
	cmd.Flags().StringSliceVar(&ro.invoices, "invoice", nil, "Invoice id to check (manual mode, repeatable)")
	cmd.Flags().StringSliceVar(&ro.payments, "payment", nil, "Payment id to check (manual mode, repeatable)")

	return cmd
}

func (ro *reconcileOptions) params(mode domain.ReconciliationMode) (reconciliation.Params, error) {
	var params reconciliation.Params

	if ro.tenant != "" {
		id, err := uuid.Parse(ro.tenant)
		if err != nil {
			return params, fmt.Errorf("invalid --tenant %q: %w", ro.tenant, err)
		}
		params.TenantID = &id
	}

	hasIDs := len(ro.invoices) > 0 || len(ro.payments) > 0
	if mode != domain.ReconciliationModeManual && hasIDs {
		return params, fmt.Errorf("--invoice and --payment only apply to manual runs")
	}
	if mode == domain.ReconciliationModeManual && !hasIDs {
		return params, fmt.Errorf("manual runs need at least one --invoice or --payment")
	}

	var err error
	if params.InvoiceIDs, err = parseUUIDs(ro.invoices); err != nil {
		return params, err
	}
	if params.PaymentIDs, err = parseUUIDs(ro.payments); err != nil {
		return params, err
	}
	return params, nil
}
