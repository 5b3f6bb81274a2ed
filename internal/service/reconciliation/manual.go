package reconciliation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/logging"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/allocation"
)

const (
	entityInvoice = "invoice"
	entityPayment = "payment"
)

// RunManual checks the listed invoices and payments. Invoice status drift is
// corrected; overallocation on either side is only reported. A failure on
// one item is recorded and the rest of the batch still runs.
func (s *Service) RunManual(ctx context.Context, params Params) (*ManualReport, error) {
	if len(params.InvoiceIDs) == 0 && len(params.PaymentIDs) == 0 {
		return nil, fmt.Errorf("RunManual: no invoice or payment ids: %w", domain.ErrInvalidRequest)
	}

	report := &ManualReport{
		Fixes:         []Fix{},
		Discrepancies: []Discrepancy{},
		Errors:        []ItemError{},
	}

	byInvoice, err := s.allocations.ListByInvoiceIDs(ctx, params.InvoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("RunManual: %w", err)
	}
	for _, id := range params.InvoiceIDs {
		s.manualInvoice(ctx, id, byInvoice[id], params.TenantID, report)
	}

	byPayment, err := s.allocations.ListByPaymentIDs(ctx, params.PaymentIDs)
	if err != nil {
		return nil, fmt.Errorf("RunManual: %w", err)
	}
	for _, id := range params.PaymentIDs {
		s.manualPayment(ctx, id, byPayment[id], params.TenantID, report)
	}

	return report, nil
}

func (s *Service) manualInvoice(ctx context.Context, id uuid.UUID, allocs []domain.Allocation, tenantID *uuid.UUID, report *ManualReport) {
	log := logging.FromContext(ctx).With("invoice_id", id)

	inv, err := s.invoices.GetByID(ctx, id)
	if err == nil && tenantID != nil && inv.TenantID != *tenantID {
		err = domain.ErrNotFound
	}
	if err != nil {
		report.Errors = append(report.Errors, ItemError{Entity: entityInvoice, ID: id, Error: err.Error()})
		return
	}
	report.InvoicesChecked++

	for _, d := range CheckInvoiceConsistency(inv, allocs, s.tolerance) {
		if d.Kind != KindStatusInconsistency {
			report.Discrepancies = append(report.Discrepancies, d)
			continue
		}

		change, err := s.fixer.ApplyDerivedStatus(ctx, id, allocation.ActorManualReconciliation)
		if err != nil {
			log.Warn("status fix failed", "error", err)
			report.Errors = append(report.Errors, ItemError{Entity: entityInvoice, ID: id, Error: err.Error()})
			report.Discrepancies = append(report.Discrepancies, d)
			continue
		}
		if change.Changed {
			report.Fixes = append(report.Fixes, Fix{InvoiceID: id, From: change.From, To: change.To})
		}
	}
}

func (s *Service) manualPayment(ctx context.Context, id uuid.UUID, allocs []domain.Allocation, tenantID *uuid.UUID, report *ManualReport) {
	p, err := s.payments.GetByID(ctx, id)
	if err == nil && tenantID != nil && p.TenantID != *tenantID {
		err = domain.ErrNotFound
	}
	if err != nil {
		report.Errors = append(report.Errors, ItemError{Entity: entityPayment, ID: id, Error: err.Error()})
		return
	}
	report.PaymentsChecked++

	if d := CheckPaymentAllocation(p, allocs, s.tolerance); d != nil {
		report.Discrepancies = append(report.Discrepancies, *d)
	}
}
