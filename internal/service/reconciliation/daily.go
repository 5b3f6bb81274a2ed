package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

// DailyWindow is the previous UTC calendar day relative to now.
func DailyWindow(now time.Time) (time.Time, time.Time) {
	y, m, d := now.UTC().Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, 0, -1), end
}

// RunDaily audits invoices and payments modified during the previous UTC day.
// It never writes.
func (s *Service) RunDaily(ctx context.Context, params Params) (*DailyReport, error) {
	now := params.now()
	from, to := DailyWindow(now)

	invoices, err := s.invoices.ListUpdatedBetween(ctx, from, to, params.TenantID)
	if err != nil {
		return nil, fmt.Errorf("RunDaily: %w", err)
	}
	payments, err := s.payments.ListUpdatedBetween(ctx, from, to, params.TenantID)
	if err != nil {
		return nil, fmt.Errorf("RunDaily: %w", err)
	}

	byInvoice, err := s.allocations.ListByInvoiceIDs(ctx, invoiceIDs(invoices))
	if err != nil {
		return nil, fmt.Errorf("RunDaily: %w", err)
	}
	byPayment, err := s.allocations.ListByPaymentIDs(ctx, paymentIDs(payments))
	if err != nil {
		return nil, fmt.Errorf("RunDaily: %w", err)
	}

	report := &DailyReport{
		WindowStart:      from,
		WindowEnd:        to,
		Discrepancies:    []Discrepancy{},
		Overdue:          []Discrepancy{},
		OrphanedPayments: []Discrepancy{},
	}

	for i := range invoices {
		inv := &invoices[i]
		allocs := byInvoice[inv.ID]
		report.Discrepancies = append(report.Discrepancies, CheckInvoiceConsistency(inv, allocs, s.tolerance)...)

		if isOverdue(inv, now) {
			id := inv.ID
			report.Overdue = append(report.Overdue, Discrepancy{
				Kind:          KindOverdue,
				InvoiceID:     &id,
				CurrentStatus: string(inv.Status),
				Amount:        inv.TotalAmount,
				Allocated:     domain.SumAllocated(allocs),
				DueDate:       inv.DueDate,
			})
		}
	}

	for i := range payments {
		p := &payments[i]
		allocs := byPayment[p.ID]
		if d := CheckPaymentAllocation(p, allocs, s.tolerance); d != nil {
			report.Discrepancies = append(report.Discrepancies, *d)
		}
		if p.Status == domain.PaymentStatusCompleted && len(allocs) == 0 {
			id := p.ID
			report.OrphanedPayments = append(report.OrphanedPayments, Discrepancy{
				Kind:          KindOrphanedPayment,
				PaymentID:     &id,
				CurrentStatus: string(p.Status),
				Amount:        p.Amount,
			})
		}
	}

	report.Summary = DailySummary{
		InvoicesScanned:  len(invoices),
		PaymentsScanned:  len(payments),
		Discrepancies:    len(report.Discrepancies),
		Overdue:          len(report.Overdue),
		OrphanedPayments: len(report.OrphanedPayments),
	}
	return report, nil
}

func isOverdue(inv *domain.Invoice, now time.Time) bool {
	if inv.DueDate == nil || !inv.DueDate.Before(now) {
		return false
	}
	return inv.Status != domain.InvoiceStatusPaid && inv.Status != domain.InvoiceStatusCancelled
}

func invoiceIDs(invoices []domain.Invoice) []uuid.UUID {
	ids := make([]uuid.UUID, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
	}
	return ids
}

func paymentIDs(payments []domain.Payment) []uuid.UUID {
	ids := make([]uuid.UUID, len(payments))
	for i, p := range payments {
		ids[i] = p.ID
	}
	return ids
}
