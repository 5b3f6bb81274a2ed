package reconciliation

import (
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/allocation"
)

// CheckInvoiceConsistency compares an invoice against its live allocations.
// A status mismatch and an overallocation may both be reported.
func CheckInvoiceConsistency(inv *domain.Invoice, allocations []domain.Allocation, tolerance decimal.Decimal) []Discrepancy {
	var out []Discrepancy
	allocated := domain.SumAllocated(allocations)
	id := inv.ID

	if inv.Status.IsAllocationGoverned() {
		expected := allocation.ExpectedStatus(inv.TotalAmount, allocated, tolerance)
		if !allocation.StatusConsistent(inv.Status, expected) {
			out = append(out, Discrepancy{
				Kind:           KindStatusInconsistency,
				InvoiceID:      &id,
				CurrentStatus:  string(inv.Status),
				ExpectedStatus: expected,
				Amount:         inv.TotalAmount,
				Allocated:      allocated,
			})
		}
	}

	if allocated.GreaterThan(inv.TotalAmount.Add(tolerance)) {
		excess := allocated.Sub(inv.TotalAmount)
		out = append(out, Discrepancy{
			Kind:      KindInvoiceOverallocation,
			InvoiceID: &id,
			Amount:    inv.TotalAmount,
			Allocated: allocated,
			Excess:    &excess,
		})
	}
	return out
}

// CheckPaymentAllocation reports a payment whose allocations exceed its amount.
func CheckPaymentAllocation(p *domain.Payment, allocations []domain.Allocation, tolerance decimal.Decimal) *Discrepancy {
	allocated := domain.SumAllocated(allocations)
	if !allocated.GreaterThan(p.Amount.Add(tolerance)) {
		return nil
	}
	id := p.ID
	excess := allocated.Sub(p.Amount)
	return &Discrepancy{
		Kind:      KindPaymentOverallocation,
		PaymentID: &id,
		Amount:    p.Amount,
		Allocated: allocated,
		Excess:    &excess,
	}
}
