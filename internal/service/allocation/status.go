package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

// ExpectedStatus is the status an allocation-governed invoice should carry
// for the given allocated sum. SENT is the floor when nothing is allocated.
func ExpectedStatus(total, allocated, tolerance decimal.Decimal) domain.InvoiceStatus {
	switch {
	case allocated.GreaterThanOrEqual(total.Sub(tolerance)) && allocated.IsPositive():
		return domain.InvoiceStatusPaid
	case allocated.IsPositive():
		return domain.InvoiceStatusPartiallyPaid
	default:
		return domain.InvoiceStatusSent
	}
}

// StatusConsistent reports whether current agrees with expected. An OVERDUE
// invoice with nothing allocated sits at the SENT floor.
func StatusConsistent(current, expected domain.InvoiceStatus) bool {
	if current == expected {
		return true
	}
	return current == domain.InvoiceStatusOverdue && expected == domain.InvoiceStatusSent
}

// PromotedStatus returns the status a commit moves current to. Promotion only
// runs forward from an open status; everything else is left alone.
func PromotedStatus(current domain.InvoiceStatus, total, allocated, tolerance decimal.Decimal) domain.InvoiceStatus {
	if !current.IsOpen() || !allocated.IsPositive() {
		return current
	}
	derived := ExpectedStatus(total, allocated, tolerance)
	if current == domain.InvoiceStatusPartiallyPaid && derived != domain.InvoiceStatusPaid {
		return current
	}
	return derived
}
