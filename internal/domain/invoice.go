package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusSent          InvoiceStatus = "SENT"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
	InvoiceStatusRefunded      InvoiceStatus = "REFUNDED"
)

// OpenInvoiceStatuses are the statuses an invoice can be matched against.
var OpenInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusSent,
	InvoiceStatusPartiallyPaid,
	InvoiceStatusOverdue,
}

func (s InvoiceStatus) IsOpen() bool {
	switch s {
	case InvoiceStatusSent, InvoiceStatusPartiallyPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// IsAllocationGoverned reports whether the status is derived from allocation sums.
// DRAFT, CANCELLED and REFUNDED are set by explicit processes and are never
// recomputed from allocations.
func (s InvoiceStatus) IsAllocationGoverned() bool {
	return s.IsOpen() || s == InvoiceStatusPaid
}

type Invoice struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Number          string
	TotalAmount     decimal.Decimal
	Currency        Currency
	Status          InvoiceStatus
	ClientEmail     *string
	IssueDate       *time.Time
	DueDate         *time.Time
	HubSpotDealID   *string
	StripeInvoiceID *string
	QuickBooksID    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MatchesReference reports whether ref names this invoice, either by its number
// or by one of its platform identifiers.
func (i *Invoice) MatchesReference(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	candidates := []*string{&i.Number, i.HubSpotDealID, i.StripeInvoiceID, i.QuickBooksID}
	for _, c := range candidates {
		if c != nil && *c != "" && strings.EqualFold(strings.TrimSpace(*c), ref) {
			return true
		}
	}
	return false
}

type InvoiceEvent struct {
	ID         uuid.UUID
	InvoiceID  uuid.UUID
	FromStatus InvoiceStatus
	ToStatus   InvoiceStatus
	Actor      string
	CreatedAt  time.Time
}

// InvoiceBalance is an invoice together with the sum of its live allocations.
type InvoiceBalance struct {
	Invoice   Invoice
	Allocated decimal.Decimal
}

func (b InvoiceBalance) Outstanding() decimal.Decimal {
	return b.Invoice.TotalAmount.Sub(b.Allocated)
}

// CandidateFilter selects invoices that could absorb a payment amount.
type CandidateFilter struct {
	TenantID  uuid.UUID
	Currency  Currency
	Statuses  []InvoiceStatus
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}
