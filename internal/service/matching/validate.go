package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/scoring"
)

const (
	CheckAmountAvailable = "amount_available"
	CheckCounterparty    = "counterparty"
	CheckDateWindow      = "date_window"
	CheckNoDuplicate     = "no_duplicate"
)

type Check struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type ValidationResult struct {
	PaymentID          uuid.UUID       `json:"payment_id" yaml:"payment_id"`
	InvoiceID          uuid.UUID       `json:"invoice_id" yaml:"invoice_id"`
	Valid              bool            `json:"valid" yaml:"valid"`
	Checks             []Check         `json:"checks" yaml:"checks"`
	PaymentAvailable   decimal.Decimal `json:"payment_available" yaml:"payment_available"`
	InvoiceOutstanding decimal.Decimal `json:"invoice_outstanding" yaml:"invoice_outstanding"`
	SuggestedAmount    decimal.Decimal `json:"suggested_amount" yaml:"suggested_amount"`
}

// ValidateMatch checks whether a manually proposed pairing could be committed.
// It never writes.
func (e *Engine) ValidateMatch(ctx context.Context, paymentID, invoiceID uuid.UUID) (*ValidationResult, error) {
	p, err := e.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("ValidateMatch: %w", err)
	}
	inv, err := e.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("ValidateMatch: %w", err)
	}
	if inv.TenantID != p.TenantID {
		return nil, fmt.Errorf("ValidateMatch: invoice %s: %w", invoiceID, domain.ErrNotFound)
	}

	paymentAllocated, err := e.allocations.TotalByPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("ValidateMatch: %w", err)
	}
	invoiceAllocated, err := e.allocations.TotalByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("ValidateMatch: %w", err)
	}

	res := &ValidationResult{
		PaymentID:          paymentID,
		InvoiceID:          invoiceID,
		PaymentAvailable:   p.Amount.Sub(paymentAllocated),
		InvoiceOutstanding: inv.TotalAmount.Sub(invoiceAllocated),
	}
	res.SuggestedAmount = decimal.Max(decimal.Zero, decimal.Min(res.PaymentAvailable, res.InvoiceOutstanding))

	duplicate, err := e.checkDuplicate(ctx, invoiceID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("ValidateMatch: %w", err)
	}

	res.Checks = []Check{
		e.checkAmountAvailable(p, inv, res),
		checkCounterparty(p, inv),
		e.checkDateWindow(p, inv),
		duplicate,
	}

	res.Valid = true
	for _, c := range res.Checks {
		res.Valid = res.Valid && c.Passed
	}
	return res, nil
}

func (e *Engine) checkAmountAvailable(p *domain.Payment, inv *domain.Invoice, res *ValidationResult) Check {
	c := Check{Name: CheckAmountAvailable}
	switch {
	case p.Currency != inv.Currency:
		c.Detail = fmt.Sprintf("payment currency %s differs from invoice currency %s", p.Currency, inv.Currency)
	case res.PaymentAvailable.LessThanOrEqual(e.policy.Tolerance):
		c.Detail = "payment is fully allocated"
	case res.InvoiceOutstanding.LessThanOrEqual(e.policy.Tolerance):
		c.Detail = "invoice has no outstanding balance"
	default:
		c.Passed = true
	}
	return c
}

func checkCounterparty(p *domain.Payment, inv *domain.Invoice) Check {
	c := Check{Name: CheckCounterparty}
	email, ok := p.Metadata.CounterpartyEmail()
	switch {
	case !ok:
		c.Detail = "payment has no counterparty email"
	case inv.ClientEmail == nil:
		c.Detail = "invoice has no client email"
	case !scoring.EmailsEqual(email, *inv.ClientEmail):
		c.Detail = "counterparty email does not match client email"
	default:
		c.Passed = true
	}
	return c
}

func (e *Engine) checkDateWindow(p *domain.Payment, inv *domain.Invoice) Check {
	c := Check{Name: CheckDateWindow}
	if inv.IssueDate == nil {
		c.Detail = "invoice has no issue date"
		return c
	}
	days := scoring.DaysBetween(p.TransactionDate, *inv.IssueDate)
	if days > e.policy.ValidationWindowDays {
		c.Detail = fmt.Sprintf("%d days apart, limit is %d", days, e.policy.ValidationWindowDays)
		return c
	}
	c.Passed = true
	return c
}

func (e *Engine) checkDuplicate(ctx context.Context, invoiceID, paymentID uuid.UUID) (Check, error) {
	c := Check{Name: CheckNoDuplicate}
	_, err := e.allocations.GetByPair(ctx, invoiceID, paymentID)
	switch {
	case err == nil:
		c.Detail = "allocation already exists for this pair"
	case errors.Is(err, domain.ErrNotFound):
		c.Passed = true
	default:
		return c, fmt.Errorf("checkDuplicate: %w", err)
	}
	return c, nil
}
