package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/repository"
)

// InvoiceOpt customises a seeded invoice before it is inserted.
type InvoiceOpt func(*domain.Invoice)

func WithClientEmail(email string) InvoiceOpt {
	return func(i *domain.Invoice) { i.ClientEmail = &email }
}

func WithIssueDate(t time.Time) InvoiceOpt {
	return func(i *domain.Invoice) { i.IssueDate = &t }
}

func WithDueDate(t time.Time) InvoiceOpt {
	return func(i *domain.Invoice) { i.DueDate = &t }
}

func WithInvoiceStatus(s domain.InvoiceStatus) InvoiceOpt {
	return func(i *domain.Invoice) { i.Status = s }
}

func WithInvoiceUpdatedAt(t time.Time) InvoiceOpt {
	return func(i *domain.Invoice) { i.UpdatedAt = t }
}

func WithInvoiceCurrency(c domain.Currency) InvoiceOpt {
	return func(i *domain.Invoice) { i.Currency = c }
}

func SeedInvoice(t *testing.T, db *sql.DB, tenantID uuid.UUID, total string, opts ...InvoiceOpt) *domain.Invoice {
	t.Helper()

	now := time.Now().UTC()
	inv := &domain.Invoice{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Number:      "INV-" + uuid.NewString()[:8],
		TotalAmount: decimal.RequireFromString(total),
		Currency:    domain.CurrencyUSD,
		Status:      domain.InvoiceStatusSent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(inv)
	}

	if err := repository.NewInvoiceRepository(db).Create(context.Background(), inv); err != nil {
		t.Fatalf("seed invoice %s: %v", inv.Number, err)
	}
	return inv
}

// PaymentOpt customises a seeded payment before it is inserted.
type PaymentOpt func(*domain.Payment)

func WithMetadata(email, reference string) PaymentOpt {
	return func(p *domain.Payment) { p.Metadata = domain.NewPaymentMetadata(email, reference) }
}

func WithTransactionDate(t time.Time) PaymentOpt {
	return func(p *domain.Payment) { p.TransactionDate = t }
}

func WithPaymentStatus(s domain.PaymentStatus) PaymentOpt {
	return func(p *domain.Payment) { p.Status = s }
}

func WithPaymentUpdatedAt(t time.Time) PaymentOpt {
	return func(p *domain.Payment) { p.UpdatedAt = t }
}

func WithPaymentCurrency(c domain.Currency) PaymentOpt {
	return func(p *domain.Payment) { p.Currency = c }
}

func SeedPayment(t *testing.T, db *sql.DB, tenantID uuid.UUID, amount string, opts ...PaymentOpt) *domain.Payment {
	t.Helper()

	now := time.Now().UTC()
	p := &domain.Payment{
		ID:              uuid.New(),
		TenantID:        tenantID,
		Amount:          decimal.RequireFromString(amount),
		Currency:        domain.CurrencyUSD,
		Status:          domain.PaymentStatusCompleted,
		TransactionDate: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := repository.NewPaymentRepository(db).Create(context.Background(), p); err != nil {
		t.Fatalf("seed payment %s: %v", p.ID, err)
	}
	return p
}

// SeedAllocation inserts an allocation directly, bypassing every balance
// check. Use it to build inconsistent ledgers.
func SeedAllocation(t *testing.T, db *sql.DB, invoiceID, paymentID uuid.UUID, amount string) *domain.Allocation {
	t.Helper()

	a := &domain.Allocation{
		ID:              uuid.New(),
		InvoiceID:       invoiceID,
		PaymentID:       paymentID,
		AllocatedAmount: decimal.RequireFromString(amount),
		Status:          domain.AllocationStatusAllocated,
		CreatedAt:       time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO allocations (id, invoice_id, payment_id, allocated_amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.InvoiceID, a.PaymentID, a.AllocatedAmount, a.Status, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed allocation %s/%s: %v", invoiceID, paymentID, err)
	}
	return a
}

func GetInvoiceStatus(t *testing.T, db *sql.DB, invoiceID uuid.UUID) domain.InvoiceStatus {
	t.Helper()

	var status domain.InvoiceStatus
	err := db.QueryRow(`SELECT status FROM invoices WHERE id = $1`, invoiceID).Scan(&status)
	if err != nil {
		t.Fatalf("get invoice status %s: %v", invoiceID, err)
	}
	return status
}

func SumInvoiceAllocations(t *testing.T, db *sql.DB, invoiceID uuid.UUID) decimal.Decimal {
	t.Helper()

	var sum decimal.Decimal
	err := db.QueryRow(
		`SELECT COALESCE(SUM(allocated_amount), 0) FROM allocations WHERE invoice_id = $1 AND status = 'ALLOCATED'`,
		invoiceID,
	).Scan(&sum)
	if err != nil {
		t.Fatalf("sum invoice allocations %s: %v", invoiceID, err)
	}
	return sum
}

func SumPaymentAllocations(t *testing.T, db *sql.DB, paymentID uuid.UUID) decimal.Decimal {
	t.Helper()

	var sum decimal.Decimal
	err := db.QueryRow(
		`SELECT COALESCE(SUM(allocated_amount), 0) FROM allocations WHERE payment_id = $1 AND status = 'ALLOCATED'`,
		paymentID,
	).Scan(&sum)
	if err != nil {
		t.Fatalf("sum payment allocations %s: %v", paymentID, err)
	}
	return sum
}

func CountAllocations(t *testing.T, db *sql.DB, paymentID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM allocations WHERE payment_id = $1`, paymentID).Scan(&count)
	if err != nil {
		t.Fatalf("count allocations for payment %s: %v", paymentID, err)
	}
	return count
}

func CountInvoiceEvents(t *testing.T, db *sql.DB, invoiceID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM invoice_events WHERE invoice_id = $1`, invoiceID).Scan(&count)
	if err != nil {
		t.Fatalf("count invoice events %s: %v", invoiceID, err)
	}
	return count
}
