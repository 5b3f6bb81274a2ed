package allocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/logging"
)

// ActorManualReconciliation marks status changes written by a manual run.
const ActorManualReconciliation = "reconciliation:manual"

func allocationActor(paymentID uuid.UUID) string {
	return "allocation:" + paymentID.String()
}

type invoiceRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Invoice, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.InvoiceStatus, updatedAt time.Time) error
}

type paymentRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Payment, error)
}

type allocationRepo interface {
	Create(ctx context.Context, tx *sql.Tx, a *domain.Allocation) (bool, error)
	GetByPair(ctx context.Context, invoiceID, paymentID uuid.UUID) (*domain.Allocation, error)
	GetByPairTx(ctx context.Context, tx *sql.Tx, invoiceID, paymentID uuid.UUID) (*domain.Allocation, error)
	SumByInvoice(ctx context.Context, tx *sql.Tx, invoiceID uuid.UUID) (decimal.Decimal, error)
	SumByPayment(ctx context.Context, tx *sql.Tx, paymentID uuid.UUID) (decimal.Decimal, error)
}

type eventRepo interface {
	Create(ctx context.Context, tx *sql.Tx, event *domain.InvoiceEvent) error
}

// StatusChange describes the outcome of ApplyDerivedStatus.
type StatusChange struct {
	InvoiceID uuid.UUID            `json:"invoice_id" yaml:"invoice_id"`
	From      domain.InvoiceStatus `json:"from" yaml:"from"`
	To        domain.InvoiceStatus `json:"to" yaml:"to"`
	Changed   bool                 `json:"changed" yaml:"changed"`
}

type Committer struct {
	invoices    invoiceRepo
	payments    paymentRepo
	allocations allocationRepo
	events      eventRepo
	db          *sql.DB
	tolerance   decimal.Decimal
}

func NewCommitter(
	invoices invoiceRepo,
	payments paymentRepo,
	allocations allocationRepo,
	events eventRepo,
	db *sql.DB,
	tolerance decimal.Decimal,
) *Committer {
	return &Committer{
		invoices:    invoices,
		payments:    payments,
		allocations: allocations,
		events:      events,
		db:          db,
		tolerance:   tolerance,
	}
}

// Commit records amount of paymentID against invoiceID and promotes the
// invoice status, all in one transaction. Committing an existing pair returns
// the stored allocation unchanged.
func (c *Committer) Commit(ctx context.Context, paymentID, invoiceID uuid.UUID, amount decimal.Decimal) (*domain.Allocation, error) {
	log := logging.FromContext(ctx)

	if !amount.IsPositive() {
		return nil, fmt.Errorf("Commit: %w", domain.ErrInvalidAmount)
	}

	existing, err := c.allocations.GetByPair(ctx, invoiceID, paymentID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("Commit: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Commit: begin tx: %w", err)
	}
	defer tx.Rollback()

	inv, p, err := c.lockInOrder(ctx, tx, invoiceID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}

	if inv.Currency != p.Currency {
		return nil, fmt.Errorf("Commit: invoice %s, payment %s: %w", inv.Currency, p.Currency, domain.ErrCurrencyMismatch)
	}

	// Re-check under the row locks; a concurrent commit may have won.
	existing, err = c.allocations.GetByPairTx(ctx, tx, invoiceID, paymentID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("Commit: %w", err)
	}

	invoiceAllocated, err := c.allocations.SumByInvoice(ctx, tx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}
	if invoiceAllocated.Add(amount).GreaterThan(inv.TotalAmount.Add(c.tolerance)) {
		return nil, fmt.Errorf("Commit: invoice %s: %w", invoiceID, domain.ErrOverallocation)
	}

	paymentAllocated, err := c.allocations.SumByPayment(ctx, tx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}
	if paymentAllocated.Add(amount).GreaterThan(p.Amount.Add(c.tolerance)) {
		return nil, fmt.Errorf("Commit: payment %s: %w", paymentID, domain.ErrOverallocation)
	}

	now := time.Now().UTC()
	a := &domain.Allocation{
		ID:              uuid.New(),
		InvoiceID:       invoiceID,
		PaymentID:       paymentID,
		AllocatedAmount: amount,
		Status:          domain.AllocationStatusAllocated,
		CreatedAt:       now,
	}

	inserted, err := c.allocations.Create(ctx, tx, a)
	if err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}
	if !inserted {
		existing, err := c.allocations.GetByPairTx(ctx, tx, invoiceID, paymentID)
		if err != nil {
			return nil, fmt.Errorf("Commit: re-read after conflict: %w", err)
		}
		return existing, nil
	}

	total := invoiceAllocated.Add(amount)
	next := PromotedStatus(inv.Status, inv.TotalAmount, total, c.tolerance)
	if next != inv.Status {
		if err := c.writeStatus(ctx, tx, inv, next, allocationActor(paymentID), now); err != nil {
			return nil, fmt.Errorf("Commit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Commit: commit: %w", err)
	}

	log.Info("allocation committed",
		"allocation_id", a.ID,
		"invoice_id", invoiceID,
		"payment_id", paymentID,
		"amount", amount.StringFixed(2),
		"invoice_allocated", total.StringFixed(2),
		"from_status", inv.Status,
		"to_status", next,
	)

	return a, nil
}

// ApplyDerivedStatus rewrites an invoice's status to the one implied by its
// allocations. Statuses outside the allocation-governed set are never touched.
func (c *Committer) ApplyDerivedStatus(ctx context.Context, invoiceID uuid.UUID, actor string) (*StatusChange, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ApplyDerivedStatus: begin tx: %w", err)
	}
	defer tx.Rollback()

	inv, err := c.invoices.GetForUpdate(ctx, tx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("ApplyDerivedStatus: %w", err)
	}

	change := &StatusChange{InvoiceID: invoiceID, From: inv.Status, To: inv.Status}
	if !inv.Status.IsAllocationGoverned() {
		return change, nil
	}

	allocated, err := c.allocations.SumByInvoice(ctx, tx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("ApplyDerivedStatus: %w", err)
	}

	expected := ExpectedStatus(inv.TotalAmount, allocated, c.tolerance)
	if StatusConsistent(inv.Status, expected) {
		return change, nil
	}

	if err := c.writeStatus(ctx, tx, inv, expected, actor, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("ApplyDerivedStatus: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ApplyDerivedStatus: commit: %w", err)
	}

	change.To = expected
	change.Changed = true

	logging.FromContext(ctx).Info("invoice status corrected",
		"invoice_id", invoiceID,
		"from_status", inv.Status,
		"to_status", expected,
		"allocated", allocated.StringFixed(2),
		"actor", actor,
	)
	return change, nil
}

func (c *Committer) writeStatus(ctx context.Context, tx *sql.Tx, inv *domain.Invoice, to domain.InvoiceStatus, actor string, now time.Time) error {
	if err := c.invoices.UpdateStatus(ctx, tx, inv.ID, to, now); err != nil {
		return fmt.Errorf("writeStatus: %w", err)
	}
	event := &domain.InvoiceEvent{
		ID:         uuid.New(),
		InvoiceID:  inv.ID,
		FromStatus: inv.Status,
		ToStatus:   to,
		Actor:      actor,
		CreatedAt:  now,
	}
	if err := c.events.Create(ctx, tx, event); err != nil {
		return fmt.Errorf("writeStatus: %w", err)
	}
	return nil
}

// lockInOrder takes the invoice and payment row locks in ascending id order so
// that concurrent commits touching the same rows cannot deadlock.
func (c *Committer) lockInOrder(ctx context.Context, tx *sql.Tx, invoiceID, paymentID uuid.UUID) (*domain.Invoice, *domain.Payment, error) {
	var (
		inv *domain.Invoice
		p   *domain.Payment
	)

	lockInvoice := func() error {
		var err error
		inv, err = c.invoices.GetForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return fmt.Errorf("lock invoice %s: %w", invoiceID, err)
		}
		return nil
	}
	lockPayment := func() error {
		var err error
		p, err = c.payments.GetForUpdate(ctx, tx, paymentID)
		if err != nil {
			return fmt.Errorf("lock payment %s: %w", paymentID, err)
		}
		return nil
	}

	steps := []func() error{lockInvoice, lockPayment}
	if paymentID.String() < invoiceID.String() {
		steps = []func() error{lockPayment, lockInvoice}
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, nil, err
		}
	}
	return inv, p, nil
}
