package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

const allocationColumns = `id, invoice_id, payment_id, allocated_amount, status, created_at`

type AllocationRepository struct {
	db *sql.DB
}

func NewAllocationRepository(db *sql.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// Create inserts a within tx. It reports false without error when an
// allocation for the same (invoice, payment) pair already exists.
func (r *AllocationRepository) Create(ctx context.Context, tx *sql.Tx, a *domain.Allocation) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO allocations (id, invoice_id, payment_id, allocated_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (invoice_id, payment_id) DO NOTHING`,
		a.ID, a.InvoiceID, a.PaymentID, a.AllocatedAmount, a.Status, a.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("Create: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Create: rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *AllocationRepository) GetByPair(ctx context.Context, invoiceID, paymentID uuid.UUID) (*domain.Allocation, error) {
	a, err := getByPair(ctx, r.db, invoiceID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("GetByPair: %w", err)
	}
	return a, nil
}

func (r *AllocationRepository) GetByPairTx(ctx context.Context, tx *sql.Tx, invoiceID, paymentID uuid.UUID) (*domain.Allocation, error) {
	a, err := getByPair(ctx, tx, invoiceID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("GetByPairTx: %w", err)
	}
	return a, nil
}

func getByPair(ctx context.Context, q querier, invoiceID, paymentID uuid.UUID) (*domain.Allocation, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+allocationColumns+` FROM allocations WHERE invoice_id = $1 AND payment_id = $2`,
		invoiceID, paymentID,
	)
	a, err := scanAllocation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AllocationRepository) SumByInvoice(ctx context.Context, tx *sql.Tx, invoiceID uuid.UUID) (decimal.Decimal, error) {
	sum, err := sumBy(ctx, tx, "invoice_id", invoiceID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("SumByInvoice: %w", err)
	}
	return sum, nil
}

func (r *AllocationRepository) SumByPayment(ctx context.Context, tx *sql.Tx, paymentID uuid.UUID) (decimal.Decimal, error) {
	sum, err := sumBy(ctx, tx, "payment_id", paymentID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("SumByPayment: %w", err)
	}
	return sum, nil
}

// TotalByPayment is SumByPayment outside a transaction.
func (r *AllocationRepository) TotalByPayment(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error) {
	sum, err := sumBy(ctx, r.db, "payment_id", paymentID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("TotalByPayment: %w", err)
	}
	return sum, nil
}

// TotalByInvoice is SumByInvoice outside a transaction.
func (r *AllocationRepository) TotalByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	sum, err := sumBy(ctx, r.db, "invoice_id", invoiceID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("TotalByInvoice: %w", err)
	}
	return sum, nil
}

func sumBy(ctx context.Context, q querier, column string, id uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(allocated_amount), 0) FROM allocations
		WHERE `+column+` = $1 AND status = 'ALLOCATED'`, id,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// ListByInvoiceIDs returns live allocations grouped by invoice id.
func (r *AllocationRepository) ListByInvoiceIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.Allocation, error) {
	out, err := r.listGrouped(ctx, "invoice_id", ids)
	if err != nil {
		return nil, fmt.Errorf("ListByInvoiceIDs: %w", err)
	}
	return out, nil
}

// ListByPaymentIDs returns live allocations grouped by payment id.
func (r *AllocationRepository) ListByPaymentIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.Allocation, error) {
	out, err := r.listGrouped(ctx, "payment_id", ids)
	if err != nil {
		return nil, fmt.Errorf("ListByPaymentIDs: %w", err)
	}
	return out, nil
}

func (r *AllocationRepository) listGrouped(ctx context.Context, column string, ids []uuid.UUID) (map[uuid.UUID][]domain.Allocation, error) {
	out := make(map[uuid.UUID][]domain.Allocation, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+allocationColumns+` FROM allocations
		WHERE `+column+` = ANY($1::uuid[]) AND status = 'ALLOCATED'
		ORDER BY created_at, id`,
		uuidArray(ids),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		key := a.InvoiceID
		if column == "payment_id" {
			key = a.PaymentID
		}
		out[key] = append(out[key], *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func scanAllocation(s scanner) (*domain.Allocation, error) {
	var a domain.Allocation
	err := s.Scan(&a.ID, &a.InvoiceID, &a.PaymentID, &a.AllocatedAmount, &a.Status, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
