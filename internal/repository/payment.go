package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

const paymentColumns = `id, tenant_id, amount, currency, status, transaction_date,
	metadata, stripe_payment_id, quickbooks_id, created_at, updated_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (
			id, tenant_id, amount, currency, status, transaction_date,
			metadata, stripe_payment_id, quickbooks_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.TenantID, p.Amount, p.Currency, p.Status, p.TransactionDate,
		jsonParam(p.Metadata.Raw()), p.StripePaymentID, p.QuickBooksID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Payment, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return p, nil
}

// ListUpdatedBetween returns payments whose updated_at falls in [from, to).
func (r *PaymentRepository) ListUpdatedBetween(ctx context.Context, from, to time.Time, tenantID *uuid.UUID) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		WHERE updated_at >= $1 AND updated_at < $2 AND ($3::uuid IS NULL OR tenant_id = $3)
		ORDER BY updated_at, id`,
		from, to, nullTenant(tenantID),
	)
	if err != nil {
		return nil, fmt.Errorf("ListUpdatedBetween: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("ListUpdatedBetween: scan: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListUpdatedBetween: rows: %w", err)
	}
	return payments, nil
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var p domain.Payment
	var metadata []byte

	err := s.Scan(
		&p.ID, &p.TenantID, &p.Amount, &p.Currency, &p.Status, &p.TransactionDate,
		&metadata, &p.StripePaymentID, &p.QuickBooksID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Metadata, err = domain.ParsePaymentMetadata(metadata)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
