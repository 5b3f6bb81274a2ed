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

const invoiceColumns = `id, tenant_id, number, total_amount, currency, status,
	client_email, issue_date, due_date, hubspot_deal_id, stripe_invoice_id, quickbooks_id,
	created_at, updated_at`

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invoices (
			id, tenant_id, number, total_amount, currency, status,
			client_email, issue_date, due_date, hubspot_deal_id, stripe_invoice_id, quickbooks_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		inv.ID, inv.TenantID, inv.Number, inv.TotalAmount, inv.Currency, inv.Status,
		inv.ClientEmail, inv.IssueDate, inv.DueDate, inv.HubSpotDealID, inv.StripeInvoiceID, inv.QuickBooksID,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Invoice, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return inv, nil
}

// FindCandidates returns invoices matching the filter together with their
// currently allocated totals, smallest amount difference first.
func (r *InvoiceRepository) FindCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.InvoiceBalance, error) {
	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+prefixed("i", invoiceColumns)+`,
			COALESCE((SELECT SUM(a.allocated_amount) FROM allocations a
				WHERE a.invoice_id = i.id AND a.status = 'ALLOCATED'), 0)
		FROM invoices i
		WHERE i.tenant_id = $1 AND i.currency = $2 AND i.status = ANY($3)
			AND i.total_amount BETWEEN $4 AND $5
		ORDER BY i.issue_date NULLS LAST, i.id`,
		f.TenantID, f.Currency, pqStrings(statuses), f.MinAmount, f.MaxAmount,
	)
	if err != nil {
		return nil, fmt.Errorf("FindCandidates: %w", err)
	}
	defer rows.Close()

	var out []domain.InvoiceBalance
	for rows.Next() {
		var b domain.InvoiceBalance
		inv, err := scanInvoiceWith(rows, &b.Allocated)
		if err != nil {
			return nil, fmt.Errorf("FindCandidates: scan: %w", err)
		}
		b.Invoice = *inv
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FindCandidates: rows: %w", err)
	}
	return out, nil
}

// ListUpdatedBetween returns invoices whose updated_at falls in [from, to).
func (r *InvoiceRepository) ListUpdatedBetween(ctx context.Context, from, to time.Time, tenantID *uuid.UUID) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		WHERE updated_at >= $1 AND updated_at < $2 AND ($3::uuid IS NULL OR tenant_id = $3)
		ORDER BY updated_at, id`,
		from, to, nullTenant(tenantID),
	)
	if err != nil {
		return nil, fmt.Errorf("ListUpdatedBetween: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("ListUpdatedBetween: scan: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListUpdatedBetween: rows: %w", err)
	}
	return invoices, nil
}

func (r *InvoiceRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.InvoiceStatus, updatedAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE invoices SET status = $1, updated_at = $2 WHERE id = $3`,
		status, updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func scanInvoice(s scanner) (*domain.Invoice, error) {
	return scanInvoiceWith(s)
}

func scanInvoiceWith(s scanner, extra ...any) (*domain.Invoice, error) {
	var inv domain.Invoice
	dest := []any{
		&inv.ID, &inv.TenantID, &inv.Number, &inv.TotalAmount, &inv.Currency, &inv.Status,
		&inv.ClientEmail, &inv.IssueDate, &inv.DueDate, &inv.HubSpotDealID, &inv.StripeInvoiceID, &inv.QuickBooksID,
		&inv.CreatedAt, &inv.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &inv, nil
}
