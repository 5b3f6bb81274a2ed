package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// WindowCounts counts activity created in [from, to). Unpaid invoices are
// counted when still open and issued before staleBefore.
func (r *StatsRepository) WindowCounts(ctx context.Context, from, to, staleBefore time.Time, tenantID *uuid.UUID) (*domain.WindowCounts, error) {
	var c domain.WindowCounts
	tenant := nullTenant(tenantID)

	err := r.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM invoices
				WHERE created_at >= $1 AND created_at < $2 AND ($3::uuid IS NULL OR tenant_id = $3)),
			(SELECT COUNT(*) FROM payments
				WHERE created_at >= $1 AND created_at < $2 AND ($3::uuid IS NULL OR tenant_id = $3)),
			(SELECT COUNT(*) FROM allocations a JOIN invoices i ON i.id = a.invoice_id
				WHERE a.created_at >= $1 AND a.created_at < $2 AND ($3::uuid IS NULL OR i.tenant_id = $3)),
			(SELECT COUNT(*) FROM payments p
				WHERE p.status = $4 AND p.created_at >= $1 AND p.created_at < $2
					AND ($3::uuid IS NULL OR p.tenant_id = $3)
					AND NOT EXISTS (SELECT 1 FROM allocations a WHERE a.payment_id = p.id AND a.status = 'ALLOCATED')),
			(SELECT COUNT(*) FROM invoices
				WHERE status = ANY($5) AND COALESCE(issue_date, created_at) < $6
					AND ($3::uuid IS NULL OR tenant_id = $3)),
			(SELECT COUNT(*) FROM sync_events
				WHERE status = $7 AND created_at >= $1 AND created_at < $2
					AND ($3::uuid IS NULL OR tenant_id = $3))`,
		from, to, tenant, domain.PaymentStatusCompleted,
		pqStrings(openStatuses()), staleBefore, domain.SyncEventStatusFailed,
	).Scan(
		&c.InvoicesCreated, &c.PaymentsCreated, &c.AllocationsCreated,
		&c.UnmatchedPayments, &c.StaleUnpaidInvoices, &c.FailedSyncEvents,
	)
	if err != nil {
		return nil, fmt.Errorf("WindowCounts: %w", err)
	}
	return &c, nil
}

func (r *StatsRepository) PlatformGaps(ctx context.Context, tenantID *uuid.UUID) (*domain.PlatformGaps, error) {
	var g domain.PlatformGaps
	tenant := nullTenant(tenantID)

	err := r.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE hubspot_deal_id IS NULL),
			COUNT(*) FILTER (WHERE stripe_invoice_id IS NULL),
			COUNT(*) FILTER (WHERE quickbooks_id IS NULL)
		FROM invoices WHERE $1::uuid IS NULL OR tenant_id = $1`, tenant,
	).Scan(&g.InvoicesMissingHubSpot, &g.InvoicesMissingStripe, &g.InvoicesMissingQuickBooks)
	if err != nil {
		return nil, fmt.Errorf("PlatformGaps: invoices: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE stripe_payment_id IS NULL),
			COUNT(*) FILTER (WHERE quickbooks_id IS NULL)
		FROM payments WHERE $1::uuid IS NULL OR tenant_id = $1`, tenant,
	).Scan(&g.PaymentsMissingStripe, &g.PaymentsMissingQuickBooks)
	if err != nil {
		return nil, fmt.Errorf("PlatformGaps: payments: %w", err)
	}
	return &g, nil
}

// InvoiceRollup totals invoices updated in [from, to) by status.
func (r *StatsRepository) InvoiceRollup(ctx context.Context, from, to time.Time, tenantID *uuid.UUID) ([]domain.StatusRollup, error) {
	rollups, err := r.rollup(ctx,
		`SELECT i.status, COUNT(*), COALESCE(SUM(i.total_amount), 0),
			COALESCE(SUM((SELECT COALESCE(SUM(a.allocated_amount), 0) FROM allocations a
				WHERE a.invoice_id = i.id AND a.status = 'ALLOCATED')), 0)
		FROM invoices i
		WHERE i.updated_at >= $1 AND i.updated_at < $2 AND ($3::uuid IS NULL OR i.tenant_id = $3)
		GROUP BY i.status ORDER BY i.status`,
		from, to, nullTenant(tenantID),
	)
	if err != nil {
		return nil, fmt.Errorf("InvoiceRollup: %w", err)
	}
	return rollups, nil
}

// PaymentRollup totals payments updated in [from, to) by status.
func (r *StatsRepository) PaymentRollup(ctx context.Context, from, to time.Time, tenantID *uuid.UUID) ([]domain.StatusRollup, error) {
	rollups, err := r.rollup(ctx,
		`SELECT p.status, COUNT(*), COALESCE(SUM(p.amount), 0),
			COALESCE(SUM((SELECT COALESCE(SUM(a.allocated_amount), 0) FROM allocations a
				WHERE a.payment_id = p.id AND a.status = 'ALLOCATED')), 0)
		FROM payments p
		WHERE p.updated_at >= $1 AND p.updated_at < $2 AND ($3::uuid IS NULL OR p.tenant_id = $3)
		GROUP BY p.status ORDER BY p.status`,
		from, to, nullTenant(tenantID),
	)
	if err != nil {
		return nil, fmt.Errorf("PaymentRollup: %w", err)
	}
	return rollups, nil
}

func (r *StatsRepository) rollup(ctx context.Context, query string, args ...any) ([]domain.StatusRollup, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StatusRollup
	for rows.Next() {
		var s domain.StatusRollup
		if err := rows.Scan(&s.Status, &s.Count, &s.Amount, &s.Allocated); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func openStatuses() []string {
	out := make([]string, len(domain.OpenInvoiceStatuses))
	for i, s := range domain.OpenInvoiceStatuses {
		out[i] = string(s)
	}
	return out
}
