package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

const invoiceEventColumns = `id, invoice_id, from_status, to_status, actor, created_at`

type InvoiceEventRepository struct {
	db *sql.DB
}

func NewInvoiceEventRepository(db *sql.DB) *InvoiceEventRepository {
	return &InvoiceEventRepository{db: db}
}

func (r *InvoiceEventRepository) Create(ctx context.Context, tx *sql.Tx, event *domain.InvoiceEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO invoice_events (id, invoice_id, from_status, to_status, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.InvoiceID, event.FromStatus, event.ToStatus, event.Actor, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *InvoiceEventRepository) GetByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invoiceEventColumns+` FROM invoice_events
		WHERE invoice_id = $1 ORDER BY created_at, id`, invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByInvoiceID: %w", err)
	}
	defer rows.Close()

	var events []domain.InvoiceEvent
	for rows.Next() {
		var e domain.InvoiceEvent
		if err := rows.Scan(&e.ID, &e.InvoiceID, &e.FromStatus, &e.ToStatus, &e.Actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("GetByInvoiceID: scan: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByInvoiceID: rows: %w", err)
	}
	return events, nil
}
