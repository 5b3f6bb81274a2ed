package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

type ReconciliationRunRepository struct {
	db *sql.DB
}

func NewReconciliationRunRepository(db *sql.DB) *ReconciliationRunRepository {
	return &ReconciliationRunRepository{db: db}
}

func (r *ReconciliationRunRepository) Create(ctx context.Context, run *domain.ReconciliationRun) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reconciliation_runs (id, tenant_id, mode, started_at, completed_at, report)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, nullTenant(run.TenantID), run.Mode, run.StartedAt, run.CompletedAt, jsonParam(run.Report),
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ReconciliationRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReconciliationRun, error) {
	var run domain.ReconciliationRun
	var tenantID uuid.NullUUID
	var report []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, mode, started_at, completed_at, report
		FROM reconciliation_runs WHERE id = $1`, id,
	).Scan(&run.ID, &tenantID, &run.Mode, &run.StartedAt, &run.CompletedAt, &report)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}

	if tenantID.Valid {
		run.TenantID = &tenantID.UUID
	}
	run.Report = report
	return &run, nil
}
