package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/logging"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/allocation"
)

type invoiceRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	ListUpdatedBetween(ctx context.Context, from, to time.Time, tenantID *uuid.UUID) ([]domain.Invoice, error)
}

type paymentRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	ListUpdatedBetween(ctx context.Context, from, to time.Time, tenantID *uuid.UUID) ([]domain.Payment, error)
}

type allocationRepo interface {
	ListByInvoiceIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.Allocation, error)
	ListByPaymentIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.Allocation, error)
}

type statsRepo interface {
	WindowCounts(ctx context.Context, from, to, staleBefore time.Time, tenantID *uuid.UUID) (*domain.WindowCounts, error)
	PlatformGaps(ctx context.Context, tenantID *uuid.UUID) (*domain.PlatformGaps, error)
	InvoiceRollup(ctx context.Context, from, to time.Time, tenantID *uuid.UUID) ([]domain.StatusRollup, error)
	PaymentRollup(ctx context.Context, from, to time.Time, tenantID *uuid.UUID) ([]domain.StatusRollup, error)
}

type runRepo interface {
	Create(ctx context.Context, run *domain.ReconciliationRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ReconciliationRun, error)
}

type statusFixer interface {
	ApplyDerivedStatus(ctx context.Context, invoiceID uuid.UUID, actor string) (*allocation.StatusChange, error)
}

type Service struct {
	invoices    invoiceRepo
	payments    paymentRepo
	allocations allocationRepo
	stats       statsRepo
	runs        runRepo
	fixer       statusFixer
	tolerance   decimal.Decimal
}

func NewService(
	invoices invoiceRepo,
	payments paymentRepo,
	allocations allocationRepo,
	stats statsRepo,
	runs runRepo,
	fixer statusFixer,
	tolerance decimal.Decimal,
) *Service {
	return &Service{
		invoices:    invoices,
		payments:    payments,
		allocations: allocations,
		stats:       stats,
		runs:        runs,
		fixer:       fixer,
		tolerance:   tolerance,
	}
}

// RunReconciliation executes one audit in the given mode, stores the report
// and returns it. Only MANUAL writes to the ledger.
func (s *Service) RunReconciliation(ctx context.Context, mode domain.ReconciliationMode, params Params) (*Report, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("RunReconciliation: %q: %w", mode, domain.ErrInvalidMode)
	}
	if params.Now.IsZero() {
		params.Now = time.Now()
	}
	params.Now = params.Now.UTC()

	log := logging.FromContext(ctx).With("mode", mode)

	report := &Report{
		RunID:     uuid.New(),
		Mode:      mode,
		TenantID:  params.TenantID,
		StartedAt: time.Now().UTC(),
	}

	var err error
	switch mode {
	case domain.ReconciliationModeDaily:
		report.Daily, err = s.RunDaily(ctx, params)
	case domain.ReconciliationModeWeekly:
		report.Weekly, err = s.RunWeekly(ctx, params)
	case domain.ReconciliationModeManual:
		report.Manual, err = s.RunManual(ctx, params)
	}
	if err != nil {
		log.Error("reconciliation failed", "error", err)
		return nil, fmt.Errorf("RunReconciliation: %w", err)
	}
	report.CompletedAt = time.Now().UTC()

	if err := s.saveRun(ctx, report); err != nil {
		return nil, fmt.Errorf("RunReconciliation: %w", err)
	}

	log.Info("reconciliation completed",
		"run_id", report.RunID,
		"duration_ms", report.CompletedAt.Sub(report.StartedAt).Milliseconds(),
	)
	return report, nil
}

func (s *Service) saveRun(ctx context.Context, report *Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("saveRun: marshal: %w", err)
	}
	run := &domain.ReconciliationRun{
		ID:          report.RunID,
		TenantID:    report.TenantID,
		Mode:        report.Mode,
		StartedAt:   report.StartedAt,
		CompletedAt: report.CompletedAt,
		Report:      body,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return fmt.Errorf("saveRun: %w", err)
	}
	return nil
}

// GetRun returns a stored run. A tenant may only read its own runs.
func (s *Service) GetRun(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*domain.ReconciliationRun, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetRun: %w", err)
	}
	if tenantID != nil && (run.TenantID == nil || *run.TenantID != *tenantID) {
		return nil, fmt.Errorf("GetRun: %w", domain.ErrNotFound)
	}
	return run, nil
}
