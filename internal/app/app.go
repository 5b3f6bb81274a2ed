// Package app builds the object graph shared by the API server and the ops CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/josh-kwaku/invoice-reconciler/internal/config"
	"github.com/josh-kwaku/invoice-reconciler/internal/repository"
	"github.com/josh-kwaku/invoice-reconciler/internal/scoring"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/allocation"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/matching"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/reconciliation"
)

type Repositories struct {
	Invoices      *repository.InvoiceRepository
	Payments      *repository.PaymentRepository
	Allocations   *repository.AllocationRepository
	InvoiceEvents *repository.InvoiceEventRepository
	SyncEvents    *repository.SyncEventRepository
	Runs          *repository.ReconciliationRunRepository
	Stats         *repository.StatsRepository
	Idempotency   *repository.IdempotencyRepository
}

type App struct {
	DB             *sql.DB
	Repos          Repositories
	Policy         scoring.Policy
	Committer      *allocation.Committer
	Engine         *matching.Engine
	Reconciliation *reconciliation.Service
}

// New connects to the database and wires repositories and services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, cfg.Pool())
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}

	return Wire(db, policy), nil
}

// Wire builds the services on an existing connection.
func Wire(db *sql.DB, policy scoring.Policy) *App {
	repos := Repositories{
		Invoices:      repository.NewInvoiceRepository(db),
		Payments:      repository.NewPaymentRepository(db),
		Allocations:   repository.NewAllocationRepository(db),
		InvoiceEvents: repository.NewInvoiceEventRepository(db),
		SyncEvents:    repository.NewSyncEventRepository(db),
		Runs:          repository.NewReconciliationRunRepository(db),
		Stats:         repository.NewStatsRepository(db),
		Idempotency:   repository.NewIdempotencyRepository(db),
	}

	committer := allocation.NewCommitter(repos.Invoices, repos.Payments, repos.Allocations, repos.InvoiceEvents, db, policy.Tolerance)
	engine := matching.NewEngine(repos.Payments, repos.Invoices, repos.Allocations, committer, scoring.NewScorer(policy), policy)
	recon := reconciliation.NewService(repos.Invoices, repos.Payments, repos.Allocations, repos.Stats, repos.Runs, committer, policy.Tolerance)

	return &App{
		DB:             db,
		Repos:          repos,
		Policy:         policy,
		Committer:      committer,
		Engine:         engine,
		Reconciliation: recon,
	}
}

func (a *App) Close() error {
	return a.DB.Close()
}
