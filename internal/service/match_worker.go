package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/logging"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/matching"
)

type syncEventRepo interface {
	ClaimPending(ctx context.Context, eventType domain.SyncEventType, limit int, lease time.Duration) ([]domain.SyncEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SyncEventStatus, lastError *string) error
}

type matcher interface {
	AutoMatch(ctx context.Context, paymentID uuid.UUID) (*matching.MatchOutcome, error)
}

type MatchWorkerConfig struct {
	Interval    time.Duration
	BatchSize   int
	Lease       time.Duration
	MaxAttempts int
}

// MatchWorker runs AutoMatch for every pending payment.completed sync event.
// Events that fail transiently stay pending and are retried once their lease
// expires, up to MaxAttempts.
type MatchWorker struct {
	events  syncEventRepo
	matcher matcher
	logger  *slog.Logger
	cfg     MatchWorkerConfig
}

func NewMatchWorker(events syncEventRepo, m matcher, logger *slog.Logger, cfg MatchWorkerConfig) *MatchWorker {
	return &MatchWorker{
		events:  events,
		matcher: m,
		logger:  logger,
		cfg:     cfg,
	}
}

func (w *MatchWorker) Start(ctx context.Context) {
	w.logger.Info("match worker started", "interval", w.cfg.Interval, "batch_size", w.cfg.BatchSize)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("match worker stopped")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll claims one batch and processes it. It returns the number of events claimed.
func (w *MatchWorker) poll(ctx context.Context) int {
	events, err := w.events.ClaimPending(ctx, domain.SyncEventTypePaymentCompleted, w.cfg.BatchSize, w.cfg.Lease)
	if err != nil {
		w.logger.Error("failed to claim pending sync events", "error", err)
		return 0
	}

	for _, event := range events {
		if err := w.processEvent(ctx, event); err != nil {
			w.logger.Error("failed to record sync event outcome",
				"sync_event_id", event.ID,
				"error", err,
			)
		}
	}
	return len(events)
}

func (w *MatchWorker) processEvent(ctx context.Context, event domain.SyncEvent) error {
	log := w.logger.With(
		"sync_event_id", event.ID,
		"tenant_id", event.TenantID,
		"payment_id", event.EntityID,
		"attempt", event.Attempts,
	)

	outcome, err := w.matcher.AutoMatch(logging.WithLogger(ctx, log), event.EntityID)
	if err == nil {
		log.Info("sync event matched", "status", outcome.Status, "items", len(outcome.Items))
		return w.events.UpdateStatus(ctx, event.ID, domain.SyncEventStatusDispatched, nil)
	}

	msg := err.Error()
	if errors.Is(err, domain.ErrNotFound) || event.Attempts >= w.cfg.MaxAttempts {
		log.Error("sync event failed", "error", err)
		return w.events.UpdateStatus(ctx, event.ID, domain.SyncEventStatusFailed, &msg)
	}

	log.Warn("sync event will be retried", "error", err)
	return w.events.UpdateStatus(ctx, event.ID, domain.SyncEventStatusPending, &msg)
}
