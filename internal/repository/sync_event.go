package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

const syncEventColumns = `id, tenant_id, idempotency_key, platform, event_type, entity_id,
	payload, status, attempts, last_attempt, last_error, created_at`

type SyncEventRepository struct {
	db *sql.DB
}

func NewSyncEventRepository(db *sql.DB) *SyncEventRepository {
	return &SyncEventRepository{db: db}
}

func (r *SyncEventRepository) Create(ctx context.Context, event *domain.SyncEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_events (
			id, tenant_id, idempotency_key, platform, event_type, entity_id,
			payload, status, attempts, last_attempt, last_error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		event.ID, event.TenantID, event.IdempotencyKey, event.Platform, event.EventType, event.EntityID,
		jsonParam(event.Payload), event.Status, event.Attempts, event.LastAttempt, event.LastError, event.CreatedAt,
	)
	if err != nil {
		if IsDuplicateKey(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateIdempotencyKey)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ClaimPending leases up to limit pending events of the given type. A claimed
// event is invisible to other workers until lease has elapsed, so an event
// whose worker died is picked up again.
func (r *SyncEventRepository) ClaimPending(ctx context.Context, eventType domain.SyncEventType, limit int, lease time.Duration) ([]domain.SyncEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE sync_events SET attempts = attempts + 1, last_attempt = now()
		WHERE id IN (
			SELECT id FROM sync_events
			WHERE status = $1 AND event_type = $2
				AND (last_attempt IS NULL OR last_attempt < now() - make_interval(secs => $3))
			ORDER BY created_at LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+syncEventColumns,
		domain.SyncEventStatusPending, eventType, lease.Seconds(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ClaimPending: %w", err)
	}
	defer rows.Close()

	var events []domain.SyncEvent
	for rows.Next() {
		e, err := scanSyncEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ClaimPending: scan: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ClaimPending: rows: %w", err)
	}
	return events, nil
}

// UpdateStatus records the outcome of a claimed event. lastError is nil on success.
func (r *SyncEventRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SyncEventStatus, lastError *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_events SET status = $1, last_error = $2 WHERE id = $3`,
		status, lastError, id,
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

func scanSyncEvent(s scanner) (*domain.SyncEvent, error) {
	var e domain.SyncEvent
	var payload []byte
	err := s.Scan(
		&e.ID, &e.TenantID, &e.IdempotencyKey, &e.Platform, &e.EventType, &e.EntityID,
		&payload, &e.Status, &e.Attempts, &e.LastAttempt, &e.LastError, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Payload = payload
	return &e, nil
}
