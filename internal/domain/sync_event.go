package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Platform string

const (
	PlatformHubSpot    Platform = "hubspot"
	PlatformStripe     Platform = "stripe"
	PlatformQuickBooks Platform = "quickbooks"
)

func (p Platform) IsValid() bool {
	switch p {
	case PlatformHubSpot, PlatformStripe, PlatformQuickBooks:
		return true
	}
	return false
}

type SyncEventStatus string

const (
	SyncEventStatusPending    SyncEventStatus = "pending"
	SyncEventStatusDispatched SyncEventStatus = "dispatched"
	SyncEventStatusFailed     SyncEventStatus = "failed"
)

type SyncEventType string

const (
	SyncEventTypePaymentCompleted SyncEventType = "payment.completed"
	SyncEventTypeInvoiceUpdated   SyncEventType = "invoice.updated"
)

// SyncEvent is a change reported by the platform sync collaborator. Pending
// payment.completed events are the match worker's job queue.
type SyncEvent struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	IdempotencyKey string
	Platform       Platform
	EventType      SyncEventType
	EntityID       uuid.UUID
	Payload        json.RawMessage
	Status         SyncEventStatus
	Attempts       int
	LastAttempt    *time.Time
	LastError      *string
	CreatedAt      time.Time
}

type ReconciliationMode string

const (
	ReconciliationModeDaily  ReconciliationMode = "DAILY"
	ReconciliationModeWeekly ReconciliationMode = "WEEKLY"
	ReconciliationModeManual ReconciliationMode = "MANUAL"
)

func (m ReconciliationMode) IsValid() bool {
	switch m {
	case ReconciliationModeDaily, ReconciliationModeWeekly, ReconciliationModeManual:
		return true
	}
	return false
}

// ReconciliationRun is a persisted reconciliation report.
type ReconciliationRun struct {
	ID          uuid.UUID
	TenantID    *uuid.UUID
	Mode        ReconciliationMode
	StartedAt   time.Time
	CompletedAt time.Time
	Report      json.RawMessage
}
