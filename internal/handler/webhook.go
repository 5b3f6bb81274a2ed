package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/logging"
)

type syncEventRepository interface {
	Create(ctx context.Context, event *domain.SyncEvent) error
}

type WebhookHandler struct {
	events syncEventRepository
	secret string
}

func NewWebhookHandler(events syncEventRepository, secret string) *WebhookHandler {
	return &WebhookHandler{events: events, secret: secret}
}

type syncPayload struct {
	EventID   string `json:"event_id"`
	TenantID  string `json:"tenant_id"`
	Platform  string `json:"platform"`
	EventType string `json:"event_type"`
	EntityID  string `json:"entity_id"`
	Timestamp string `json:"timestamp"`
}

func (p syncPayload) validate() []FieldError {
	var errs []FieldError

	if p.EventID == "" {
		errs = append(errs, FieldError{Field: "event_id", Message: "required"})
	}

	if p.TenantID == "" {
		errs = append(errs, FieldError{Field: "tenant_id", Message: "required"})
	} else if _, err := uuid.Parse(p.TenantID); err != nil {
		errs = append(errs, FieldError{Field: "tenant_id", Message: "must be a valid UUID"})
	}

	if p.EntityID == "" {
		errs = append(errs, FieldError{Field: "entity_id", Message: "required"})
	} else if _, err := uuid.Parse(p.EntityID); err != nil {
		errs = append(errs, FieldError{Field: "entity_id", Message: "must be a valid UUID"})
	}

	if !domain.Platform(p.Platform).IsValid() {
		errs = append(errs, FieldError{Field: "platform", Message: "must be hubspot, stripe or quickbooks"})
	}

	switch domain.SyncEventType(p.EventType) {
	case domain.SyncEventTypePaymentCompleted, domain.SyncEventTypeInvoiceUpdated:
	default:
		errs = append(errs, FieldError{Field: "event_type", Message: "must be payment.completed or invoice.updated"})
	}

	return errs
}

// ReceiveSyncEvent handles POST /api/v1/webhooks/sync. The body must be
// signed with the shared webhook secret; a replayed event_id is acknowledged
// without being stored twice.
func (h *WebhookHandler) ReceiveSyncEvent(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	sig := r.Header.Get("X-Webhook-Signature")
	if !verifyHMAC(body, sig, h.secret) {
		log.Warn("webhook signature verification failed")
		RespondAppError(w, ErrInvalidSignature, nil)
		return
	}

	var payload syncPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn("failed to parse webhook payload", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := payload.validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	event := &domain.SyncEvent{
		ID:             uuid.New(),
		TenantID:       uuid.MustParse(payload.TenantID),
		IdempotencyKey: payload.EventID,
		Platform:       domain.Platform(payload.Platform),
		EventType:      domain.SyncEventType(payload.EventType),
		EntityID:       uuid.MustParse(payload.EntityID),
		Payload:        body,
		Status:         domain.SyncEventStatusPending,
		CreatedAt:      time.Now().UTC(),
	}

	log = log.With("tenant_id", event.TenantID, "platform", event.Platform, "provider_event_id", payload.EventID)

	if err := h.events.Create(r.Context(), event); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			log.Info("duplicate sync event received", "entity_id", event.EntityID)
			RespondSuccess(w, http.StatusOK, map[string]string{"status": "already_received"})
			return
		}
		log.Error("failed to store sync event", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	log.Info("sync event stored",
		"sync_event_id", event.ID,
		"entity_id", event.EntityID,
		"event_type", event.EventType,
	)

	RespondSuccess(w, http.StatusAccepted, map[string]string{"status": "received"})
}

func verifyHMAC(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
