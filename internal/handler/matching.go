package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/invoice-reconciler/internal/logging"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/matching"
)

type matchService interface {
	AutoMatch(ctx context.Context, paymentID uuid.UUID) (*matching.MatchOutcome, error)
	ValidateMatch(ctx context.Context, paymentID, invoiceID uuid.UUID) (*matching.ValidationResult, error)
}

type MatchHandler struct {
	matcher  matchService
	payments paymentLookup
}

func NewMatchHandler(matcher matchService, payments paymentLookup) *MatchHandler {
	return &MatchHandler{matcher: matcher, payments: payments}
}

// AutoMatch handles POST /api/v1/payments/{id}/match.
func (h *MatchHandler) AutoMatch(w http.ResponseWriter, r *http.Request) {
	p, err := ownedPayment(r, h.payments)
	if err != nil {
		respondError(w, r, err)
		return
	}

	outcome, err := h.matcher.AutoMatch(r.Context(), p.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("auto match requested",
		"payment_id", p.ID,
		"status", outcome.Status,
		"items", len(outcome.Items),
	)
	RespondSuccess(w, http.StatusOK, outcome)
}

// ValidateMatch handles GET /api/v1/payments/{id}/match/{invoiceId}.
func (h *MatchHandler) ValidateMatch(w http.ResponseWriter, r *http.Request) {
	p, err := ownedPayment(r, h.payments)
	if err != nil {
		respondError(w, r, err)
		return
	}
	invoiceID, appErr := pathUUID(r, "invoiceId")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	res, err := h.matcher.ValidateMatch(r.Context(), p.ID, invoiceID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	RespondSuccess(w, http.StatusOK, res)
}
