package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/reconciliation"
)

type reconciliationService interface {
	RunReconciliation(ctx context.Context, mode domain.ReconciliationMode, params reconciliation.Params) (*reconciliation.Report, error)
	GetRun(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) (*domain.ReconciliationRun, error)
}

type ReconciliationHandler struct {
	runs reconciliationService
}

func NewReconciliationHandler(runs reconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{runs: runs}
}

type createRunRequest struct {
	Mode       string   `json:"mode"`
	InvoiceIDs []string `json:"invoice_ids"`
	PaymentIDs []string `json:"payment_ids"`
}

func (r createRunRequest) Validate() ([]uuid.UUID, []uuid.UUID, []FieldError) {
	var errs []FieldError

	mode := domain.ReconciliationMode(r.Mode)
	if r.Mode == "" {
		errs = append(errs, FieldError{Field: "mode", Message: "required"})
	} else if !mode.IsValid() {
		errs = append(errs, FieldError{Field: "mode", Message: "must be DAILY, WEEKLY or MANUAL"})
	}

	invoiceIDs, invErrs := parseIDs("invoice_ids", r.InvoiceIDs)
	paymentIDs, payErrs := parseIDs("payment_ids", r.PaymentIDs)
	errs = append(errs, invErrs...)
	errs = append(errs, payErrs...)

	if mode == domain.ReconciliationModeManual && len(r.InvoiceIDs) == 0 && len(r.PaymentIDs) == 0 {
		errs = append(errs, FieldError{Field: "invoice_ids", Message: "manual runs need at least one invoice or payment id"})
	}
	if mode != domain.ReconciliationModeManual && (len(r.InvoiceIDs) > 0 || len(r.PaymentIDs) > 0) {
		errs = append(errs, FieldError{Field: "mode", Message: "ids are only accepted for MANUAL runs"})
	}

	return invoiceIDs, paymentIDs, errs
}

func parseIDs(field string, raw []string) ([]uuid.UUID, []FieldError) {
	var errs []FieldError
	ids := make([]uuid.UUID, 0, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			errs = append(errs, FieldError{Field: fmt.Sprintf("%s[%d]", field, i), Message: "must be a valid UUID"})
			continue
		}
		ids = append(ids, id)
	}
	return ids, errs
}

type runResponse struct {
	ID          uuid.UUID                 `json:"id"`
	TenantID    *uuid.UUID                `json:"tenant_id,omitempty"`
	Mode        domain.ReconciliationMode `json:"mode"`
	StartedAt   time.Time                 `json:"started_at"`
	CompletedAt time.Time                 `json:"completed_at"`
	Report      json.RawMessage           `json:"report"`
}

// CreateRun handles POST /api/v1/reconciliation/runs. Runs are always scoped
// to the caller's tenant.
func (h *ReconciliationHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	tenantID, appErr := tenantFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createRunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	invoiceIDs, paymentIDs, fields := req.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	report, err := h.runs.RunReconciliation(r.Context(), domain.ReconciliationMode(req.Mode), reconciliation.Params{
		TenantID:   &tenantID,
		InvoiceIDs: invoiceIDs,
		PaymentIDs: paymentIDs,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, report)
}

// GetRun handles GET /api/v1/reconciliation/runs/{id}.
func (h *ReconciliationHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	tenantID, appErr := tenantFromContext(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	runID, appErr := pathUUID(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	run, err := h.runs.GetRun(r.Context(), runID, &tenantID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	RespondSuccess(w, http.StatusOK, runResponse{
		ID:          run.ID,
		TenantID:    run.TenantID,
		Mode:        run.Mode,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Report:      run.Report,
	})
}
