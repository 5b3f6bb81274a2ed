package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/logging"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// DomainAppError maps a service error onto its HTTP representation. Unknown
// errors map to ErrInternalError.
func DomainAppError(err error) *AppError {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrResourceNotFound
	case errors.Is(err, domain.ErrInvalidAmount):
		return ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidMode):
		return ErrInvalidMode
	case errors.Is(err, domain.ErrCurrencyMismatch):
		return ErrCurrencyMismatch
	case errors.Is(err, domain.ErrOverallocation):
		return ErrOverallocation
	case errors.Is(err, domain.ErrPaymentNotSettled):
		return ErrPaymentNotSettled
	case errors.Is(err, domain.ErrDuplicateIdempotencyKey):
		return ErrDuplicateEventKey
	case errors.Is(err, domain.ErrInvalidRequest):
		return ErrInvalidRequest
	default:
		return ErrInternalError
	}
}

func RespondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := DomainAppError(err)
	if appErr == ErrInternalError {
		logging.FromContext(r.Context()).Error("unhandled domain error", "error", err)
	}
	RespondAppError(w, appErr, nil)
}
