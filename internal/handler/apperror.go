package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken          = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken          = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidSignature      = &AppError{http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature is invalid"}
	ErrInvalidRequest        = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed      = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound      = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError         = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}
	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}

	ErrInvalidAmount     = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidMode       = &AppError{http.StatusBadRequest, "INVALID_MODE", "Mode must be DAILY, WEEKLY or MANUAL"}
	ErrCurrencyMismatch  = &AppError{http.StatusUnprocessableEntity, "CURRENCY_MISMATCH", "Invoice and payment currencies differ"}
	ErrOverallocation    = &AppError{http.StatusUnprocessableEntity, "OVERALLOCATION", "Allocation exceeds the available amount"}
	ErrPaymentNotSettled = &AppError{http.StatusConflict, "PAYMENT_NOT_SETTLED", "Payment is not completed"}
	ErrDuplicateEventKey = &AppError{http.StatusConflict, "DUPLICATE_IDEMPOTENCY_KEY", "Event was already received"}
)
