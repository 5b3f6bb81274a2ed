package domain

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrCurrencyMismatch        = errors.New("currency mismatch")
	ErrOverallocation          = errors.New("allocation exceeds available amount")
	ErrPaymentNotSettled       = errors.New("payment is not completed")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrInvalidMode             = errors.New("invalid reconciliation mode")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)
