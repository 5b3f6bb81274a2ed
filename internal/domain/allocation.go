package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AllocationStatus string

const (
	AllocationStatusAllocated AllocationStatus = "ALLOCATED"
	AllocationStatusReversed  AllocationStatus = "REVERSED"
)

type Allocation struct {
	ID              uuid.UUID
	InvoiceID       uuid.UUID
	PaymentID       uuid.UUID
	AllocatedAmount decimal.Decimal
	Status          AllocationStatus
	CreatedAt       time.Time
}
