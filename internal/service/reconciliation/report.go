package reconciliation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

type DiscrepancyKind string

const (
	KindStatusInconsistency   DiscrepancyKind = "STATUS_INCONSISTENCY"
	KindInvoiceOverallocation DiscrepancyKind = "INVOICE_OVERALLOCATION"
	KindPaymentOverallocation DiscrepancyKind = "PAYMENT_OVERALLOCATION"
	KindOverdue               DiscrepancyKind = "OVERDUE"
	KindOrphanedPayment       DiscrepancyKind = "ORPHANED_PAYMENT"
)

// Discrepancy is a finding for a human to look at. Only the fields relevant
// to its kind are set.
type Discrepancy struct {
	Kind           DiscrepancyKind      `json:"kind" yaml:"kind"`
	InvoiceID      *uuid.UUID           `json:"invoice_id,omitempty" yaml:"invoice_id,omitempty"`
	PaymentID      *uuid.UUID           `json:"payment_id,omitempty" yaml:"payment_id,omitempty"`
	CurrentStatus  string               `json:"current_status,omitempty" yaml:"current_status,omitempty"`
	ExpectedStatus domain.InvoiceStatus `json:"expected_status,omitempty" yaml:"expected_status,omitempty"`
	Amount         decimal.Decimal      `json:"amount" yaml:"amount"`
	Allocated      decimal.Decimal      `json:"allocated" yaml:"allocated"`
	Excess         *decimal.Decimal     `json:"excess,omitempty" yaml:"excess,omitempty"`
	DueDate        *time.Time           `json:"due_date,omitempty" yaml:"due_date,omitempty"`
}

type DailySummary struct {
	InvoicesScanned  int `json:"invoices_scanned" yaml:"invoices_scanned"`
	PaymentsScanned  int `json:"payments_scanned" yaml:"payments_scanned"`
	Discrepancies    int `json:"discrepancies" yaml:"discrepancies"`
	Overdue          int `json:"overdue" yaml:"overdue"`
	OrphanedPayments int `json:"orphaned_payments" yaml:"orphaned_payments"`
}

type DailyReport struct {
	WindowStart      time.Time     `json:"window_start" yaml:"window_start"`
	WindowEnd        time.Time     `json:"window_end" yaml:"window_end"`
	Summary          DailySummary  `json:"summary" yaml:"summary"`
	Discrepancies    []Discrepancy `json:"discrepancies" yaml:"discrepancies"`
	Overdue          []Discrepancy `json:"overdue" yaml:"overdue"`
	OrphanedPayments []Discrepancy `json:"orphaned_payments" yaml:"orphaned_payments"`
}

type WeeklyReport struct {
	WindowStart   time.Time             `json:"window_start" yaml:"window_start"`
	WindowEnd     time.Time             `json:"window_end" yaml:"window_end"`
	Counts        domain.WindowCounts   `json:"counts" yaml:"counts"`
	PlatformGaps  domain.PlatformGaps   `json:"platform_gaps" yaml:"platform_gaps"`
	InvoiceRollup []domain.StatusRollup `json:"invoice_rollup" yaml:"invoice_rollup"`
	PaymentRollup []domain.StatusRollup `json:"payment_rollup" yaml:"payment_rollup"`
}

type Fix struct {
	InvoiceID uuid.UUID            `json:"invoice_id" yaml:"invoice_id"`
	From      domain.InvoiceStatus `json:"from" yaml:"from"`
	To        domain.InvoiceStatus `json:"to" yaml:"to"`
}

type ItemError struct {
	Entity string    `json:"entity" yaml:"entity"`
	ID     uuid.UUID `json:"id" yaml:"id"`
	Error  string    `json:"error" yaml:"error"`
}

// ManualReport separates applied fixes from findings that remain open.
type ManualReport struct {
	InvoicesChecked int           `json:"invoices_checked" yaml:"invoices_checked"`
	PaymentsChecked int           `json:"payments_checked" yaml:"payments_checked"`
	Fixes           []Fix         `json:"fixes" yaml:"fixes"`
	Discrepancies   []Discrepancy `json:"discrepancies" yaml:"discrepancies"`
	Errors          []ItemError   `json:"errors" yaml:"errors"`
}

type Report struct {
	RunID       uuid.UUID                 `json:"run_id" yaml:"run_id"`
	Mode        domain.ReconciliationMode `json:"mode" yaml:"mode"`
	TenantID    *uuid.UUID                `json:"tenant_id,omitempty" yaml:"tenant_id,omitempty"`
	StartedAt   time.Time                 `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time                 `json:"completed_at" yaml:"completed_at"`
	Daily       *DailyReport              `json:"daily,omitempty" yaml:"daily,omitempty"`
	Weekly      *WeeklyReport             `json:"weekly,omitempty" yaml:"weekly,omitempty"`
	Manual      *ManualReport             `json:"manual,omitempty" yaml:"manual,omitempty"`
}

// Params scopes a run. Now defaults to the current time.
type Params struct {
	TenantID   *uuid.UUID
	Now        time.Time
	InvoiceIDs []uuid.UUID
	PaymentIDs []uuid.UUID
}

func (p Params) now() time.Time {
	if p.Now.IsZero() {
		return time.Now().UTC()
	}
	return p.Now.UTC()
}
