package domain

import "github.com/shopspring/decimal"

// StatusRollup is an amount total for all entities sharing a status.
type StatusRollup struct {
	Status    string          `json:"status" yaml:"status"`
	Count     int             `json:"count" yaml:"count"`
	Amount    decimal.Decimal `json:"amount" yaml:"amount"`
	Allocated decimal.Decimal `json:"allocated" yaml:"allocated"`
}

// PlatformGaps counts records that were never linked to an external platform.
type PlatformGaps struct {
	InvoicesMissingHubSpot    int `json:"invoices_missing_hubspot" yaml:"invoices_missing_hubspot"`
	InvoicesMissingStripe     int `json:"invoices_missing_stripe" yaml:"invoices_missing_stripe"`
	InvoicesMissingQuickBooks int `json:"invoices_missing_quickbooks" yaml:"invoices_missing_quickbooks"`
	PaymentsMissingStripe     int `json:"payments_missing_stripe" yaml:"payments_missing_stripe"`
	PaymentsMissingQuickBooks int `json:"payments_missing_quickbooks" yaml:"payments_missing_quickbooks"`
}

// WindowCounts are entity counts for a reporting window.
type WindowCounts struct {
	InvoicesCreated     int `json:"invoices_created" yaml:"invoices_created"`
	PaymentsCreated     int `json:"payments_created" yaml:"payments_created"`
	AllocationsCreated  int `json:"allocations_created" yaml:"allocations_created"`
	UnmatchedPayments   int `json:"unmatched_payments" yaml:"unmatched_payments"`
	StaleUnpaidInvoices int `json:"stale_unpaid_invoices" yaml:"stale_unpaid_invoices"`
	FailedSyncEvents    int `json:"failed_sync_events" yaml:"failed_sync_events"`
}
