package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

type Payment struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Amount          decimal.Decimal
	Currency        Currency
	Status          PaymentStatus
	TransactionDate time.Time
	Metadata        PaymentMetadata
	StripePaymentID *string
	QuickBooksID    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

var (
	counterpartyEmailKeys = []string{"counterparty_email", "counterpartyEmail", "customer_email", "email"}
	invoiceReferenceKeys  = []string{"invoice_reference", "invoiceReference", "invoice_id", "invoice_number"}
)

// PaymentMetadata is the free-form metadata attached to a payment by the
// platform that reported it. Only the fields the matcher relies on are exposed.
type PaymentMetadata struct {
	counterpartyEmail string
	invoiceReference  string
	raw               json.RawMessage
}

func NewPaymentMetadata(counterpartyEmail, invoiceReference string) PaymentMetadata {
	m := PaymentMetadata{
		counterpartyEmail: strings.TrimSpace(counterpartyEmail),
		invoiceReference:  strings.TrimSpace(invoiceReference),
	}
	fields := map[string]string{}
	if m.counterpartyEmail != "" {
		fields["counterparty_email"] = m.counterpartyEmail
	}
	if m.invoiceReference != "" {
		fields["invoice_reference"] = m.invoiceReference
	}
	m.raw, _ = json.Marshal(fields)
	return m
}

// ParsePaymentMetadata decodes stored metadata. Empty input yields empty metadata;
// anything other than a JSON object is rejected.
func ParsePaymentMetadata(raw []byte) (PaymentMetadata, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return PaymentMetadata{}, nil
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return PaymentMetadata{}, fmt.Errorf("ParsePaymentMetadata: %w: %v", ErrInvalidRequest, err)
	}

	return PaymentMetadata{
		counterpartyEmail: firstString(fields, counterpartyEmailKeys),
		invoiceReference:  firstString(fields, invoiceReferenceKeys),
		raw:               append(json.RawMessage(nil), raw...),
	}, nil
}

func firstString(fields map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func (m PaymentMetadata) CounterpartyEmail() (string, bool) {
	return m.counterpartyEmail, m.counterpartyEmail != ""
}

func (m PaymentMetadata) InvoiceReference() (string, bool) {
	return m.invoiceReference, m.invoiceReference != ""
}

// Raw returns the metadata as stored, or nil when there is none.
func (m PaymentMetadata) Raw() json.RawMessage {
	if len(m.raw) == 0 {
		return nil
	}
	return m.raw
}
