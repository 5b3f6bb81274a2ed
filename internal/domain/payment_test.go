package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentMetadata(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantEmail string
		wantRef   string
		wantErr   error
	}{
		{
			name:      "canonical keys",
			raw:       `{"counterparty_email":"bob@x.io","invoice_reference":"INV-100"}`,
			wantEmail: "bob@x.io",
			wantRef:   "INV-100",
		},
		{
			name:      "platform aliases",
			raw:       `{"customer_email":" alice@y.io ","invoice_number":"QB-7"}`,
			wantEmail: "alice@y.io",
			wantRef:   "QB-7",
		},
		{
			name:    "numeric reference",
			raw:     `{"invoice_id":1042}`,
			wantRef: "1042",
		},
		{
			name: "blank values are absent",
			raw:  `{"counterparty_email":"  ","invoice_reference":""}`,
		},
		{
			name: "empty",
			raw:  ``,
		},
		{
			name: "null",
			raw:  `null`,
		},
		{
			name:    "not an object",
			raw:     `["bob@x.io"]`,
			wantErr: ErrInvalidRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := ParsePaymentMetadata([]byte(tc.raw))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)

			email, ok := m.CounterpartyEmail()
			assert.Equal(t, tc.wantEmail != "", ok)
			assert.Equal(t, tc.wantEmail, email)

			ref, ok := m.InvoiceReference()
			assert.Equal(t, tc.wantRef != "", ok)
			assert.Equal(t, tc.wantRef, ref)
		})
	}
}

func TestNewPaymentMetadata_RoundTrips(t *testing.T) {
	m := NewPaymentMetadata("bob@x.io", "INV-1")

	parsed, err := ParsePaymentMetadata(m.Raw())
	require.NoError(t, err)

	email, _ := parsed.CounterpartyEmail()
	ref, _ := parsed.InvoiceReference()
	assert.Equal(t, "bob@x.io", email)
	assert.Equal(t, "INV-1", ref)
}

func TestInvoice_MatchesReference(t *testing.T) {
	qb := "QB-55"
	inv := &Invoice{Number: "INV-2024-001", QuickBooksID: &qb}

	assert.True(t, inv.MatchesReference("inv-2024-001"))
	assert.True(t, inv.MatchesReference(" QB-55 "))
	assert.False(t, inv.MatchesReference("INV-2024-002"))
	assert.False(t, inv.MatchesReference(""))
}

func TestInvoiceStatus_Sets(t *testing.T) {
	assert.True(t, InvoiceStatusOverdue.IsOpen())
	assert.False(t, InvoiceStatusPaid.IsOpen())
	assert.True(t, InvoiceStatusPaid.IsAllocationGoverned())
	assert.False(t, InvoiceStatusCancelled.IsAllocationGoverned())
	assert.False(t, InvoiceStatusDraft.IsAllocationGoverned())
}

func TestCurrency_IsValid(t *testing.T) {
	assert.True(t, CurrencyUSD.IsValid())
	assert.True(t, Currency("JPY").IsValid())
	assert.False(t, Currency("usd").IsValid())
	assert.False(t, Currency("US").IsValid())
	assert.False(t, Currency("U5D").IsValid())
}
