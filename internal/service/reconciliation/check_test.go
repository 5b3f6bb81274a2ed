package reconciliation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

var tol = domain.DefaultTolerance

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func invoiceWith(status domain.InvoiceStatus, total string) *domain.Invoice {
	return &domain.Invoice{ID: uuid.New(), TotalAmount: d(total), Status: status, Currency: domain.CurrencyUSD}
}

func allocs(amounts ...string) []domain.Allocation {
	out := make([]domain.Allocation, len(amounts))
	for i, a := range amounts {
		out[i] = domain.Allocation{ID: uuid.New(), AllocatedAmount: d(a), Status: domain.AllocationStatusAllocated}
	}
	return out
}

func TestCheckInvoiceConsistency_StaleStatus(t *testing.T) {
	inv := invoiceWith(domain.InvoiceStatusSent, "100.00")

	got := CheckInvoiceConsistency(inv, allocs("60.00", "40.00"), tol)

	require.Len(t, got, 1)
	assert.Equal(t, KindStatusInconsistency, got[0].Kind)
	assert.Equal(t, "SENT", got[0].CurrentStatus)
	assert.Equal(t, domain.InvoiceStatusPaid, got[0].ExpectedStatus)
	assert.True(t, d("100.00").Equal(got[0].Allocated))
	assert.Equal(t, inv.ID, *got[0].InvoiceID)
}

func TestCheckInvoiceConsistency_Overallocation(t *testing.T) {
	inv := invoiceWith(domain.InvoiceStatusPaid, "100.00")

	got := CheckInvoiceConsistency(inv, allocs("60.00", "45.00"), tol)

	require.Len(t, got, 1)
	assert.Equal(t, KindInvoiceOverallocation, got[0].Kind)
	require.NotNil(t, got[0].Excess)
	assert.True(t, d("5.00").Equal(*got[0].Excess))
}

func TestCheckInvoiceConsistency_BothKindsFire(t *testing.T) {
	inv := invoiceWith(domain.InvoiceStatusPartiallyPaid, "100.00")

	got := CheckInvoiceConsistency(inv, allocs("105.00"), tol)

	require.Len(t, got, 2)
	assert.Equal(t, KindStatusInconsistency, got[0].Kind)
	assert.Equal(t, KindInvoiceOverallocation, got[1].Kind)
}

func TestCheckInvoiceConsistency_Consistent(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.InvoiceStatus
		amounts []string
	}{
		{name: "sent with nothing allocated", status: domain.InvoiceStatusSent},
		{name: "overdue with nothing allocated", status: domain.InvoiceStatusOverdue},
		{name: "partially paid", status: domain.InvoiceStatusPartiallyPaid, amounts: []string{"20.00"}},
		{name: "paid within tolerance", status: domain.InvoiceStatusPaid, amounts: []string{"99.99"}},
		{name: "overallocation inside tolerance", status: domain.InvoiceStatusPaid, amounts: []string{"100.01"}},
		{name: "cancelled is not status checked", status: domain.InvoiceStatusCancelled, amounts: []string{"100.00"}},
		{name: "draft is not status checked", status: domain.InvoiceStatusDraft, amounts: []string{"50.00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := invoiceWith(tt.status, "100.00")
			assert.Empty(t, CheckInvoiceConsistency(inv, allocs(tt.amounts...), tol))
		})
	}
}

func TestCheckInvoiceConsistency_CancelledStillChecksOverallocation(t *testing.T) {
	inv := invoiceWith(domain.InvoiceStatusCancelled, "100.00")

	got := CheckInvoiceConsistency(inv, allocs("150.00"), tol)

	require.Len(t, got, 1)
	assert.Equal(t, KindInvoiceOverallocation, got[0].Kind)
}

func TestCheckPaymentAllocation(t *testing.T) {
	p := &domain.Payment{ID: uuid.New(), Amount: d("50.00")}

	assert.Nil(t, CheckPaymentAllocation(p, allocs("30.00", "20.00"), tol))
	assert.Nil(t, CheckPaymentAllocation(p, nil, tol))

	got := CheckPaymentAllocation(p, allocs("30.00", "25.00"), tol)
	require.NotNil(t, got)
	assert.Equal(t, KindPaymentOverallocation, got.Kind)
	assert.True(t, d("5.00").Equal(*got.Excess))
	assert.Equal(t, p.ID, *got.PaymentID)
}

func TestDailyWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 2, 30, 0, 0, time.FixedZone("UTC+5", 5*3600))

	from, to := DailyWindow(now)

	assert.Equal(t, time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), to)
}
