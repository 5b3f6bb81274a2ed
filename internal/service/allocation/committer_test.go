package allocation_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/repository"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/allocation"
	"github.com/josh-kwaku/invoice-reconciler/internal/testutil"
)

func setupCommitter(t *testing.T, db *sql.DB) *allocation.Committer {
	t.Helper()
	return allocation.NewCommitter(
		repository.NewInvoiceRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewAllocationRepository(db),
		repository.NewInvoiceEventRepository(db),
		db,
		domain.DefaultTolerance,
	)
}

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCommit_FullAllocationMarksInvoicePaid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := setupCommitter(t, db)
	ctx := context.Background()
	tenant := uuid.New()

	inv := testutil.SeedInvoice(t, db, tenant, "750.00")
	p := testutil.SeedPayment(t, db, tenant, "750.00")

	a, err := c.Commit(ctx, p.ID, inv.ID, amt("750.00"))

	require.NoError(t, err)
	assert.True(t, amt("750.00").Equal(a.AllocatedAmount))
	assert.Equal(t, domain.AllocationStatusAllocated, a.Status)
	assert.Equal(t, domain.InvoiceStatusPaid, testutil.GetInvoiceStatus(t, db, inv.ID))
	assert.Equal(t, 1, testutil.CountInvoiceEvents(t, db, inv.ID))
}

func TestCommit_IsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := setupCommitter(t, db)
	ctx := context.Background()
	tenant := uuid.New()

	inv := testutil.SeedInvoice(t, db, tenant, "100.00")
	p := testutil.SeedPayment(t, db, tenant, "100.00")

	first, err := c.Commit(ctx, p.ID, inv.ID, amt("40.00"))
	require.NoError(t, err)

	second, err := c.Commit(ctx, p.ID, inv.ID, amt("40.00"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.AllocatedAmount.Equal(second.AllocatedAmount))
	assert.Equal(t, 1, testutil.CountAllocations(t, db, p.ID))
	assert.Equal(t, domain.InvoiceStatusPartiallyPaid, testutil.GetInvoiceStatus(t, db, inv.ID))
}

func TestCommit_Rejections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := setupCommitter(t, db)
	ctx := context.Background()
	tenant := uuid.New()

	usdInvoice := testutil.SeedInvoice(t, db, tenant, "100.00")
	eurPayment := testutil.SeedPayment(t, db, tenant, "100.00", testutil.WithPaymentCurrency(domain.CurrencyEUR))
	smallPayment := testutil.SeedPayment(t, db, tenant, "20.00")
	bigPayment := testutil.SeedPayment(t, db, tenant, "500.00")

	tests := []struct {
		name      string
		paymentID uuid.UUID
		invoiceID uuid.UUID
		amount    string
		wantErr   error
	}{
		{name: "zero amount", paymentID: smallPayment.ID, invoiceID: usdInvoice.ID, amount: "0", wantErr: domain.ErrInvalidAmount},
		{name: "negative amount", paymentID: smallPayment.ID, invoiceID: usdInvoice.ID, amount: "-5.00", wantErr: domain.ErrInvalidAmount},
		{name: "currency mismatch", paymentID: eurPayment.ID, invoiceID: usdInvoice.ID, amount: "10.00", wantErr: domain.ErrCurrencyMismatch},
		{name: "exceeds payment", paymentID: smallPayment.ID, invoiceID: usdInvoice.ID, amount: "25.00", wantErr: domain.ErrOverallocation},
		{name: "exceeds invoice", paymentID: bigPayment.ID, invoiceID: usdInvoice.ID, amount: "100.02", wantErr: domain.ErrOverallocation},
		{name: "unknown invoice", paymentID: smallPayment.ID, invoiceID: uuid.New(), amount: "1.00", wantErr: domain.ErrNotFound},
		{name: "unknown payment", paymentID: uuid.New(), invoiceID: usdInvoice.ID, amount: "1.00", wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Commit(ctx, tt.paymentID, tt.invoiceID, amt(tt.amount))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.True(t, testutil.SumInvoiceAllocations(t, db, usdInvoice.ID).IsZero())
	assert.Equal(t, domain.InvoiceStatusSent, testutil.GetInvoiceStatus(t, db, usdInvoice.ID))
}

func TestCommit_LeavesTerminalStatusesAlone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := setupCommitter(t, db)
	ctx := context.Background()
	tenant := uuid.New()

	for _, status := range []domain.InvoiceStatus{domain.InvoiceStatusCancelled, domain.InvoiceStatusDraft, domain.InvoiceStatusRefunded} {
		t.Run(string(status), func(t *testing.T) {
			inv := testutil.SeedInvoice(t, db, tenant, "100.00", testutil.WithInvoiceStatus(status))
			p := testutil.SeedPayment(t, db, tenant, "100.00")

			_, err := c.Commit(ctx, p.ID, inv.ID, amt("100.00"))
			require.NoError(t, err)

			assert.Equal(t, status, testutil.GetInvoiceStatus(t, db, inv.ID))
			assert.Equal(t, 0, testutil.CountInvoiceEvents(t, db, inv.ID))
		})
	}
}

func TestCommit_ConcurrentPaymentsNeverOverallocateInvoice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := setupCommitter(t, db)
	ctx := context.Background()
	tenant := uuid.New()

	inv := testutil.SeedInvoice(t, db, tenant, "100.00")

	const workers = 8
	payments := make([]*domain.Payment, workers)
	for i := range payments {
		payments[i] = testutil.SeedPayment(t, db, tenant, "30.00")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, rejected int

	for _, p := range payments {
		wg.Add(1)
		go func(paymentID uuid.UUID) {
			defer wg.Done()
			_, err := c.Commit(ctx, paymentID, inv.ID, amt("30.00"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			if assert.ErrorIs(t, err, domain.ErrOverallocation) {
				rejected++
			}
		}(p.ID)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, workers-3, rejected)
	sum := testutil.SumInvoiceAllocations(t, db, inv.ID)
	assert.True(t, sum.LessThanOrEqual(amt("100.01")), "invoice sum %s exceeds total", sum)
	assert.Equal(t, domain.InvoiceStatusPartiallyPaid, testutil.GetInvoiceStatus(t, db, inv.ID))
}

func TestCommit_ConcurrentDuplicatePairCreatesOneRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := setupCommitter(t, db)
	ctx := context.Background()
	tenant := uuid.New()

	inv := testutil.SeedInvoice(t, db, tenant, "100.00")
	p := testutil.SeedPayment(t, db, tenant, "100.00")

	const workers = 6
	ids := make(chan uuid.UUID, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := c.Commit(ctx, p.ID, inv.ID, amt("100.00"))
			if assert.NoError(t, err) {
				ids <- a.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	var first uuid.UUID
	for id := range ids {
		if first == uuid.Nil {
			first = id
		}
		assert.Equal(t, first, id)
	}
	assert.Equal(t, 1, testutil.CountAllocations(t, db, p.ID))
	assert.True(t, amt("100.00").Equal(testutil.SumPaymentAllocations(t, db, p.ID)))
}

func TestApplyDerivedStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := setupCommitter(t, db)
	ctx := context.Background()
	tenant := uuid.New()

	t.Run("fixes stale status", func(t *testing.T) {
		inv := testutil.SeedInvoice(t, db, tenant, "100.00")
		p1 := testutil.SeedPayment(t, db, tenant, "60.00")
		p2 := testutil.SeedPayment(t, db, tenant, "40.00")
		testutil.SeedAllocation(t, db, inv.ID, p1.ID, "60.00")
		testutil.SeedAllocation(t, db, inv.ID, p2.ID, "40.00")

		change, err := c.ApplyDerivedStatus(ctx, inv.ID, allocation.ActorManualReconciliation)

		require.NoError(t, err)
		assert.True(t, change.Changed)
		assert.Equal(t, domain.InvoiceStatusSent, change.From)
		assert.Equal(t, domain.InvoiceStatusPaid, change.To)
		assert.Equal(t, domain.InvoiceStatusPaid, testutil.GetInvoiceStatus(t, db, inv.ID))

		events, err := repository.NewInvoiceEventRepository(db).GetByInvoiceID(ctx, inv.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, allocation.ActorManualReconciliation, events[0].Actor)
	})

	t.Run("consistent invoice is unchanged", func(t *testing.T) {
		inv := testutil.SeedInvoice(t, db, tenant, "100.00", testutil.WithInvoiceStatus(domain.InvoiceStatusOverdue))

		change, err := c.ApplyDerivedStatus(ctx, inv.ID, allocation.ActorManualReconciliation)

		require.NoError(t, err)
		assert.False(t, change.Changed)
		assert.Equal(t, domain.InvoiceStatusOverdue, testutil.GetInvoiceStatus(t, db, inv.ID))
	})

	t.Run("cancelled invoice is skipped", func(t *testing.T) {
		inv := testutil.SeedInvoice(t, db, tenant, "100.00", testutil.WithInvoiceStatus(domain.InvoiceStatusCancelled))
		p := testutil.SeedPayment(t, db, tenant, "100.00")
		testutil.SeedAllocation(t, db, inv.ID, p.ID, "100.00")

		change, err := c.ApplyDerivedStatus(ctx, inv.ID, allocation.ActorManualReconciliation)

		require.NoError(t, err)
		assert.False(t, change.Changed)
		assert.Equal(t, domain.InvoiceStatusCancelled, testutil.GetInvoiceStatus(t, db, inv.ID))
	})

	t.Run("unknown invoice", func(t *testing.T) {
		_, err := c.ApplyDerivedStatus(ctx, uuid.New(), allocation.ActorManualReconciliation)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}
