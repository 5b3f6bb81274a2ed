package matching_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/repository"
	"github.com/josh-kwaku/invoice-reconciler/internal/scoring"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/allocation"
	"github.com/josh-kwaku/invoice-reconciler/internal/service/matching"
	"github.com/josh-kwaku/invoice-reconciler/internal/testutil"
)

func setupEngine(t *testing.T, db *sql.DB) *matching.Engine {
	t.Helper()
	policy := scoring.DefaultPolicy()
	invoices := repository.NewInvoiceRepository(db)
	payments := repository.NewPaymentRepository(db)
	allocations := repository.NewAllocationRepository(db)
	committer := allocation.NewCommitter(invoices, payments, allocations, repository.NewInvoiceEventRepository(db), db, policy.Tolerance)
	return matching.NewEngine(payments, invoices, allocations, committer, scoring.NewScorer(policy), policy)
}

func TestAutoMatch_CommitsAndMarksInvoicePaid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := setupEngine(t, db)
	ctx := context.Background()
	tenant := uuid.New()
	txDate := time.Now().UTC().AddDate(0, 0, -1)

	p := testutil.SeedPayment(t, db, tenant, "750.00",
		testutil.WithMetadata("bob@x.io", ""),
		testutil.WithTransactionDate(txDate),
	)
	inv := testutil.SeedInvoice(t, db, tenant, "750.00",
		testutil.WithClientEmail("bob@x.io"),
		testutil.WithIssueDate(txDate.AddDate(0, 0, -3)),
	)
	otherTenant := testutil.SeedInvoice(t, db, uuid.New(), "750.00",
		testutil.WithClientEmail("bob@x.io"),
		testutil.WithIssueDate(txDate),
	)

	out, err := engine.AutoMatch(ctx, p.ID)

	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeProcessed, out.Status)
	require.Len(t, out.Items, 1)
	assert.Equal(t, inv.ID, out.Items[0].InvoiceID)
	assert.Equal(t, matching.ItemAutoAllocated, out.Items[0].Kind)
	assert.True(t, decimal.RequireFromString("750.00").Equal(testutil.SumPaymentAllocations(t, db, p.ID)))
	assert.Equal(t, domain.InvoiceStatusPaid, testutil.GetInvoiceStatus(t, db, inv.ID))
	assert.Equal(t, domain.InvoiceStatusSent, testutil.GetInvoiceStatus(t, db, otherTenant.ID))

	again, err := engine.AutoMatch(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeAlreadyAllocated, again.Status)
	assert.Equal(t, 1, testutil.CountAllocations(t, db, p.ID))
}

func TestAutoMatch_IgnoresOtherCurrenciesAndClosedInvoices(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := setupEngine(t, db)
	ctx := context.Background()
	tenant := uuid.New()
	now := time.Now().UTC()

	p := testutil.SeedPayment(t, db, tenant, "120.00",
		testutil.WithMetadata("carol@x.io", ""),
		testutil.WithTransactionDate(now),
	)
	testutil.SeedInvoice(t, db, tenant, "120.00",
		testutil.WithClientEmail("carol@x.io"),
		testutil.WithIssueDate(now),
		testutil.WithInvoiceCurrency(domain.CurrencyEUR),
	)
	testutil.SeedInvoice(t, db, tenant, "120.00",
		testutil.WithClientEmail("carol@x.io"),
		testutil.WithIssueDate(now),
		testutil.WithInvoiceStatus(domain.InvoiceStatusCancelled),
	)

	out, err := engine.AutoMatch(ctx, p.ID)

	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeNoMatches, out.Status)
	assert.Equal(t, 0, testutil.CountAllocations(t, db, p.ID))
}

func TestValidateMatch_AgainstDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := setupEngine(t, db)
	ctx := context.Background()
	tenant := uuid.New()
	now := time.Now().UTC()

	p := testutil.SeedPayment(t, db, tenant, "80.00", testutil.WithMetadata("dan@x.io", ""), testutil.WithTransactionDate(now))
	inv := testutil.SeedInvoice(t, db, tenant, "100.00", testutil.WithClientEmail("dan@x.io"), testutil.WithIssueDate(now.AddDate(0, 0, -45)))
	other := testutil.SeedPayment(t, db, tenant, "30.00")
	testutil.SeedAllocation(t, db, inv.ID, other.ID, "30.00")

	res, err := engine.ValidateMatch(ctx, p.ID, inv.ID)

	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, decimal.RequireFromString("70.00").Equal(res.InvoiceOutstanding))
	assert.True(t, decimal.RequireFromString("80.00").Equal(res.PaymentAvailable))
	assert.True(t, decimal.RequireFromString("70.00").Equal(res.SuggestedAmount))
}
