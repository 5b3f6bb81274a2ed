package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/scoring"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

var txDate = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

type fakePayments struct {
	byID map[uuid.UUID]*domain.Payment
}

func (f *fakePayments) GetByID(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

type fakeInvoices struct {
	byID       map[uuid.UUID]*domain.Invoice
	candidates []domain.InvoiceBalance
	lastFilter domain.CandidateFilter
}

func (f *fakeInvoices) GetByID(_ context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

func (f *fakeInvoices) FindCandidates(_ context.Context, filter domain.CandidateFilter) ([]domain.InvoiceBalance, error) {
	f.lastFilter = filter
	return f.candidates, nil
}

type pairKey struct{ invoice, payment uuid.UUID }

type fakeAllocations struct {
	byPayment map[uuid.UUID]decimal.Decimal
	byInvoice map[uuid.UUID]decimal.Decimal
	pairs     map[pairKey]*domain.Allocation
}

func newFakeAllocations() *fakeAllocations {
	return &fakeAllocations{
		byPayment: map[uuid.UUID]decimal.Decimal{},
		byInvoice: map[uuid.UUID]decimal.Decimal{},
		pairs:     map[pairKey]*domain.Allocation{},
	}
}

func (f *fakeAllocations) GetByPair(_ context.Context, invoiceID, paymentID uuid.UUID) (*domain.Allocation, error) {
	a, ok := f.pairs[pairKey{invoiceID, paymentID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeAllocations) TotalByPayment(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	return f.byPayment[id], nil
}

func (f *fakeAllocations) TotalByInvoice(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	return f.byInvoice[id], nil
}

type commitCall struct {
	invoiceID uuid.UUID
	amount    decimal.Decimal
}

type fakeCommitter struct {
	calls  []commitCall
	failOn uuid.UUID
}

func (f *fakeCommitter) Commit(_ context.Context, paymentID, invoiceID uuid.UUID, amount decimal.Decimal) (*domain.Allocation, error) {
	if invoiceID == f.failOn {
		return nil, errors.New("connection reset")
	}
	f.calls = append(f.calls, commitCall{invoiceID: invoiceID, amount: amount})
	return &domain.Allocation{
		ID:              uuid.New(),
		InvoiceID:       invoiceID,
		PaymentID:       paymentID,
		AllocatedAmount: amount,
		Status:          domain.AllocationStatusAllocated,
	}, nil
}

// stubScorer returns a fixed total per invoice id.
type stubScorer map[uuid.UUID]float64

func (s stubScorer) Score(_ *domain.Payment, inv *domain.Invoice, _ decimal.Decimal) scoring.Score {
	return scoring.Score{Total: s[inv.ID]}
}

type fixture struct {
	payments    *fakePayments
	invoices    *fakeInvoices
	allocations *fakeAllocations
	committer   *fakeCommitter
}

func newFixture(p *domain.Payment) *fixture {
	return &fixture{
		payments:    &fakePayments{byID: map[uuid.UUID]*domain.Payment{p.ID: p}},
		invoices:    &fakeInvoices{byID: map[uuid.UUID]*domain.Invoice{}},
		allocations: newFakeAllocations(),
		committer:   &fakeCommitter{},
	}
}

func (f *fixture) engine(s scorer) *Engine {
	return NewEngine(f.payments, f.invoices, f.allocations, f.committer, s, scoring.DefaultPolicy())
}

func (f *fixture) addCandidate(inv *domain.Invoice, allocated string) {
	f.invoices.byID[inv.ID] = inv
	f.invoices.candidates = append(f.invoices.candidates, domain.InvoiceBalance{Invoice: *inv, Allocated: amt(allocated)})
}

func completedPayment(amount, email string) *domain.Payment {
	return &domain.Payment{
		ID:              uuid.New(),
		TenantID:        uuid.New(),
		Amount:          amt(amount),
		Currency:        domain.CurrencyUSD,
		Status:          domain.PaymentStatusCompleted,
		TransactionDate: txDate,
		Metadata:        domain.NewPaymentMetadata(email, ""),
	}
}

func openInvoice(tenantID uuid.UUID, total, email string, issue time.Time) *domain.Invoice {
	inv := &domain.Invoice{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Number:      "INV-" + uuid.NewString()[:6],
		TotalAmount: amt(total),
		Currency:    domain.CurrencyUSD,
		Status:      domain.InvoiceStatusSent,
		IssueDate:   timePtr(issue),
	}
	if email != "" {
		inv.ClientEmail = strPtr(email)
	}
	return inv
}

func TestAutoMatch_ConfidentMatchIsCommitted(t *testing.T) {
	p := completedPayment("750.00", "bob@x.io")
	f := newFixture(p)
	inv := openInvoice(p.TenantID, "750.00", "bob@x.io", txDate.AddDate(0, 0, -3))
	f.addCandidate(inv, "0")

	out, err := f.engine(scoring.NewScorer(scoring.DefaultPolicy())).AutoMatch(context.Background(), p.ID)

	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out.Status)
	require.Len(t, out.Items, 1)
	assert.Equal(t, ItemAutoAllocated, out.Items[0].Kind)
	assert.GreaterOrEqual(t, out.Items[0].Score.Total, 0.9)
	require.NotNil(t, out.Items[0].Allocation)
	require.Len(t, f.committer.calls, 1)
	assert.Equal(t, inv.ID, f.committer.calls[0].invoiceID)
	assert.True(t, amt("750.00").Equal(f.committer.calls[0].amount))
	assert.True(t, out.Remaining.IsZero())

	assert.Equal(t, p.TenantID, f.invoices.lastFilter.TenantID)
	assert.Equal(t, domain.CurrencyUSD, f.invoices.lastFilter.Currency)
	assert.True(t, amt("727.5").Equal(f.invoices.lastFilter.MinAmount))
	assert.True(t, amt("772.5").Equal(f.invoices.lastFilter.MaxAmount))
}

func TestAutoMatch_PlausibleMatchNeedsReview(t *testing.T) {
	p := completedPayment("1000.00", "")
	f := newFixture(p)
	review := openInvoice(p.TenantID, "1000.00", "", txDate)
	weak := openInvoice(p.TenantID, "990.00", "", txDate)
	f.addCandidate(weak, "0")
	f.addCandidate(review, "0")

	out, err := f.engine(stubScorer{review.ID: 0.75, weak.ID: 0.6}).AutoMatch(context.Background(), p.ID)

	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out.Status)
	require.Len(t, out.Items, 1)
	assert.Equal(t, ItemNeedsReview, out.Items[0].Kind)
	assert.Equal(t, review.ID, out.Items[0].InvoiceID)
	assert.Equal(t, 0.75, out.Items[0].Score.Total)
	assert.True(t, amt("1000.00").Equal(out.Items[0].Amount))
	assert.Nil(t, out.Items[0].Allocation)
	assert.Empty(t, f.committer.calls)
	assert.True(t, amt("1000.00").Equal(out.Remaining))
}

func TestAutoMatch_AlreadyAllocated(t *testing.T) {
	p := completedPayment("200.00", "")
	f := newFixture(p)
	f.allocations.byPayment[p.ID] = amt("199.99")

	out, err := f.engine(stubScorer{}).AutoMatch(context.Background(), p.ID)

	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyAllocated, out.Status)
	assert.Empty(t, out.Items)
}

func TestAutoMatch_NoCandidatesAboveMinimum(t *testing.T) {
	p := completedPayment("200.00", "")
	f := newFixture(p)
	inv := openInvoice(p.TenantID, "200.00", "", txDate)
	f.addCandidate(inv, "0")

	out, err := f.engine(stubScorer{inv.ID: 0.5}).AutoMatch(context.Background(), p.ID)

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoMatches, out.Status)
	assert.Empty(t, out.Items)
}

func TestAutoMatch_SplitsAcrossOutstandingBalances(t *testing.T) {
	p := completedPayment("300.00", "")
	f := newFixture(p)
	first := openInvoice(p.TenantID, "300.00", "", txDate)
	second := openInvoice(p.TenantID, "300.00", "", txDate)
	settled := openInvoice(p.TenantID, "300.00", "", txDate)
	f.addCandidate(settled, "300.00")
	f.addCandidate(first, "200.00")
	f.addCandidate(second, "0")

	s := stubScorer{settled.ID: 0.99, first.ID: 0.95, second.ID: 0.92}
	out, err := f.engine(s).AutoMatch(context.Background(), p.ID)

	require.NoError(t, err)
	require.Len(t, f.committer.calls, 2)
	assert.Equal(t, first.ID, f.committer.calls[0].invoiceID)
	assert.True(t, amt("100.00").Equal(f.committer.calls[0].amount))
	assert.Equal(t, second.ID, f.committer.calls[1].invoiceID)
	assert.True(t, amt("200.00").Equal(f.committer.calls[1].amount))
	assert.True(t, out.Remaining.IsZero())
}

func TestAutoMatch_StopsOnceRemainderIsUsed(t *testing.T) {
	p := completedPayment("100.00", "")
	f := newFixture(p)
	a := openInvoice(p.TenantID, "100.00", "", txDate)
	b := openInvoice(p.TenantID, "100.00", "", txDate)
	f.addCandidate(a, "0")
	f.addCandidate(b, "0")

	out, err := f.engine(stubScorer{a.ID: 0.95, b.ID: 0.8}).AutoMatch(context.Background(), p.ID)

	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, ItemAutoAllocated, out.Items[0].Kind)
	assert.Equal(t, a.ID, out.Items[0].InvoiceID)
}

func TestAutoMatch_CommitFailureAborts(t *testing.T) {
	p := completedPayment("300.00", "")
	f := newFixture(p)
	ok := openInvoice(p.TenantID, "300.00", "", txDate)
	broken := openInvoice(p.TenantID, "300.00", "", txDate)
	f.addCandidate(ok, "200.00")
	f.addCandidate(broken, "0")
	f.committer.failOn = broken.ID

	_, err := f.engine(stubScorer{ok.ID: 0.99, broken.ID: 0.95}).AutoMatch(context.Background(), p.ID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.Len(t, f.committer.calls, 1)
	assert.Equal(t, ok.ID, f.committer.calls[0].invoiceID)
}

func TestAutoMatch_CapsCandidates(t *testing.T) {
	p := completedPayment("100.00", "")
	f := newFixture(p)
	s := stubScorer{}
	for range 15 {
		inv := openInvoice(p.TenantID, "100.00", "", txDate)
		f.addCandidate(inv, "0")
		s[inv.ID] = 0.8
	}

	out, err := f.engine(s).AutoMatch(context.Background(), p.ID)

	require.NoError(t, err)
	assert.Len(t, out.Items, scoring.DefaultPolicy().MaxCandidates)
}

func TestAutoMatch_Errors(t *testing.T) {
	pending := completedPayment("10.00", "")
	pending.Status = domain.PaymentStatusPending
	f := newFixture(pending)
	e := f.engine(stubScorer{})

	_, err := e.AutoMatch(context.Background(), pending.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentNotSettled)

	_, err = e.AutoMatch(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValidateMatch(t *testing.T) {
	p := completedPayment("500.00", "ada@example.com")

	tests := []struct {
		name       string
		invoice    func() *domain.Invoice
		setup      func(f *fixture, inv *domain.Invoice)
		wantValid  bool
		wantFailed []string
		suggested  string
	}{
		{
			name: "all checks pass",
			invoice: func() *domain.Invoice {
				return openInvoice(p.TenantID, "400.00", "ADA@example.com", txDate.AddDate(0, 0, -60))
			},
			wantValid: true,
			suggested: "400.00",
		},
		{
			name: "issue date outside validation window",
			invoice: func() *domain.Invoice {
				return openInvoice(p.TenantID, "400.00", "ada@example.com", txDate.AddDate(0, 0, -91))
			},
			wantFailed: []string{CheckDateWindow},
			suggested:  "400.00",
		},
		{
			name: "different counterparty",
			invoice: func() *domain.Invoice {
				return openInvoice(p.TenantID, "400.00", "eve@example.com", txDate)
			},
			wantFailed: []string{CheckCounterparty},
			suggested:  "400.00",
		},
		{
			name: "existing allocation and fully paid invoice",
			invoice: func() *domain.Invoice {
				return openInvoice(p.TenantID, "400.00", "ada@example.com", txDate)
			},
			setup: func(f *fixture, inv *domain.Invoice) {
				f.allocations.pairs[pairKey{inv.ID, p.ID}] = &domain.Allocation{ID: uuid.New()}
				f.allocations.byInvoice[inv.ID] = amt("400.00")
				f.allocations.byPayment[p.ID] = amt("400.00")
			},
			wantFailed: []string{CheckAmountAvailable, CheckNoDuplicate},
			suggested:  "0",
		},
		{
			name: "currency mismatch",
			invoice: func() *domain.Invoice {
				inv := openInvoice(p.TenantID, "400.00", "ada@example.com", txDate)
				inv.Currency = domain.CurrencyEUR
				return inv
			},
			wantFailed: []string{CheckAmountAvailable},
			suggested:  "400.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(p)
			inv := tt.invoice()
			f.invoices.byID[inv.ID] = inv
			if tt.setup != nil {
				tt.setup(f, inv)
			}

			res, err := f.engine(stubScorer{}).ValidateMatch(context.Background(), p.ID, inv.ID)

			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid)
			require.Len(t, res.Checks, 4)
			var failed []string
			for _, c := range res.Checks {
				if !c.Passed {
					failed = append(failed, c.Name)
				}
			}
			assert.ElementsMatch(t, tt.wantFailed, failed)
			assert.True(t, amt(tt.suggested).Equal(res.SuggestedAmount), "suggested %s", res.SuggestedAmount)
		})
	}
}

func TestValidateMatch_OtherTenantInvoiceIsNotFound(t *testing.T) {
	p := completedPayment("500.00", "")
	f := newFixture(p)
	inv := openInvoice(uuid.New(), "500.00", "", txDate)
	f.invoices.byID[inv.ID] = inv

	_, err := f.engine(stubScorer{}).ValidateMatch(context.Background(), p.ID, inv.ID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
