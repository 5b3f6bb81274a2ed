package matching

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/logging"
	"github.com/josh-kwaku/invoice-reconciler/internal/scoring"
)

type OutcomeStatus string

const (
	OutcomeNoMatches        OutcomeStatus = "NO_MATCHES"
	OutcomeProcessed        OutcomeStatus = "PROCESSED"
	OutcomeAlreadyAllocated OutcomeStatus = "ALREADY_ALLOCATED"
)

type ItemKind string

const (
	ItemAutoAllocated ItemKind = "AUTO_ALLOCATED"
	ItemNeedsReview   ItemKind = "NEEDS_REVIEW"
)

type MatchItem struct {
	InvoiceID     uuid.UUID          `json:"invoice_id" yaml:"invoice_id"`
	InvoiceNumber string             `json:"invoice_number" yaml:"invoice_number"`
	Kind          ItemKind           `json:"kind" yaml:"kind"`
	Amount        decimal.Decimal    `json:"amount" yaml:"amount"`
	Score         scoring.Score      `json:"score" yaml:"score"`
	Allocation    *domain.Allocation `json:"allocation,omitempty" yaml:"allocation,omitempty"`
}

type MatchOutcome struct {
	PaymentID uuid.UUID       `json:"payment_id" yaml:"payment_id"`
	Status    OutcomeStatus   `json:"status" yaml:"status"`
	Remaining decimal.Decimal `json:"remaining" yaml:"remaining"`
	Items     []MatchItem     `json:"items" yaml:"items"`
}

type paymentRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
}

type invoiceRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	FindCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.InvoiceBalance, error)
}

type allocationRepo interface {
	GetByPair(ctx context.Context, invoiceID, paymentID uuid.UUID) (*domain.Allocation, error)
	TotalByPayment(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error)
	TotalByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
}

type committer interface {
	Commit(ctx context.Context, paymentID, invoiceID uuid.UUID, amount decimal.Decimal) (*domain.Allocation, error)
}

type scorer interface {
	Score(p *domain.Payment, inv *domain.Invoice, requested decimal.Decimal) scoring.Score
}

type Engine struct {
	payments    paymentRepo
	invoices    invoiceRepo
	allocations allocationRepo
	committer   committer
	scorer      scorer
	policy      scoring.Policy
}

func NewEngine(
	payments paymentRepo,
	invoices invoiceRepo,
	allocations allocationRepo,
	committer committer,
	scorer scorer,
	policy scoring.Policy,
) *Engine {
	return &Engine{
		payments:    payments,
		invoices:    invoices,
		allocations: allocations,
		committer:   committer,
		scorer:      scorer,
		policy:      policy,
	}
}

// AutoMatch allocates whatever is left of a completed payment to its best
// scoring open invoices. Confident matches are committed in rank order;
// plausible ones are returned for review without being committed.
//
// Allocations committed before an error stay committed. Running AutoMatch
// again for the same payment picks up from the recomputed remainder.
func (e *Engine) AutoMatch(ctx context.Context, paymentID uuid.UUID) (*MatchOutcome, error) {
	log := logging.FromContext(ctx).With("payment_id", paymentID)

	p, err := e.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("AutoMatch: %w", err)
	}
	if p.Status != domain.PaymentStatusCompleted {
		return nil, fmt.Errorf("AutoMatch: payment is %s: %w", p.Status, domain.ErrPaymentNotSettled)
	}

	allocated, err := e.allocations.TotalByPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("AutoMatch: %w", err)
	}

	remaining := p.Amount.Sub(allocated)
	outcome := &MatchOutcome{PaymentID: paymentID, Remaining: remaining, Items: []MatchItem{}}
	if remaining.LessThanOrEqual(e.policy.Tolerance) {
		outcome.Status = OutcomeAlreadyAllocated
		return outcome, nil
	}

	ranked, err := e.findCandidates(ctx, p, remaining)
	if err != nil {
		return nil, fmt.Errorf("AutoMatch: %w", err)
	}
	if len(ranked) == 0 {
		outcome.Status = OutcomeNoMatches
		log.Info("no match candidates", "remaining", remaining.StringFixed(2))
		return outcome, nil
	}

	outcome.Status = OutcomeProcessed
	allocatedInRun := decimal.Zero

	for _, c := range ranked {
		left := remaining.Sub(allocatedInRun)
		if left.LessThanOrEqual(e.policy.Tolerance) {
			break
		}

		outstanding := c.Balance.Outstanding()
		if outstanding.LessThanOrEqual(e.policy.Tolerance) {
			continue
		}
		amount := decimal.Min(outstanding, left)
		inv := c.Balance.Invoice

		switch {
		case c.Score.Total >= e.policy.AutoThreshold:
			a, err := e.committer.Commit(ctx, paymentID, inv.ID, amount)
			if err != nil {
				log.Error("auto allocation failed",
					"invoice_id", inv.ID,
					"amount", amount.StringFixed(2),
					"committed_items", len(outcome.Items),
					"error", err,
				)
				return nil, fmt.Errorf("AutoMatch: invoice %s: %w", inv.ID, err)
			}
			allocatedInRun = allocatedInRun.Add(a.AllocatedAmount)
			outcome.Items = append(outcome.Items, MatchItem{
				InvoiceID:     inv.ID,
				InvoiceNumber: inv.Number,
				Kind:          ItemAutoAllocated,
				Amount:        a.AllocatedAmount,
				Score:         c.Score,
				Allocation:    a,
			})
		case c.Score.Total >= e.policy.ReviewThreshold:
			outcome.Items = append(outcome.Items, MatchItem{
				InvoiceID:     inv.ID,
				InvoiceNumber: inv.Number,
				Kind:          ItemNeedsReview,
				Amount:        amount,
				Score:         c.Score,
			})
		}
	}

	outcome.Remaining = remaining.Sub(allocatedInRun)

	log.Info("payment matched",
		"candidates", len(ranked),
		"items", len(outcome.Items),
		"allocated", allocatedInRun.StringFixed(2),
		"remaining", outcome.Remaining.StringFixed(2),
	)
	return outcome, nil
}
