package matching

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
	"github.com/josh-kwaku/invoice-reconciler/internal/scoring"
)

// findCandidates returns open invoices of the payment's tenant and currency
// whose total is within the amount band of remaining, scored above the
// minimum, best first and capped at the policy limit.
func (e *Engine) findCandidates(ctx context.Context, p *domain.Payment, remaining decimal.Decimal) ([]scoring.Ranked, error) {
	lo, hi := e.policy.AmountBand(remaining)

	balances, err := e.invoices.FindCandidates(ctx, domain.CandidateFilter{
		TenantID:  p.TenantID,
		Currency:  p.Currency,
		Statuses:  domain.OpenInvoiceStatuses,
		MinAmount: lo,
		MaxAmount: hi,
	})
	if err != nil {
		return nil, fmt.Errorf("findCandidates: %w", err)
	}

	ranked := make([]scoring.Ranked, 0, len(balances))
	for _, b := range balances {
		sc := e.scorer.Score(p, &b.Invoice, remaining)
		if sc.Total <= e.policy.MinScore {
			continue
		}
		ranked = append(ranked, scoring.Ranked{Balance: b, Score: sc})
	}

	scoring.Rank(ranked)
	if len(ranked) > e.policy.MaxCandidates {
		ranked = ranked[:e.policy.MaxCandidates]
	}
	return ranked, nil
}
