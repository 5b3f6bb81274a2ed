package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

const weeklyWindow = 7 * 24 * time.Hour

// RunWeekly aggregates the last seven days. It reports totals only.
func (s *Service) RunWeekly(ctx context.Context, params Params) (*WeeklyReport, error) {
	to := params.now()
	from := to.Add(-weeklyWindow)

	counts, err := s.stats.WindowCounts(ctx, from, to, from, params.TenantID)
	if err != nil {
		return nil, fmt.Errorf("RunWeekly: %w", err)
	}
	gaps, err := s.stats.PlatformGaps(ctx, params.TenantID)
	if err != nil {
		return nil, fmt.Errorf("RunWeekly: %w", err)
	}
	invoiceRollup, err := s.stats.InvoiceRollup(ctx, from, to, params.TenantID)
	if err != nil {
		return nil, fmt.Errorf("RunWeekly: %w", err)
	}
	paymentRollup, err := s.stats.PaymentRollup(ctx, from, to, params.TenantID)
	if err != nil {
		return nil, fmt.Errorf("RunWeekly: %w", err)
	}

	if invoiceRollup == nil {
		invoiceRollup = []domain.StatusRollup{}
	}
	if paymentRollup == nil {
		paymentRollup = []domain.StatusRollup{}
	}

	return &WeeklyReport{
		WindowStart:   from,
		WindowEnd:     to,
		Counts:        *counts,
		PlatformGaps:  *gaps,
		InvoiceRollup: invoiceRollup,
		PaymentRollup: paymentRollup,
	}, nil
}
