package scoring

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

// Policy holds the tunable constants of matching and validation.
type Policy struct {
	AmountWeight       float64
	CounterpartyWeight float64
	DateWeight         float64
	ReferenceWeight    float64

	Tolerance     decimal.Decimal
	AmountBandPct decimal.Decimal

	MinScore        float64
	ReviewThreshold float64
	AutoThreshold   float64
	MaxCandidates   int

	DateWindowDays       int
	DateGraceDays        int
	ValidationWindowDays int
}

func DefaultPolicy() Policy {
	return Policy{
		AmountWeight:         0.4,
		CounterpartyWeight:   0.3,
		DateWeight:           0.2,
		ReferenceWeight:      0.1,
		Tolerance:            domain.DefaultTolerance,
		AmountBandPct:        decimal.RequireFromString("0.03"),
		MinScore:             0.5,
		ReviewThreshold:      0.7,
		AutoThreshold:        0.9,
		MaxCandidates:        10,
		DateWindowDays:       30,
		DateGraceDays:        3,
		ValidationWindowDays: 90,
	}
}

func (p Policy) Validate() error {
	for name, w := range map[string]float64{
		"amount":       p.AmountWeight,
		"counterparty": p.CounterpartyWeight,
		"date":         p.DateWeight,
		"reference":    p.ReferenceWeight,
	} {
		if w < 0 {
			return fmt.Errorf("policy: negative %s weight: %w", name, domain.ErrInvalidRequest)
		}
	}
	if !(p.MinScore <= p.ReviewThreshold && p.ReviewThreshold <= p.AutoThreshold) {
		return fmt.Errorf("policy: thresholds must satisfy min <= review <= auto: %w", domain.ErrInvalidRequest)
	}
	if p.DateGraceDays < 0 || p.DateWindowDays <= p.DateGraceDays {
		return fmt.Errorf("policy: date window must exceed grace: %w", domain.ErrInvalidRequest)
	}
	if p.Tolerance.IsNegative() || p.AmountBandPct.IsNegative() {
		return fmt.Errorf("policy: negative tolerance: %w", domain.ErrInvalidRequest)
	}
	if p.MaxCandidates <= 0 {
		return fmt.Errorf("policy: max candidates must be positive: %w", domain.ErrInvalidRequest)
	}
	return nil
}

// AmountBand returns the inclusive invoice total range searched for amount.
func (p Policy) AmountBand(amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	delta := amount.Mul(p.AmountBandPct)
	return amount.Sub(delta), amount.Add(delta)
}
