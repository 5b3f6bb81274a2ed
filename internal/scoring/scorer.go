package scoring

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

type Score struct {
	Total        float64 `json:"total"`
	Amount       float64 `json:"amount"`
	Counterparty float64 `json:"counterparty"`
	Date         float64 `json:"date"`
	Reference    float64 `json:"reference"`
}

// Scorer computes confidence scores. It holds no mutable state.
type Scorer struct {
	policy Policy
}

func NewScorer(p Policy) *Scorer {
	return &Scorer{policy: p}
}

func (s *Scorer) Policy() Policy {
	return s.policy
}

// Score rates how likely inv is the invoice that payment p settles, given the
// amount still requested from p.
func (s *Scorer) Score(p *domain.Payment, inv *domain.Invoice, requested decimal.Decimal) Score {
	sc := Score{
		Amount:       AmountScore(inv.TotalAmount, requested),
		Counterparty: CounterpartyScore(p.Metadata, inv.ClientEmail),
		Date:         s.DateScore(p.TransactionDate, inv.IssueDate),
		Reference:    ReferenceScore(p.Metadata, inv),
	}

	total := weighted(s.policy.AmountWeight, sc.Amount).
		Add(weighted(s.policy.CounterpartyWeight, sc.Counterparty)).
		Add(weighted(s.policy.DateWeight, sc.Date)).
		Add(weighted(s.policy.ReferenceWeight, sc.Reference)).
		Round(6)
	sc.Total = clamp(total.InexactFloat64())
	return sc
}

// weighted multiplies in decimal so that 0.4 + 0.3 + 0.2 sums to exactly 0.9.
func weighted(weight, score float64) decimal.Decimal {
	return decimal.NewFromFloat(weight).Mul(decimal.NewFromFloat(score))
}

// AmountScore falls linearly from 1 at an exact match to 0 at 20% difference.
func AmountScore(total, requested decimal.Decimal) float64 {
	if !requested.IsPositive() {
		return 0
	}
	ratio := total.Sub(requested).Abs().Div(requested).InexactFloat64()
	return math.Max(0, 1-5*ratio)
}

func CounterpartyScore(md domain.PaymentMetadata, clientEmail *string) float64 {
	email, ok := md.CounterpartyEmail()
	if !ok || clientEmail == nil {
		return 0
	}
	if EmailsEqual(email, *clientEmail) {
		return 1
	}
	return 0
}

func EmailsEqual(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// DateScore is 1 within the grace period, then decays linearly to 0 at the
// end of the window.
func (s *Scorer) DateScore(transaction time.Time, issue *time.Time) float64 {
	if issue == nil {
		return 0
	}
	d := float64(DaysBetween(transaction, *issue))
	grace := float64(s.policy.DateGraceDays)
	window := float64(s.policy.DateWindowDays)
	return math.Max(0, 1-math.Max(0, d-grace)/(window-grace))
}

func ReferenceScore(md domain.PaymentMetadata, inv *domain.Invoice) float64 {
	ref, ok := md.InvoiceReference()
	if !ok {
		return 0
	}
	if inv.MatchesReference(ref) {
		return 1
	}
	return 0
}

// DaysBetween is the absolute number of UTC calendar days between a and b.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

func clamp(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// Ranked is a scored candidate.
type Ranked struct {
	Balance domain.InvoiceBalance
	Score   Score
}

// Rank orders candidates by total score, then amount score, then earliest
// issue date (missing last), then invoice id.
func Rank(items []Ranked) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score.Total != b.Score.Total {
			return a.Score.Total > b.Score.Total
		}
		if a.Score.Amount != b.Score.Amount {
			return a.Score.Amount > b.Score.Amount
		}
		ai, bi := a.Balance.Invoice.IssueDate, b.Balance.Invoice.IssueDate
		switch {
		case ai != nil && bi == nil:
			return true
		case ai == nil && bi != nil:
			return false
		case ai != nil && bi != nil && !ai.Equal(*bi):
			return ai.Before(*bi)
		}
		return a.Balance.Invoice.ID.String() < b.Balance.Invoice.ID.String()
	})
}
