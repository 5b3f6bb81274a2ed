package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// IsValid reports whether c looks like an ISO 4217 alphabetic code.
func (c Currency) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	return strings.ToUpper(string(c)) == string(c) && strings.Trim(string(c), "ABCDEFGHIJKLMNOPQRSTUVWXYZ") == ""
}

// DefaultTolerance is the minor-unit rounding allowance used in every amount comparison.
var DefaultTolerance = decimal.RequireFromString("0.01")

// SumAllocated returns the total allocated amount across allocations.
func SumAllocated(allocations []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.AllocatedAmount)
	}
	return total
}
