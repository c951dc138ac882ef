/*
degressive.go - Duration-based pricing multipliers and currency configuration

PURPOSE:
  Long rentals are not billed as duration x one-day price. A degressive rate
  maps the duration (in days) to a multiplier applied to the one-day total,
  so a 7-day rental might cost 5.5x the daily price rather than 7x.

CONTRACT:
  A DegressiveRate must be monotonic non-decreasing in duration and must
  return exactly 1 for a one-day rental. The calculator treats it as an
  opaque pure function; validation is available for configured tables.

IMPLEMENTATIONS:
  - LinearDegressive: 1 + slope*(days-1). The product default uses slope 0.75.
  - TableDegressive:  explicit per-duration tiers, last tier extends.

SEE ALSO:
  - calculator.go: GrandTotal applies the multiplier
*/
package billing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DEGRESSIVE RATE - duration (days) -> multiplier >= 1
// =============================================================================

// DegressiveRate maps a rental duration in days (>= 1) to the multiplier
// applied to one-day totals. Must be monotonic non-decreasing and return 1
// at duration 1.
type DegressiveRate func(days int) decimal.Decimal

// LinearDegressive returns 1 + slope*(days-1).
func LinearDegressive(slope decimal.Decimal) DegressiveRate {
	one := decimal.NewFromInt(1)
	return func(days int) decimal.Decimal {
		if days <= 1 {
			return one
		}
		return one.Add(slope.Mul(decimal.NewFromInt(int64(days - 1))))
	}
}

// DefaultDegressive is the product default: 1 + 0.75*(days-1).
func DefaultDegressive() DegressiveRate {
	return LinearDegressive(decimal.NewFromFloat(0.75))
}

// TableDegressive builds a rate function from explicit tiers. Durations
// between tiers use the highest tier at or below them; durations beyond the
// last tier keep its multiplier.
func TableDegressive(tiers map[int]decimal.Decimal) DegressiveRate {
	days := make([]int, 0, len(tiers))
	for d := range tiers {
		days = append(days, d)
	}
	sort.Ints(days)

	one := decimal.NewFromInt(1)
	return func(d int) decimal.Decimal {
		if d <= 1 {
			return one
		}
		rate := one
		for _, tier := range days {
			if tier > d {
				break
			}
			rate = tiers[tier]
		}
		return rate
	}
}

// ValidateDegressive checks the contract over durations [1, maxDays]:
// f(1) == 1 and monotonic non-decreasing.
func ValidateDegressive(f DegressiveRate, maxDays int) error {
	one := decimal.NewFromInt(1)
	if !f(1).Equal(one) {
		return ErrDegressiveContract
	}
	prev := one
	for d := 2; d <= maxDays; d++ {
		cur := f(d)
		if cur.LessThan(prev) {
			return ErrDegressiveContract
		}
		prev = cur
	}
	return nil
}

// =============================================================================
// CONFIG - Currency display and degressive rate, supplied by the application
// =============================================================================

// Config carries the global billing configuration: how amounts are displayed
// and how durations scale prices.
type Config struct {
	CurrencySymbol    string
	CurrencyPrecision int32
	Degressive        DegressiveRate
}

// DefaultConfig returns the product defaults: euros, 2 decimals, linear
// degressive rate.
func DefaultConfig() Config {
	return Config{
		CurrencySymbol:    "€",
		CurrencyPrecision: 2,
		Degressive:        DefaultDegressive(),
	}
}

// FormatAmount renders a money value for display, rounded to the configured
// currency precision.
func (c Config) FormatAmount(m Money) string {
	return m.Value.StringFixed(c.CurrencyPrecision) + " " + c.CurrencySymbol
}
