/*
calculator.go - Pure totals derivation for a rental event

PURPOSE:
  Maps a set of line items, a duration, and a discount rate into the full set
  of monetary figures the billing screens show. Every operation is
  referentially transparent given its inputs; there is no state and no I/O.

THE FIGURES:
  OneDayTotal:             sum(unit price x quantity)
  OneDayDiscountableTotal: same, restricted to discountable items
  GrandTotal:              one-day total x degressive(duration)
  ReplacementTotal:        sum over items not hidden on the bill; discounts
                           never apply to replacement value
  DiscountAmount:          grand discountable x rate / 100
  DiscountTarget:          grand total - discount amount (the amount the
                           customer actually pays)

RATE <-> AMOUNT:
  The discount can be edited either as a rate or as a target amount. Both
  edits resolve to a single source of truth (the rate); the two directions
  are pure inverses:

    read:  target = round2(grand - discountable*rate/100)
    write: rate   = round4(100 * (grand - target) / discountable)

  Applying write-then-read at a given rate reproduces the rate to 4-decimal
  precision. When nothing is discountable the write direction is undefined
  and the edit is rejected (ErrNoDiscountableItems).

ROUNDING:
  Internal running sums keep full decimal precision. Rounding happens only at
  the two presentation points: target amounts to the currency precision (2),
  rates to 4 decimals.

SEE ALSO:
  - degressive.go: duration multiplier contract
  - coordinator.go: invokes DeriveTotals after every state mutation
*/
package billing

import (
	"github.com/shopspring/decimal"
)

// MoneyPrecision is the currency display precision for derived amounts.
const MoneyPrecision = 2

// =============================================================================
// CALCULATOR - Pure, stateless
// =============================================================================

type Calculator struct {
	Degressive DegressiveRate
}

// NewCalculator builds a calculator around the configured degressive rate.
// A nil rate falls back to the product default.
func NewCalculator(degressive DegressiveRate) Calculator {
	if degressive == nil {
		degressive = DefaultDegressive()
	}
	return Calculator{Degressive: degressive}
}

// ItemsCount returns the sum of quantities across all line items.
func (c Calculator) ItemsCount(items []LineItem) int {
	count := 0
	for _, it := range items {
		count += it.Quantity
	}
	return count
}

// OneDayTotal returns the price of renting every item for a single day.
func (c Calculator) OneDayTotal(items []LineItem) Money {
	total := Money{Value: decimal.Zero}
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// OneDayDiscountableTotal restricts OneDayTotal to discountable items.
func (c Calculator) OneDayDiscountableTotal(items []LineItem) Money {
	total := Money{Value: decimal.Zero}
	for _, it := range items {
		if it.Discountable {
			total = total.Add(it.LineTotal())
		}
	}
	return total
}

// GrandTotal scales a one-day total to the full rental period.
// Duration must be >= 1.
func (c Calculator) GrandTotal(oneDay Money, duration int) (Money, error) {
	if duration < 1 {
		return Money{}, ErrInvalidDuration
	}
	return oneDay.Mul(c.Degressive(duration)), nil
}

// ReplacementTotal values the items if lost or destroyed. Items hidden on
// the bill are excluded; the discount rate never applies here.
func (c Calculator) ReplacementTotal(items []LineItem) Money {
	total := Money{Value: decimal.Zero}
	for _, it := range items {
		if it.HiddenOnBill {
			continue
		}
		total = total.Add(it.LineTotal())
	}
	return total
}

// DiscountAmount returns grandDiscountable x rate / 100, at full precision.
func (c Calculator) DiscountAmount(grandDiscountable Money, rate DiscountRate) Money {
	return grandDiscountable.Mul(rate.Fraction())
}

// DiscountTarget is the read direction of the rate<->amount pair: the amount
// the customer pays after discount, rounded to the currency precision.
func (c Calculator) DiscountTarget(grandTotal, discountAmount Money) Money {
	return grandTotal.Sub(discountAmount).Round(MoneyPrecision)
}

// RateFromTarget is the write direction: back-solves the rate that makes the
// payable amount equal target. Rejected when nothing is discountable, since
// the division is undefined.
func (c Calculator) RateFromTarget(grandTotal, target, grandDiscountable Money) (DiscountRate, error) {
	if grandDiscountable.IsZero() {
		return DiscountRate{}, ErrNoDiscountableItems
	}
	diff := grandTotal.Sub(target)
	rate := decimal.NewFromInt(100).Mul(diff.Value).Div(grandDiscountable.Value)
	return NewDiscountRate(rate.Round(RatePrecision))
}

// =============================================================================
// TOTALS - Every derived figure, computed in one pass
// =============================================================================

// Totals is the full set of display figures for one (items, duration, rate)
// input. It replaces implicit recomputation: callers derive a fresh Totals
// after every state change.
type Totals struct {
	ItemsCount int
	Duration   int
	Ratio      decimal.Decimal

	OneDayTotal             Money
	OneDayDiscountableTotal Money
	GrandTotal              Money
	GrandTotalDiscountable  Money
	DiscountRate            DiscountRate
	DiscountAmount          Money
	DiscountTarget          Money
	GrandTotalWithDiscount  Money
	ReplacementTotal        Money
}

// DeriveTotals computes every figure for the given inputs.
// Duration below one day is an error, matching the event invariant.
func (c Calculator) DeriveTotals(items []LineItem, duration int, rate DiscountRate) (Totals, error) {
	if duration < 1 {
		return Totals{}, ErrInvalidDuration
	}

	oneDay := c.OneDayTotal(items)
	oneDayDiscountable := c.OneDayDiscountableTotal(items)

	grand, err := c.GrandTotal(oneDay, duration)
	if err != nil {
		return Totals{}, err
	}
	grandDiscountable, err := c.GrandTotal(oneDayDiscountable, duration)
	if err != nil {
		return Totals{}, err
	}

	discountAmount := c.DiscountAmount(grandDiscountable, rate)

	return Totals{
		ItemsCount:              c.ItemsCount(items),
		Duration:                duration,
		Ratio:                   c.Degressive(duration),
		OneDayTotal:             oneDay,
		OneDayDiscountableTotal: oneDayDiscountable,
		GrandTotal:              grand,
		GrandTotalDiscountable:  grandDiscountable,
		DiscountRate:            rate,
		DiscountAmount:          discountAmount,
		DiscountTarget:          c.DiscountTarget(grand, discountAmount),
		GrandTotalWithDiscount:  grand.Sub(discountAmount),
		ReplacementTotal:        c.ReplacementTotal(items),
	}, nil
}
