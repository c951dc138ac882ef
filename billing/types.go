/*
Package billing provides the core rental billing engine.

PURPOSE:
  This package contains the types and algorithms for deriving the monetary
  figures of an equipment-rental event: per-day totals, duration-scaled grand
  totals, discountable subtotals, discount rate/amount conversion, and
  replacement value. It also owns the coordinator that manages the lifecycle
  of the financial documents (estimates and bills) snapshotting those figures.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A monetary quantity backed by decimal.Decimal
  - DiscountRate: A percentage in [0, 100) with 4-decimal precision
  - LineItem: One rentable material line of an event
  - Typed identifiers for events and documents

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere; no float arithmetic on money
  2. Full internal precision: rounding happens only at presentation points
  3. Purity: the calculator has no state and no I/O
  4. Immutability: documents are snapshots, never mutated after creation

USAGE:
  total := billing.NewMoney(100).Mul(decimal.NewFromInt(2))
  rate, err := billing.NewDiscountRate(decimal.NewFromInt(10))

SEE ALSO:
  - calculator.go: Totals derivation
  - coordinator.go: Document lifecycle
  - degressive.go: Duration-based multipliers and currency configuration
*/
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Monetary quantity with full internal precision
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

func (m Money) Add(b Money) Money              { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money              { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) Mul(s decimal.Decimal) Money    { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money    { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                     { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) Equal(b Money) bool             { return m.Value.Equal(b.Value) }
func (m Money) GreaterThan(b Money) bool       { return m.Value.GreaterThan(b.Value) }
func (m Money) LessThan(b Money) bool          { return m.Value.LessThan(b.Value) }

// Round rounds to the given number of decimal places. Used only at
// presentation points; intermediate sums keep full precision.
func (m Money) Round(places int32) Money { return Money{Value: m.Value.Round(places)} }

// =============================================================================
// DISCOUNT RATE - Percentage in [0, 100) with 4-decimal precision
// =============================================================================

// RatePrecision is the number of decimal places a discount rate carries.
const RatePrecision = 4

type DiscountRate struct {
	Value decimal.Decimal
}

var rateUpperBound = decimal.NewFromInt(100)

// NewDiscountRate rounds a rate to 4 decimals and validates the rounded
// value: rounding before the range check keeps inputs like 99.99999, which
// round up to 100, out of the stored range.
// Out-of-range input is rejected, not clamped, so callers can flag it.
func NewDiscountRate(value decimal.Decimal) (DiscountRate, error) {
	rounded := value.Round(RatePrecision)
	if rounded.IsNegative() || rounded.GreaterThanOrEqual(rateUpperBound) {
		return DiscountRate{}, &RateOutOfRangeError{Value: value}
	}
	return DiscountRate{Value: rounded}, nil
}

// ZeroRate is the identity discount rate.
func ZeroRate() DiscountRate { return DiscountRate{Value: decimal.Zero} }

func (r DiscountRate) IsZero() bool              { return r.Value.IsZero() }
func (r DiscountRate) Equal(b DiscountRate) bool { return r.Value.Equal(b.Value) }

// Fraction returns the rate as a multiplier (rate / 100).
func (r DiscountRate) Fraction() decimal.Decimal {
	return r.Value.Div(rateUpperBound)
}

func (r DiscountRate) String() string {
	return r.Value.StringFixed(RatePrecision) + "%"
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EventID string
type DocumentID string

// =============================================================================
// LINE ITEM - One rentable material line
// =============================================================================

// LineItem is a material line of a rental event. Immutable once loaded;
// owned by the enclosing event.
type LineItem struct {
	Name      string
	UnitPrice Money
	Quantity  int

	// Discountable marks the line as eligible for the discount rate.
	Discountable bool

	// HiddenOnBill excludes the line from the replacement total.
	HiddenOnBill bool
}

// LineTotal returns unit price times quantity.
func (li LineItem) LineTotal() Money {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

func (li LineItem) String() string {
	return fmt.Sprintf("%s x%d @ %s", li.Name, li.Quantity, li.UnitPrice.Value)
}
