package billing_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newCalc() billing.Calculator {
	return billing.NewCalculator(billing.DefaultDegressive())
}

func item(price float64, qty int, discountable bool) billing.LineItem {
	return billing.LineItem{
		Name:         "material",
		UnitPrice:    billing.NewMoney(price),
		Quantity:     qty,
		Discountable: discountable,
	}
}

func rate(t *testing.T, value float64) billing.DiscountRate {
	t.Helper()
	r, err := billing.NewDiscountRate(decimal.NewFromFloat(value))
	if err != nil {
		t.Fatalf("invalid test rate %v: %v", value, err)
	}
	return r
}

// approxEqual checks two decimals within 4-decimal tolerance.
func approxEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(decimal.NewFromFloat(0.0001))
}

// =============================================================================
// ONE-DAY TOTALS
// =============================================================================

func TestOneDayTotal_SumsPriceTimesQuantity(t *testing.T) {
	calc := newCalc()

	items := []billing.LineItem{
		item(10, 3, true),  // 30
		item(2.5, 4, true), // 10
		item(100, 1, false),
	}

	total := calc.OneDayTotal(items)
	if !total.Equal(billing.NewMoney(140)) {
		t.Errorf("expected one-day total 140, got %v", total.Value)
	}

	discountable := calc.OneDayDiscountableTotal(items)
	if !discountable.Equal(billing.NewMoney(40)) {
		t.Errorf("expected discountable total 40, got %v", discountable.Value)
	}

	if count := calc.ItemsCount(items); count != 8 {
		t.Errorf("expected items count 8, got %d", count)
	}
}

func TestEmptyItems_AllTotalsZero(t *testing.T) {
	// GIVEN: No line items
	// WHEN: Deriving all totals
	// THEN: Every figure is zero

	calc := newCalc()
	totals, err := calc.DeriveTotals(nil, 1, billing.ZeroRate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zeros := []billing.Money{
		totals.OneDayTotal,
		totals.OneDayDiscountableTotal,
		totals.GrandTotal,
		totals.GrandTotalDiscountable,
		totals.DiscountAmount,
		totals.DiscountTarget,
		totals.GrandTotalWithDiscount,
		totals.ReplacementTotal,
	}
	for i, m := range zeros {
		if !m.IsZero() {
			t.Errorf("figure %d: expected zero, got %v", i, m.Value)
		}
	}
	if totals.ItemsCount != 0 {
		t.Errorf("expected items count 0, got %d", totals.ItemsCount)
	}
}

// =============================================================================
// GRAND TOTAL AND DEGRESSIVE SCALING
// =============================================================================

func TestGrandTotal_ScalesByDegressiveRate(t *testing.T) {
	calc := newCalc()
	oneDay := billing.NewMoney(100)

	// Degressive contract: duration 1 scales by exactly 1.
	got, err := calc.GrandTotal(oneDay, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(oneDay) {
		t.Errorf("expected grand total == one-day total at duration 1, got %v", got.Value)
	}

	// Default rate at 5 days: 1 + 0.75*4 = 4.
	got, err = calc.GrandTotal(oneDay, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(billing.NewMoney(400)) {
		t.Errorf("expected grand total 400 at 5 days, got %v", got.Value)
	}
}

func TestGrandTotal_RejectsDurationBelowOneDay(t *testing.T) {
	calc := newCalc()
	if _, err := calc.GrandTotal(billing.NewMoney(100), 0); !errors.Is(err, billing.ErrInvalidDuration) {
		t.Errorf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestTableDegressive_TiersAndExtension(t *testing.T) {
	f := billing.TableDegressive(map[int]decimal.Decimal{
		2: decimal.NewFromFloat(1.75),
		7: decimal.NewFromFloat(5.5),
	})

	cases := map[int]float64{1: 1, 2: 1.75, 5: 1.75, 7: 5.5, 30: 5.5}
	for days, want := range cases {
		if got := f(days); !got.Equal(decimal.NewFromFloat(want)) {
			t.Errorf("table rate at %d days: expected %v, got %v", days, want, got)
		}
	}

	if err := billing.ValidateDegressive(f, 30); err != nil {
		t.Errorf("table should satisfy the contract: %v", err)
	}
}

func TestValidateDegressive_RejectsNonMonotonic(t *testing.T) {
	bad := func(days int) decimal.Decimal {
		if days == 1 {
			return decimal.NewFromInt(1)
		}
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(days)))
	}
	if err := billing.ValidateDegressive(bad, 10); !errors.Is(err, billing.ErrDegressiveContract) {
		t.Errorf("expected ErrDegressiveContract, got %v", err)
	}
}

// =============================================================================
// REPLACEMENT TOTAL
// =============================================================================

func TestReplacementTotal_SkipsHiddenItems_IgnoresDiscount(t *testing.T) {
	calc := newCalc()

	hidden := item(500, 1, true)
	hidden.HiddenOnBill = true

	items := []billing.LineItem{
		item(100, 2, true), // 200
		hidden,             // excluded
		item(50, 1, false), // 50
	}

	got := calc.ReplacementTotal(items)
	if !got.Equal(billing.NewMoney(250)) {
		t.Errorf("expected replacement total 250, got %v", got.Value)
	}
}

// =============================================================================
// RATE <-> AMOUNT CONVERSION
// =============================================================================

func TestScenarioA_SingleItemTenPercent(t *testing.T) {
	// GIVEN: items = [{price:100, qty:2, discountable}], duration 1, rate 10%
	// THEN: oneDayTotal=200, grandTotal=200, discountAmount=20, target=180

	calc := newCalc()
	items := []billing.LineItem{item(100, 2, true)}

	totals, err := calc.DeriveTotals(items, 1, rate(t, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !totals.OneDayTotal.Equal(billing.NewMoney(200)) {
		t.Errorf("expected one-day total 200, got %v", totals.OneDayTotal.Value)
	}
	if !totals.GrandTotal.Equal(billing.NewMoney(200)) {
		t.Errorf("expected grand total 200, got %v", totals.GrandTotal.Value)
	}
	if !totals.DiscountAmount.Equal(billing.NewMoney(20)) {
		t.Errorf("expected discount amount 20, got %v", totals.DiscountAmount.Value)
	}
	if !totals.DiscountTarget.Equal(billing.NewMoney(180)) {
		t.Errorf("expected discount target 180, got %v", totals.DiscountTarget.Value)
	}
	if !totals.GrandTotalWithDiscount.Equal(billing.NewMoney(180)) {
		t.Errorf("expected grand total with discount 180, got %v", totals.GrandTotalWithDiscount.Value)
	}
}

func TestRateAmountRoundTrip(t *testing.T) {
	// GIVEN: fixed totals large enough that 2-decimal amount rounding stays
	//        within 4-decimal rate tolerance
	// WHEN: computing the target from a rate, then back-solving the rate
	// THEN: the original rate is reproduced

	calc := newCalc()
	grand := billing.NewMoney(10000)
	discountable := billing.NewMoney(10000)

	for _, r := range []float64{0, 5, 10, 33.3333, 50.5, 99.9999} {
		in := rate(t, r)
		amount := calc.DiscountAmount(discountable, in)
		target := calc.DiscountTarget(grand, amount)

		out, err := calc.RateFromTarget(grand, target, discountable)
		if err != nil {
			t.Fatalf("rate %v: unexpected error: %v", r, err)
		}
		if !approxEqual(in.Value, out.Value) {
			t.Errorf("rate %v: round trip produced %v", in.Value, out.Value)
		}
	}
}

func TestRateFromTarget_NothingDiscountable_Rejected(t *testing.T) {
	// GIVEN: grandTotalDiscountable == 0
	// WHEN: back-solving a rate
	// THEN: the edit is rejected, no division by zero escapes

	calc := newCalc()
	_, err := calc.RateFromTarget(billing.NewMoney(200), billing.NewMoney(180), billing.NewMoney(0))
	if !errors.Is(err, billing.ErrNoDiscountableItems) {
		t.Errorf("expected ErrNoDiscountableItems, got %v", err)
	}
	if !billing.IsValidation(err) {
		t.Errorf("expected a validation error, got %v", err)
	}
}

func TestNewDiscountRate_RejectsOutOfRange(t *testing.T) {
	for _, v := range []float64{-0.0001, 100, 250} {
		if _, err := billing.NewDiscountRate(decimal.NewFromFloat(v)); !errors.Is(err, billing.ErrRateOutOfRange) {
			t.Errorf("rate %v: expected ErrRateOutOfRange, got %v", v, err)
		}
	}

	if _, err := billing.NewDiscountRate(decimal.NewFromFloat(99.9999)); err != nil {
		t.Errorf("99.9999 should be accepted: %v", err)
	}
}

func TestNewDiscountRate_RoundingCannotEscapeRange(t *testing.T) {
	// GIVEN: Inputs below 100 that round up to exactly 100 at 4 decimals
	// THEN: They are rejected; the stored rate never reaches 100

	for _, v := range []string{"99.99999", "99.99995"} {
		if _, err := billing.NewDiscountRate(decimal.RequireFromString(v)); !errors.Is(err, billing.ErrRateOutOfRange) {
			t.Errorf("rate %v rounds to 100 and must be rejected, got %v", v, err)
		}
	}

	// 99.99994 rounds down to 99.9999 and stays in range.
	r, err := billing.NewDiscountRate(decimal.RequireFromString("99.99994"))
	if err != nil {
		t.Fatalf("99.99994 should be accepted: %v", err)
	}
	if !r.Value.Equal(decimal.NewFromFloat(99.9999)) {
		t.Errorf("expected stored rate 99.9999, got %v", r.Value)
	}
}

// =============================================================================
// EVENT MODEL
// =============================================================================

func TestEventDuration_InclusiveWithMinimumOneDay(t *testing.T) {
	ev := &billing.RentalEvent{
		StartDate: billing.NewTimePoint(2024, 6, 1),
		EndDate:   billing.NewTimePoint(2024, 6, 3),
	}
	if d := ev.Duration(); d != 3 {
		t.Errorf("expected 3 days inclusive, got %d", d)
	}

	sameDay := &billing.RentalEvent{
		StartDate: billing.NewTimePoint(2024, 6, 1),
		EndDate:   billing.NewTimePoint(2024, 6, 1),
	}
	if d := sameDay.Duration(); d != 1 {
		t.Errorf("expected 1 day for same-day rental, got %d", d)
	}
}

func TestEventValidate_RejectsInvertedRange(t *testing.T) {
	ev := &billing.RentalEvent{
		StartDate: billing.NewTimePoint(2024, 6, 3),
		EndDate:   billing.NewTimePoint(2024, 6, 1),
	}
	if err := ev.Validate(); !errors.Is(err, billing.ErrInvalidDateRange) {
		t.Errorf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestFormatAmount_UsesConfiguredPrecisionAndSymbol(t *testing.T) {
	cfg := billing.DefaultConfig()
	if got := cfg.FormatAmount(billing.NewMoney(1234.567)); got != "1234.57 €" {
		t.Errorf("unexpected formatting: %q", got)
	}
}
