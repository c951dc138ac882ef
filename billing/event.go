package billing

// =============================================================================
// RENTAL EVENT - A booking with a date range, materials, and beneficiaries
// =============================================================================

// RentalEvent is one booking. The document sequences are ordered most recent
// first; the coordinator owns all mutation of them.
//
// Invariant: EndDate >= StartDate. Duration is inclusive whole days, min 1.
type RentalEvent struct {
	ID        EventID
	Title     string
	StartDate TimePoint
	EndDate   TimePoint

	Materials     []LineItem
	Beneficiaries []string

	// Prior documents, most recent first.
	Estimates []Document
	Bills     []Document
}

// Validate checks the date-range invariant.
func (e *RentalEvent) Validate() error {
	if e.EndDate.Before(e.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

// Duration returns the rental duration in whole days, inclusive of both
// endpoints. A zero or inverted range still counts as one day.
func (e *RentalEvent) Duration() int {
	d := DaysBetween(e.StartDate, e.EndDate) + 1
	if d < 1 {
		return 1
	}
	return d
}

// IsBillable reports whether a bill can be issued. Bills need at least one
// beneficiary to be addressed to.
func (e *RentalEvent) IsBillable() bool {
	return len(e.Beneficiaries) > 0
}

// LastEstimate returns the most recent estimate, or nil.
func (e *RentalEvent) LastEstimate() *Document {
	if len(e.Estimates) == 0 {
		return nil
	}
	return &e.Estimates[0]
}

// LastBill returns the most recent bill, or nil.
func (e *RentalEvent) LastBill() *Document {
	if len(e.Bills) == 0 {
		return nil
	}
	return &e.Bills[0]
}
