/*
coordinator.go - Per-event document lifecycle coordination

PURPOSE:
  Owns the mutable billing state of one rental event: the current discount
  rate, the latest known estimate and bill, and the exclusive-operation
  guard. Issues create/delete requests against the document store and
  reconciles local state with the results.

LIFECYCLE FLOW:
  UI edit (rate or amount)  -> SetDiscountRate / SetDiscountTarget
  User action               -> CreateEstimate / DeleteEstimate / CreateBill
  Abandoned regeneration    -> ResetDiscountToLastDocument

GUARD:
  Exactly one of {create, delete} may be in flight per event. The guard is a
  three-state machine (Idle / Creating / Deleting); requests arriving in a
  busy state are dropped silently, never queued. The user can simply press
  the action again once the guard clears, which happens unconditionally on
  success, failure, and early exit.

ERROR POLICY:
  Remote failures are caught at the operation boundary and recorded in
  lastError; prior state is left untouched. Success clears lastError and any
  stale success message before setting a new one, so the two are mutually
  exclusive at any instant. This is a client-side cooperative scheme: the
  store may still receive concurrent requests from other sessions, and no
  cross-session consistency is guaranteed.

THREADING:
  One coordinator serves one logical thread of control (the event screen).
  The guard protects against re-entrant requests, not parallel goroutines.

SEE ALSO:
  - calculator.go: DeriveTotals, invoked after every state mutation
  - document.go: sequence ordering helpers
*/
package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// DocumentClient is the remote persistence collaborator. Implementations
// talk to the billing API; see the client package.
type DocumentClient interface {
	// CreateEstimate snapshots the given rate server-side and returns the
	// stored document.
	CreateEstimate(ctx context.Context, eventID EventID, rate DiscountRate) (Document, error)

	// DeleteEstimate removes an estimate and returns the deleted id for
	// confirmation matching.
	DeleteEstimate(ctx context.Context, id DocumentID) (DocumentID, error)

	// CreateBill snapshots the given rate as a bill.
	CreateBill(ctx context.Context, eventID EventID, rate DiscountRate) (Document, error)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	ConfirmDelete(ctx context.Context, kind DocumentKind) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, kind DocumentKind) bool

func (f ConfirmerFunc) ConfirmDelete(ctx context.Context, kind DocumentKind) bool {
	return f(ctx, kind)
}

// =============================================================================
// OPERATION STATE - Tagged three-state machine, not ad hoc booleans
// =============================================================================

type OpPhase int

const (
	PhaseIdle OpPhase = iota
	PhaseCreating
	PhaseDeleting
)

// OpState makes overlapping create/delete unrepresentable: Deleting always
// carries the id in flight, and there is no transition between the two busy
// phases.
type OpState struct {
	Phase      OpPhase
	DeletingID DocumentID
}

func (s OpState) IsIdle() bool     { return s.Phase == PhaseIdle }
func (s OpState) IsCreating() bool { return s.Phase == PhaseCreating }
func (s OpState) IsDeleting() bool { return s.Phase == PhaseDeleting }

func idleState() OpState                  { return OpState{Phase: PhaseIdle} }
func creatingState() OpState              { return OpState{Phase: PhaseCreating} }
func deletingState(id DocumentID) OpState { return OpState{Phase: PhaseDeleting, DeletingID: id} }

// =============================================================================
// COORDINATOR
// =============================================================================

// Success messages surfaced to the UI.
const (
	MsgEstimateCreated = "estimate-created"
	MsgEstimateDeleted = "estimate-deleted"
	MsgBillCreated     = "bill-created"
)

type Coordinator struct {
	calc      Calculator
	config    Config
	client    DocumentClient
	confirmer Confirmer

	event *RentalEvent

	rate            DiscountRate
	currentEstimate *Document
	currentBill     *Document

	state       OpState
	lastError   error
	lastSuccess string
}

// NewCoordinator validates the event and seeds state from its document
// sequences. The discount rate initializes from the most recent bill if
// present, else the most recent estimate, else zero: bills are authoritative
// once issued.
func NewCoordinator(event *RentalEvent, client DocumentClient, confirmer Confirmer, config Config) (*Coordinator, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if config.Degressive == nil {
		config.Degressive = DefaultDegressive()
	}

	c := &Coordinator{
		calc:            NewCalculator(config.Degressive),
		config:          config,
		client:          client,
		confirmer:       confirmer,
		event:           event,
		rate:            ZeroRate(),
		currentEstimate: event.LastEstimate(),
		currentBill:     event.LastBill(),
		state:           idleState(),
	}

	switch {
	case c.currentBill != nil:
		c.rate = c.currentBill.DiscountRate
	case c.currentEstimate != nil:
		c.rate = c.currentEstimate.DiscountRate
	}

	return c, nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

func (c *Coordinator) Event() *RentalEvent        { return c.event }
func (c *Coordinator) DiscountRate() DiscountRate { return c.rate }
func (c *Coordinator) State() OpState             { return c.state }
func (c *Coordinator) LastError() error           { return c.lastError }
func (c *Coordinator) LastSuccess() string        { return c.lastSuccess }
func (c *Coordinator) CurrentEstimate() *Document { return c.currentEstimate }
func (c *Coordinator) CurrentBill() *Document     { return c.currentBill }

// Estimates returns the event's estimate sequence, most recent first.
func (c *Coordinator) Estimates() []Document { return c.event.Estimates }

// Totals derives the full display figures for the current state.
func (c *Coordinator) Totals() (Totals, error) {
	return c.calc.DeriveTotals(c.event.Materials, c.event.Duration(), c.rate)
}

// PDFURL returns the address of the current bill's PDF, or NoBillPDF when no
// bill exists yet.
func (c *Coordinator) PDFURL(baseURL string) string {
	return BillPDFURL(baseURL, c.currentBill)
}

// ClearMessages drops transient messages, e.g. when switching tabs.
func (c *Coordinator) ClearMessages() {
	c.lastError = nil
	c.lastSuccess = ""
}

// =============================================================================
// DISCOUNT EDITS - Both directions resolve to the single rate field
// =============================================================================

// SetDiscountRate applies a direct rate edit. Out-of-range input is rejected,
// not clamped, so the UI can flag it.
func (c *Coordinator) SetDiscountRate(value decimal.Decimal) error {
	rate, err := NewDiscountRate(value)
	if err != nil {
		return err
	}
	c.rate = rate
	return nil
}

// SetDiscountTarget back-solves the rate that makes the payable amount equal
// the given target. Rejected when nothing is discountable.
func (c *Coordinator) SetDiscountTarget(target Money) error {
	totals, err := c.Totals()
	if err != nil {
		return err
	}
	rate, err := c.calc.RateFromTarget(totals.GrandTotal, target, totals.GrandTotalDiscountable)
	if err != nil {
		return err
	}
	c.rate = rate
	return nil
}

// ResetDiscountToLastDocument restores the rate from the latest persisted
// document, bill taking precedence over estimate. Used when abandoning a
// bill-regeneration flow. With no documents the rate is left as is.
func (c *Coordinator) ResetDiscountToLastDocument() {
	switch {
	case c.currentBill != nil:
		c.rate = c.currentBill.DiscountRate
	case c.currentEstimate != nil:
		c.rate = c.currentEstimate.DiscountRate
	}
}

// =============================================================================
// DOCUMENT OPERATIONS
// =============================================================================

// CreateEstimate snapshots the current rate as a new estimate. Dropped
// silently while another operation is in flight.
func (c *Coordinator) CreateEstimate(ctx context.Context) {
	if !c.state.IsIdle() {
		return
	}

	c.lastError = nil
	c.lastSuccess = ""
	c.state = creatingState()
	defer func() { c.state = idleState() }()

	doc, err := c.client.CreateEstimate(ctx, c.event.ID, c.rate)
	if err != nil {
		c.lastError = &RemoteOperationError{Op: "create estimate", Err: err}
		return
	}

	c.event.Estimates = prependDocument(c.event.Estimates, doc)
	c.currentEstimate = &c.event.Estimates[0]
	c.lastSuccess = MsgEstimateCreated
}

// DeleteEstimate removes a persisted estimate after user confirmation.
// Declining the confirmation aborts with no state change and no error. On
// success the current estimate reverts to the next most recent one, or none;
// the discount rate is deliberately not reset.
func (c *Coordinator) DeleteEstimate(ctx context.Context, id DocumentID) {
	if !c.state.IsIdle() {
		return
	}

	if c.confirmer == nil || !c.confirmer.ConfirmDelete(ctx, KindEstimate) {
		return
	}

	c.lastError = nil
	c.lastSuccess = ""
	c.state = deletingState(id)
	defer func() { c.state = idleState() }()

	deletedID, err := c.client.DeleteEstimate(ctx, id)
	if err != nil {
		c.lastError = &RemoteOperationError{Op: "delete estimate", Err: err}
		return
	}

	// Filter by the id the store reports, not the one requested.
	c.event.Estimates = removeDocument(c.event.Estimates, deletedID)
	c.currentEstimate = c.event.LastEstimate()
	c.lastSuccess = MsgEstimateDeleted
}

// CreateBill snapshots the current rate as a new bill. Same guard shape as
// CreateEstimate; only the current bill is updated, the shown bill list is
// managed elsewhere. Events without beneficiaries are not billable.
func (c *Coordinator) CreateBill(ctx context.Context) {
	if !c.state.IsIdle() {
		return
	}

	c.lastError = nil
	c.lastSuccess = ""

	if !c.event.IsBillable() {
		c.lastError = ErrNotBillable
		return
	}

	c.state = creatingState()
	defer func() { c.state = idleState() }()

	doc, err := c.client.CreateBill(ctx, c.event.ID, c.rate)
	if err != nil {
		c.lastError = &RemoteOperationError{Op: "create bill", Err: err}
		return
	}

	c.currentBill = &doc
	c.lastSuccess = MsgBillCreated
}
