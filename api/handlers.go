/*
handlers.go - HTTP API handlers for the rental billing service

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Events:
    POST   /api/events                   Create/replace an event
    GET    /api/events/{id}              Get event with document sequences
    GET    /api/events/{id}/totals       Derived figures at a discount rate

  Documents:
    POST   /api/events/{id}/estimate     Snapshot the rate as an estimate
    POST   /api/events/{id}/bill         Snapshot the rate as a bill
    DELETE /api/estimates/{id}           Delete an estimate, returns {id}
    GET    /api/bills/{id}/pdf           Rendered bill PDF

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Load the event, derive totals through the calculator
  4. Persist the snapshot / serialize the response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, non-billable event
  - 404: Event or document not found
  - 409: Attempt to delete a bill
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - billing/calculator.go: Totals derivation
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Config billing.Config

	// BaseURL prefixes the PDF links embedded in document responses.
	BaseURL string

	calc billing.Calculator
}

// NewHandler creates a new handler with the given store and configuration.
func NewHandler(store *sqlite.Store, config billing.Config, baseURL string) *Handler {
	if config.Degressive == nil {
		config.Degressive = billing.DefaultDegressive()
	}
	return &Handler{
		Store:   store,
		Config:  config,
		BaseURL: baseURL,
		calc:    billing.NewCalculator(config.Degressive),
	}
}

// =============================================================================
// EVENT ENDPOINTS
// =============================================================================

func (h *Handler) SaveEvent(w http.ResponseWriter, r *http.Request) {
	var req SaveEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Event id is required", nil)
		return
	}

	event, err := eventFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event", err)
		return
	}

	if err := h.Store.SaveEvent(r.Context(), event); err != nil {
		if billing.IsValidation(err) {
			writeError(w, http.StatusBadRequest, "Invalid event", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save event", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEventDTO(event, h.BaseURL))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(event, h.BaseURL))
}

// GetTotals derives the display figures for an event. The discount rate
// comes from the query string; absent, the latest document's rate applies,
// bill taking precedence, zero with no documents.
func (h *Handler) GetTotals(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	rate := billing.ZeroRate()
	switch {
	case r.URL.Query().Get("discountRate") != "":
		value, err := decimal.NewFromString(r.URL.Query().Get("discountRate"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid discountRate", err)
			return
		}
		if rate, err = billing.NewDiscountRate(value); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid discountRate", err)
			return
		}
	case event.LastBill() != nil:
		rate = event.LastBill().DiscountRate
	case event.LastEstimate() != nil:
		rate = event.LastEstimate().DiscountRate
	}

	totals, err := h.calc.DeriveTotals(event.Materials, event.Duration(), rate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to derive totals", err)
		return
	}

	writeJSON(w, http.StatusOK, toTotalsDTO(totals))
}

// =============================================================================
// DOCUMENT ENDPOINTS
// =============================================================================

func (h *Handler) CreateEstimate(w http.ResponseWriter, r *http.Request) {
	h.createDocument(w, r, billing.KindEstimate)
}

func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	h.createDocument(w, r, billing.KindBill)
}

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request, kind billing.DocumentKind) {
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rate, err := billing.NewDiscountRate(decimal.NewFromFloat(req.DiscountRate))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid discount rate", err)
		return
	}

	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	if kind == billing.KindBill && !event.IsBillable() {
		writeError(w, http.StatusBadRequest, "Event has no beneficiaries", billing.ErrNotBillable)
		return
	}

	totals, err := h.calc.DeriveTotals(event.Materials, event.Duration(), rate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to derive totals", err)
		return
	}

	doc, err := h.Store.CreateDocument(r.Context(), billing.Document{
		EventID:                event.ID,
		Kind:                   kind,
		Date:                   billing.Today(),
		DiscountRate:           rate,
		GrandTotal:             totals.GrandTotal,
		DiscountAmount:         totals.DiscountAmount,
		GrandTotalWithDiscount: totals.GrandTotalWithDiscount,
		ReplacementTotal:       totals.ReplacementTotal,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create document", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentDTO(doc, h.BaseURL))
}

func (h *Handler) DeleteEstimate(w http.ResponseWriter, r *http.Request) {
	id := billing.DocumentID(chi.URLParam(r, "id"))

	deletedID, err := h.Store.DeleteEstimate(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, sqlite.ErrDocumentNotFound):
			writeError(w, http.StatusNotFound, "Estimate not found", nil)
		case errors.Is(err, sqlite.ErrBillNotDeletable):
			writeError(w, http.StatusConflict, "Bills cannot be deleted", nil)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to delete estimate", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, DeletedDTO{ID: string(deletedID)})
}

func (h *Handler) GetBillPDF(w http.ResponseWriter, r *http.Request) {
	id := billing.DocumentID(chi.URLParam(r, "id"))

	doc, err := h.Store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, sqlite.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, "Bill not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load bill", err)
		return
	}
	if !doc.IsBill() {
		writeError(w, http.StatusNotFound, "Bill not found", nil)
		return
	}

	event, err := h.Store.GetEvent(r.Context(), doc.EventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load event", err)
		return
	}

	pdfBytes, err := renderBillPDF(doc, event, h.Config)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render PDF", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadEvent(w http.ResponseWriter, r *http.Request) (*billing.RentalEvent, bool) {
	id := billing.EventID(chi.URLParam(r, "id"))

	event, err := h.Store.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, sqlite.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "Event not found", nil)
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to load event", err)
		return nil, false
	}
	return event, true
}

func eventFromRequest(req SaveEventRequest) (*billing.RentalEvent, error) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return nil, err
	}

	materials := make([]billing.LineItem, len(req.Materials))
	for i, m := range req.Materials {
		materials[i] = billing.LineItem{
			Name:         m.Name,
			UnitPrice:    billing.Money{Value: decimal.NewFromFloat(m.UnitPrice)},
			Quantity:     m.Quantity,
			Discountable: m.Discountable,
			HiddenOnBill: m.HiddenOnBill,
		}
	}

	event := &billing.RentalEvent{
		ID:            billing.EventID(req.ID),
		Title:         req.Title,
		StartDate:     start,
		EndDate:       end,
		Materials:     materials,
		Beneficiaries: req.Beneficiaries,
	}
	return event, event.Validate()
}

func parseDate(s string) (billing.TimePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return billing.TimePoint{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return billing.TimePoint{Time: t}, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func floatOf(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
