/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY ON THE WIRE:
  Amounts and rates travel as JSON numbers. Internally everything is
  decimal; conversion happens only at this boundary.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// CreateDocumentRequest is the body of create-estimate and create-bill calls.
type CreateDocumentRequest struct {
	DiscountRate float64 `json:"discountRate"`
}

// DocumentDTO represents an estimate or bill in API responses.
type DocumentDTO struct {
	ID                     string  `json:"id"`
	EventID                string  `json:"event_id"`
	Kind                   string  `json:"kind"`
	Date                   string  `json:"date"`
	DiscountRate           float64 `json:"discount_rate"`
	GrandTotal             float64 `json:"grand_total"`
	DiscountAmount         float64 `json:"discount_amount"`
	GrandTotalWithDiscount float64 `json:"grand_total_with_discount"`
	ReplacementTotal       float64 `json:"replacement_total"`
	PDFURL                 string  `json:"pdf_url,omitempty"`
}

// DeletedDTO confirms a deletion by echoing the removed id.
type DeletedDTO struct {
	ID string `json:"id"`
}

// LineItemDTO represents one material line.
type LineItemDTO struct {
	Name         string  `json:"name"`
	UnitPrice    float64 `json:"unit_price"`
	Quantity     int     `json:"quantity"`
	Discountable bool    `json:"is_discountable"`
	HiddenOnBill bool    `json:"is_hidden_on_bill"`
}

// EventDTO represents a rental event with its document sequences.
type EventDTO struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	StartDate     string        `json:"start_date"`
	EndDate       string        `json:"end_date"`
	Duration      int           `json:"duration"`
	Materials     []LineItemDTO `json:"materials"`
	Beneficiaries []string      `json:"beneficiaries"`
	Estimates     []DocumentDTO `json:"estimates"`
	Bills         []DocumentDTO `json:"bills"`
}

// SaveEventRequest creates or replaces an event.
type SaveEventRequest struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	StartDate     string        `json:"start_date"`
	EndDate       string        `json:"end_date"`
	Materials     []LineItemDTO `json:"materials"`
	Beneficiaries []string      `json:"beneficiaries"`
}

// TotalsDTO carries every derived figure for an event at a given rate.
type TotalsDTO struct {
	ItemsCount              int     `json:"items_count"`
	Duration                int     `json:"duration"`
	Ratio                   float64 `json:"ratio"`
	OneDayTotal             float64 `json:"one_day_total"`
	OneDayTotalDiscountable float64 `json:"one_day_total_discountable"`
	GrandTotal              float64 `json:"grand_total"`
	GrandTotalDiscountable  float64 `json:"grand_total_discountable"`
	DiscountRate            float64 `json:"discount_rate"`
	DiscountAmount          float64 `json:"discount_amount"`
	DiscountTarget          float64 `json:"discount_target"`
	GrandTotalWithDiscount  float64 `json:"grand_total_with_discount"`
	ReplacementTotal        float64 `json:"replacement_total"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toDocumentDTO(doc billing.Document, baseURL string) DocumentDTO {
	dto := DocumentDTO{
		ID:                     string(doc.ID),
		EventID:                string(doc.EventID),
		Kind:                   string(doc.Kind),
		Date:                   doc.Date.String(),
		DiscountRate:           floatOf(doc.DiscountRate.Value),
		GrandTotal:             floatOf(doc.GrandTotal.Value),
		DiscountAmount:         floatOf(doc.DiscountAmount.Value),
		GrandTotalWithDiscount: floatOf(doc.GrandTotalWithDiscount.Value),
		ReplacementTotal:       floatOf(doc.ReplacementTotal.Value),
	}
	if doc.IsBill() {
		dto.PDFURL = billing.BillPDFURL(baseURL, &doc)
	}
	return dto
}

func toDocumentDTOs(docs []billing.Document, baseURL string) []DocumentDTO {
	dtos := make([]DocumentDTO, len(docs))
	for i, d := range docs {
		dtos[i] = toDocumentDTO(d, baseURL)
	}
	return dtos
}

func toEventDTO(event *billing.RentalEvent, baseURL string) EventDTO {
	materials := make([]LineItemDTO, len(event.Materials))
	for i, m := range event.Materials {
		materials[i] = LineItemDTO{
			Name:         m.Name,
			UnitPrice:    floatOf(m.UnitPrice.Value),
			Quantity:     m.Quantity,
			Discountable: m.Discountable,
			HiddenOnBill: m.HiddenOnBill,
		}
	}
	return EventDTO{
		ID:            string(event.ID),
		Title:         event.Title,
		StartDate:     event.StartDate.String(),
		EndDate:       event.EndDate.String(),
		Duration:      event.Duration(),
		Materials:     materials,
		Beneficiaries: event.Beneficiaries,
		Estimates:     toDocumentDTOs(event.Estimates, baseURL),
		Bills:         toDocumentDTOs(event.Bills, baseURL),
	}
}

func toTotalsDTO(t billing.Totals) TotalsDTO {
	return TotalsDTO{
		ItemsCount:              t.ItemsCount,
		Duration:                t.Duration,
		Ratio:                   floatOf(t.Ratio),
		OneDayTotal:             floatOf(t.OneDayTotal.Value),
		OneDayTotalDiscountable: floatOf(t.OneDayDiscountableTotal.Value),
		GrandTotal:              floatOf(t.GrandTotal.Value),
		GrandTotalDiscountable:  floatOf(t.GrandTotalDiscountable.Value),
		DiscountRate:            floatOf(t.DiscountRate.Value),
		DiscountAmount:          floatOf(t.DiscountAmount.Value),
		DiscountTarget:          floatOf(t.DiscountTarget.Value),
		GrandTotalWithDiscount:  floatOf(t.GrandTotalWithDiscount.Value),
		ReplacementTotal:        floatOf(t.ReplacementTotal.Value),
	}
}
