package billing

import "fmt"

// =============================================================================
// FINANCIAL DOCUMENT - Immutable estimate/bill snapshot
// =============================================================================

type DocumentKind string

const (
	KindEstimate DocumentKind = "estimate"
	KindBill     DocumentKind = "bill"
)

// Document is an immutable snapshot of the discount rate and computed totals
// at creation time. Estimates are deletable; bills are not, and additionally
// expose a PDF rendering addressed by their id.
type Document struct {
	ID           DocumentID
	EventID      EventID
	Kind         DocumentKind
	Date         TimePoint
	DiscountRate DiscountRate

	// Figures frozen at creation.
	GrandTotal             Money
	DiscountAmount         Money
	GrandTotalWithDiscount Money
	ReplacementTotal       Money
}

func (d Document) IsEstimate() bool { return d.Kind == KindEstimate }
func (d Document) IsBill() bool     { return d.Kind == KindBill }

// =============================================================================
// PDF RESOURCE
// =============================================================================

// NoBillPDF is returned by BillPDFURL when no bill exists yet.
const NoBillPDF = ""

// BillPDFURL builds the retrievable PDF address for a bill. Pure URL
// construction; the rendering itself lives server-side.
func BillPDFURL(baseURL string, bill *Document) string {
	if bill == nil {
		return NoBillPDF
	}
	return fmt.Sprintf("%s/bills/%s/pdf", baseURL, bill.ID)
}

// =============================================================================
// DOCUMENT SEQUENCES - Most recent first
// =============================================================================

// prependDocument puts doc at the head of seq, keeping most-recent-first
// ordering for documents created in sequence.
func prependDocument(seq []Document, doc Document) []Document {
	out := make([]Document, 0, len(seq)+1)
	out = append(out, doc)
	return append(out, seq...)
}

// removeDocument filters the document with the given id out of seq.
func removeDocument(seq []Document, id DocumentID) []Document {
	out := make([]Document, 0, len(seq))
	for _, d := range seq {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}
