/*
pdf.go - Bill PDF rendering

Renders a bill document as a one-page PDF: event header, material lines,
discount breakdown, replacement value. Amounts come straight from the
immutable snapshot; nothing is recomputed at render time except the line
detail, which is informational.
*/
package api

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/warp/billing-engine/billing"
)

func renderBillPDF(doc *billing.Document, event *billing.RentalEvent, config billing.Config) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(190, 10, "Bill", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Bill %s - issued %s", doc.ID, doc.Date), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Event info
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(190, 8, "Rental", "1", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(95, 7, event.Title, "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7,
		fmt.Sprintf("%s to %s (%d days)", event.StartDate, event.EndDate, event.Duration()),
		"RB", 1, "L", false, 0, "")
	if len(event.Beneficiaries) > 0 {
		pdf.CellFormat(190, 7, "Billed to: "+event.Beneficiaries[0], "LRB", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Material lines
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(100, 7, "Material", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(60, 7, "Unit price / day", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, m := range event.Materials {
		if m.HiddenOnBill {
			continue
		}
		pdf.CellFormat(100, 6, m.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", m.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, config.FormatAmount(m.UnitPrice), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Totals from the snapshot
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(190, 8, "Totals", "1", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)

	line := func(label, value string) {
		pdf.CellFormat(130, 7, label, "LB", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, value, "RB", 1, "R", false, 0, "")
	}
	line("Grand total", config.FormatAmount(doc.GrandTotal))
	line(fmt.Sprintf("Discount (%s)", doc.DiscountRate), config.FormatAmount(doc.DiscountAmount.Neg()))

	pdf.SetFont("Helvetica", "B", 11)
	line("Total to pay", config.FormatAmount(doc.GrandTotalWithDiscount))

	pdf.SetFont("Helvetica", "I", 9)
	line("Replacement value", config.FormatAmount(doc.ReplacementTotal))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
