package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/emsdesk/apiserver/types"
)

// Statement is the content of a payment statement.
type Statement struct {
	Email       string
	Designation string
	Payments    []types.PaymentEntry
	GeneratedAt time.Time
}

// RenderStatement writes the statement as a single A4 PDF document. Entries
// are rendered in the order given.
func RenderStatement(w io.Writer, st Statement) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payment Statement")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", st.Email))
	pdf.Ln(7)
	if st.Designation != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Designation: %s", st.Designation))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", st.GeneratedAt.Format("2006-01-02 15:04 MST")))
	pdf.Ln(12)

	widths := []float64{40, 25, 40, 75}
	pdf.SetFont("Helvetica", "B", 11)
	for i, header := range []string{"Month", "Year", "Amount", "Transaction"} {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	var total float64
	for _, p := range st.Payments {
		pdf.CellFormat(widths[0], 7, p.Month, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%d", p.Year), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, fmt.Sprintf("%.2f", p.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, p.PaymentID, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
		total += p.Amount
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Payments: %d    Total: %.2f", len(st.Payments), total))

	return pdf.Output(w)
}
