package export

import (
	"io"

	"github.com/phpdave11/gofpdf"

	"github.com/dvloznov/household-ledger/internal/domain"
)

var (
	pdfHeader = []string{"Date", "User", "Type", "Category", "Amount", "Description"}
	pdfWidths = []float64{22, 26, 20, 32, 32, 50}
	pdfAlign  = []string{"C", "L", "C", "L", "R", "L"}
)

// PDFExporter renders a "Transaction History" table on A4 pages. Tags are
// not included.
type PDFExporter struct{}

func (PDFExporter) ContentType() string { return "application/pdf" }
func (PDFExporter) Extension() string   { return "pdf" }

func (PDFExporter) Export(w io.Writer, txs []domain.Transaction, users []domain.User) error {
	name := userNames(users)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Transaction History")
	pdf.Ln(12)

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(245, 245, 245)
		for i, h := range pdfHeader {
			ln := 0
			if i == len(pdfHeader)-1 {
				ln = 1
			}
			pdf.CellFormat(pdfWidths[i], 8, h, "1", ln, "C", true, 0, "")
		}
		pdf.SetFont("Helvetica", "", 8)
	}
	header()

	for _, tx := range txs {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}
		b := tx.Common()
		cells := []string{
			b.Date.Format("02/01/2006"),
			name(b.UserID),
			string(tx.Type()),
			tx.CategoryName(),
			domain.FormatMoney(b.Amount),
			trimTo(b.Description, 34),
		}
		for i, c := range cells {
			ln := 0
			if i == len(cells)-1 {
				ln = 1
			}
			pdf.CellFormat(pdfWidths[i], 7, tr(c), "1", ln, pdfAlign[i], false, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return domain.External("pdf", "render", err)
	}
	return nil
}

func trimTo(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
