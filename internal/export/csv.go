package export

import (
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/dvloznov/household-ledger/internal/domain"
)

var csvHeader = []string{"Date", "User", "Type", "Category", "Amount", "Description", "Tags"}

// CSVExporter writes one row per transaction with an RFC 3339 date, the
// plain decimal amount and comma-joined tags.
type CSVExporter struct{}

func (CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVExporter) Extension() string   { return "csv" }

func (CSVExporter) Export(w io.Writer, txs []domain.Transaction, users []domain.User) error {
	name := userNames(users)
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return domain.External("csv", "write header", err)
	}
	for _, tx := range txs {
		b := tx.Common()
		row := []string{
			b.Date.Format(time.RFC3339),
			safeCell(name(b.UserID)),
			string(tx.Type()),
			safeCell(tx.CategoryName()),
			b.Amount.String(),
			safeCell(b.Description),
			safeCell(strings.Join(b.Tags, ", ")),
		}
		if err := cw.Write(row); err != nil {
			return domain.External("csv", "write row", err)
		}
	}
	cw.Flush()
	return domain.External("csv", "flush", cw.Error())
}

// safeCell quotes text that a spreadsheet would otherwise evaluate as a
// formula.
func safeCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}
