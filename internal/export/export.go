// Package export renders transaction lists as CSV or PDF. Exporters only
// read the transactions they are given.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/household-ledger/internal/domain"
)

// Exporter writes a rendering of txs to w. users resolves user ids to
// display names.
type Exporter interface {
	Export(w io.Writer, txs []domain.Transaction, users []domain.User) error
	ContentType() string
	Extension() string
}

// ForFormat returns the exporter for "csv" or "pdf".
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "csv", "":
		return CSVExporter{}, nil
	case "pdf":
		return PDFExporter{}, nil
	default:
		return nil, domain.NewValidationError("format", fmt.Sprintf("unsupported export format %q", format))
	}
}

func userNames(users []domain.User) func(id string) string {
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}
}
