package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

var now = time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)

func TestCSVExport(t *testing.T) {
	s := store.Seed(now)
	txs := []domain.Transaction{
		domain.Expense{
			Base:      domain.Base{ID: "t1", UserID: "user1", Amount: decimal.RequireFromString("12500.5"), Description: `Dinner "fancy", downtown`, Date: now, Tags: []string{"food", "family"}},
			AccountID: "acc1",
			Category:  "Makanan & Minuman",
		},
		domain.Transfer{
			Base:          domain.Base{ID: "t2", UserID: "ghost", Amount: decimal.NewFromInt(100), Description: "top up", Date: now},
			FromAccountID: "acc1",
			ToAccountID:   "acc2",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, CSVExporter{}.Export(&buf, txs, s.Users))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date", "User", "Type", "Category", "Amount", "Description", "Tags"}, rows[0])
	assert.Equal(t, []string{"2024-06-20T12:00:00Z", "Malvin", "Expense", "Makanan & Minuman", "12500.5", `Dinner "fancy", downtown`, "food, family"}, rows[1])
	assert.Equal(t, "ghost", rows[2][1])
	assert.Equal(t, "Transfer", rows[2][3])
	assert.Equal(t, "", rows[2][6])
}

func TestCSVExportQuotesFormulas(t *testing.T) {
	s := store.Seed(now)
	txs := []domain.Transaction{
		domain.Expense{
			Base:      domain.Base{ID: "t1", UserID: "user1", Amount: decimal.NewFromInt(10), Description: "=HYPERLINK(\"http://x\")", Date: now, Tags: []string{"@home"}},
			AccountID: "acc1",
			Category:  "+cmd",
		},
		domain.Income{
			Base:      domain.Base{ID: "t2", UserID: "user1", Amount: decimal.NewFromInt(10), Description: "-refund", Date: now},
			AccountID: "acc1",
			Category:  "Gaji",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, CSVExporter{}.Export(&buf, txs, s.Users))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "'+cmd", rows[1][3])
	assert.Equal(t, "10", rows[1][4])
	assert.Equal(t, `'=HYPERLINK("http://x")`, rows[1][5])
	assert.Equal(t, "'@home", rows[1][6])
	assert.Equal(t, "Gaji", rows[2][3])
	assert.Equal(t, "'-refund", rows[2][5])
}

func TestPDFExport(t *testing.T) {
	s := store.Seed(now)
	var buf bytes.Buffer
	require.NoError(t, PDFExporter{}.Export(&buf, s.Transactions, s.Users))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPDFExportPaginates(t *testing.T) {
	var txs []domain.Transaction
	for i := 0; i < 120; i++ {
		txs = append(txs, domain.Income{Base: domain.Base{ID: "t", UserID: "u", Amount: decimal.NewFromInt(int64(i)), Description: "Gaji Bulanan dengan deskripsi yang cukup panjang sekali", Date: now}, AccountID: "a", Category: "Gaji"})
	}
	var buf bytes.Buffer
	require.NoError(t, PDFExporter{}.Export(&buf, txs, nil))
	assert.Greater(t, buf.Len(), 1000)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestExportWriteFailure(t *testing.T) {
	s := store.Seed(now)
	err := CSVExporter{}.Export(failingWriter{}, s.Transactions, s.Users)
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
}

func TestForFormat(t *testing.T) {
	e, err := ForFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, "pdf", e.Extension())

	e, err = ForFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", e.ContentType())

	_, err = ForFormat("xlsx")
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}
