package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/household-ledger/internal/assistant"
	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/ledger"
	"github.com/dvloznov/household-ledger/internal/persist"
	"github.com/dvloznov/household-ledger/internal/report"
	"github.com/dvloznov/household-ledger/internal/store"
)

var now = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

type chatModel struct {
	reply assistant.Reply
}

func (m chatModel) Chat(ctx context.Context, message string, categories []domain.Category, today time.Time) (assistant.Reply, error) {
	return m.reply, nil
}

func (m chatModel) SuggestCategory(ctx context.Context, description string, amount decimal.Decimal, categories []string) (string, error) {
	return "", nil
}

func (m chatModel) ScanReceipt(ctx context.Context, image []byte, mimeType string, categories []string) (assistant.Receipt, error) {
	return assistant.Receipt{}, nil
}

func (m chatModel) HealthReport(ctx context.Context, summary report.HealthSummary) (string, error) {
	return "", nil
}

func testWorkspace(t *testing.T) (*workspace, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.json")
	return &workspace{
		store:  persist.NewFileStore(path),
		ledger: ledger.NewDispatcher(store.Seed(now), zerolog.Nop()),
		close:  func() error { return nil },
		log:    zerolog.Nop(),
	}, path
}

func coffeeSession(ws *workspace) *assistant.Session {
	model := chatModel{reply: assistant.Reply{Proposal: assistant.AddProposal{
		Type:        domain.TypeExpense,
		Amount:      decimal.NewFromInt(50000),
		Description: "Kopi",
		Category:    "Makanan & Minuman",
	}}}
	return assistant.NewSession(model, ws.ledger, assistant.WithClock(func() time.Time { return now }))
}

func TestChatLoopConfirmSaves(t *testing.T) {
	ws, path := testWorkspace(t)
	var out bytes.Buffer

	err := chatLoop(context.Background(), coffeeSession(ws), ws, strings.NewReader("add coffee 50000\ny\nquit\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Apply this change?")
	assert.Contains(t, out.String(), "AI: Done.")

	saved, err := ws.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ws.ledger.Snapshot().Revision, saved.Revision)
	acc, ok := saved.Account("acc1")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(49_950_000).Equal(acc.Balance), acc.Balance.String())
	assert.FileExists(t, path)
}

func TestChatLoopDeclineDiscards(t *testing.T) {
	ws, path := testWorkspace(t)
	var out bytes.Buffer
	before := ws.ledger.Snapshot().Revision

	err := chatLoop(context.Background(), coffeeSession(ws), ws, strings.NewReader("add coffee 50000\nn\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "cancelled")
	assert.Equal(t, before, ws.ledger.Snapshot().Revision)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestTransactionsMarkdown(t *testing.T) {
	s := store.Seed(now)
	txs := s.TransactionsForUser("user1")

	md := transactionsMarkdown(s, txs)
	assert.True(t, strings.HasPrefix(md, "# Transactions ("))
	assert.Contains(t, md, "| Date | ID | User |")
	assert.Contains(t, md, "Malvin")
	assert.NotContains(t, md, "Yovita")

	assert.Contains(t, transactionsMarkdown(s, nil), "_No transactions._")
}

func TestAccountsMarkdown(t *testing.T) {
	s := store.Seed(now)
	md := accountsMarkdown(s, s.AccountsForUser("user2"))
	assert.Contains(t, md, "# Accounts (2)")
	assert.Contains(t, md, "Mandiri")
	assert.NotContains(t, md, "BCA")
}

func TestDashboardMarkdown(t *testing.T) {
	s := store.Seed(now)
	d := report.BuildDashboard(s, domain.AllUsers, now)
	md := dashboardMarkdown(s.UserName(domain.AllUsers), d, report.CashFlow(s, domain.AllUsers, 2, now))

	assert.True(t, strings.HasPrefix(md, "# Household"))
	assert.Contains(t, md, "## Budgets")
	assert.Contains(t, md, "| 2025-04 |")
	assert.Contains(t, md, "| 2025-05 |")
}

func TestTxFieldsMerge(t *testing.T) {
	f := txFields{typ: "transfer", amount: "250000", to: "acc2", date: "2025-05-01", tags: " a, ,b "}
	rec, err := f.merge(domain.Record{Type: domain.TypeExpense, AccountID: "acc1", Description: "keep"})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeTransfer, rec.Type)
	assert.Equal(t, "acc2", rec.DestinationAccountID)
	assert.Equal(t, "keep", rec.Description)
	assert.Equal(t, []string{"a", "b"}, rec.Tags)
	assert.Equal(t, 1, rec.Date.Day())

	f = txFields{typ: "expense"}
	rec, err = f.merge(rec)
	require.NoError(t, err)
	assert.Empty(t, rec.DestinationAccountID)

	bad := txFields{date: "01/05/2025"}
	_, err = bad.merge(domain.Record{})
	assert.Error(t, err)
}

func TestCell(t *testing.T) {
	assert.Equal(t, `a\|b c`, cell("a|b\nc"))
}
