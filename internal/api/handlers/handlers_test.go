package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/household-ledger/internal/assistant"
	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/household-ledger/internal/ledger"
	"github.com/dvloznov/household-ledger/internal/report"
	"github.com/dvloznov/household-ledger/internal/store"
)

var now = time.Date(2025, time.May, 20, 12, 0, 0, 0, time.UTC)

type stubModel struct {
	reply   assistant.Reply
	err     error
	suggest string
	receipt assistant.Receipt
	mime    string
}

func (m *stubModel) Chat(ctx context.Context, message string, categories []domain.Category, today time.Time) (assistant.Reply, error) {
	return m.reply, m.err
}

func (m *stubModel) SuggestCategory(ctx context.Context, description string, amount decimal.Decimal, categories []string) (string, error) {
	return m.suggest, m.err
}

func (m *stubModel) ScanReceipt(ctx context.Context, image []byte, mimeType string, categories []string) (assistant.Receipt, error) {
	m.mime = mimeType
	return m.receipt, m.err
}

func (m *stubModel) HealthReport(ctx context.Context, summary report.HealthSummary) (string, error) {
	return "## Score\n80", m.err
}

type testServer struct {
	ledger *ledger.Dispatcher
	jobs   *inmemory.Store
	router http.Handler
}

func newTestServer(t *testing.T, model assistant.Model) *testServer {
	t.Helper()
	log := zerolog.Nop()
	d := ledger.NewDispatcher(store.Seed(now), log)
	jobStore := inmemory.NewStore()

	var session *assistant.Session
	if model != nil {
		session = assistant.NewSession(model, d, assistant.WithClock(func() time.Time { return now }))
	}

	reports := NewReportsHandler(d, log)
	reports.now = func() time.Time { return now }
	exports := NewExportHandler(d, log)
	exports.now = func() time.Time { return now }
	tx := NewTransactionsHandler(d, log)
	tx.now = func() time.Time { return now }
	ai := NewAssistantHandler(session, model, d, log)
	ai.now = func() time.Time { return now }

	router := NewRouter(Handlers{
		Transactions: tx,
		Accounts:     NewAccountsHandler(d, log),
		Categories:   NewCategoriesHandler(d, log),
		Settings:     NewSettingsHandler(d, log),
		Budgets:      NewBudgetsHandler(d, log),
		Investments:  NewInvestmentsHandler(d, log),
		Reports:      reports,
		Export:       exports,
		Assistant:    ai,
		Jobs:         NewJobsHandler(jobStore, log),
	})
	return &testServer{ledger: d, jobs: jobStore, router: router}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, r)
	return w
}

func (ts *testServer) balance(t *testing.T, accountID string) string {
	t.Helper()
	a, ok := ts.ledger.Snapshot().Account(accountID)
	require.True(t, ok, "account %s", accountID)
	return a.Balance.String()
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCreateTransaction(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/api/transactions",
		`{"userId":"user1","accountId":"acc1","type":"Expense","category":"Tagihan","amount":100000,"description":"Air PAM"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	rec := decodeBody[domain.Record](t, w)
	assert.NotEmpty(t, rec.ID)
	assert.True(t, rec.Date.Equal(now))
	assert.Equal(t, []string{}, rec.Tags)

	assert.Equal(t, "49900000", ts.balance(t, "acc1"))
	assert.Equal(t, int64(1), ts.ledger.Snapshot().Revision)
	first := ts.ledger.Snapshot().Transactions[0]
	assert.Equal(t, rec.ID, first.Common().ID, "new transactions are prepended")
}

func TestCreateTransfer(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/api/transactions",
		`{"userId":"user1","accountId":"acc1","destinationAccountId":"acc2","type":"Transfer","category":"ignored","amount":500000,"description":"Top up"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	rec := decodeBody[domain.Record](t, w)
	assert.Equal(t, domain.TransferCategory, rec.Category)
	assert.Equal(t, "49500000", ts.balance(t, "acc1"))
	assert.Equal(t, "2000000", ts.balance(t, "acc2"))
}

func TestCreateTransactionRejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"zero amount", `{"userId":"user1","accountId":"acc1","type":"Expense","category":"Tagihan","amount":0,"description":"x"}`, http.StatusBadRequest},
		{"missing description", `{"userId":"user1","accountId":"acc1","type":"Expense","category":"Tagihan","amount":10}`, http.StatusBadRequest},
		{"unknown account", `{"userId":"user1","accountId":"nope","type":"Expense","category":"Tagihan","amount":10,"description":"x"}`, http.StatusNotFound},
		{"transfer to same account", `{"userId":"user1","accountId":"acc1","destinationAccountId":"acc1","type":"Transfer","amount":10,"description":"x"}`, http.StatusBadRequest},
		{"bad type", `{"userId":"user1","accountId":"acc1","type":"Refund","amount":10,"description":"x"}`, http.StatusBadRequest},
		{"malformed", `{"userId":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			w := ts.do(t, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, int64(0), ts.ledger.Snapshot().Revision)
			assert.Equal(t, "50000000", ts.balance(t, "acc1"))
		})
	}
}

func TestUpdateTransactionReversesOldEffect(t *testing.T) {
	ts := newTestServer(t, nil)

	// txn4 is a 1,000,000 expense on acc1; move it to acc2 at 2,000,000.
	w := ts.do(t, http.MethodPut, "/api/transactions/txn4",
		`{"userId":"user1","accountId":"acc2","type":"Expense","category":"Tagihan","amount":2000000,"description":"Listrik"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "51000000", ts.balance(t, "acc1"))
	assert.Equal(t, "-500000", ts.balance(t, "acc2"))

	tx, ok := ts.ledger.Snapshot().Transaction("txn4")
	require.True(t, ok)
	assert.Equal(t, "Listrik", tx.Common().Description)
	assert.Equal(t, 10, tx.Common().Date.Day(), "date is kept when omitted")
}

func TestUpdateTransactionErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPut, "/api/transactions/missing",
		`{"userId":"user1","accountId":"acc1","type":"Expense","category":"Tagihan","amount":1,"description":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPut, "/api/transactions/txn4",
		`{"id":"txn5","userId":"user1","accountId":"acc1","type":"Expense","category":"Tagihan","amount":1,"description":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTransaction(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodDelete, "/api/transactions/txn3", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "4000000", ts.balance(t, "acc2"))

	w = ts.do(t, http.MethodDelete, "/api/transactions/txn3", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTransactions(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/api/transactions?user=user2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]domain.Record](t, w), 3)

	w = ts.do(t, http.MethodGet, "/api/transactions?user=All&type=Income", "")
	assert.Len(t, decodeBody[[]domain.Record](t, w), 3)

	w = ts.do(t, http.MethodGet, "/api/transactions?user=user1&start_date=2025-05-01&end_date=2025-05-05", "")
	records := decodeBody[[]domain.Record](t, w)
	require.Len(t, records, 2)
	assert.Equal(t, "txn1", records[0].ID)
	assert.Equal(t, "txn3", records[1].ID)

	w = ts.do(t, http.MethodGet, "/api/transactions?start_date=May", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountsEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/api/accounts", `{"userId":"user2","name":"OVO","type":"E-Wallet","balance":250000}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[domain.Account](t, w)
	assert.Equal(t, "250000", created.OpeningBalance.String())

	w = ts.do(t, http.MethodPut, "/api/accounts/"+created.ID, `{"userId":"user2","name":"OVO Premier","type":"E-Wallet","balance":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeBody[domain.Account](t, w)
	assert.Equal(t, "OVO Premier", updated.Name)
	assert.Equal(t, "250000", updated.Balance.String(), "balance is not editable")

	w = ts.do(t, http.MethodDelete, "/api/accounts/acc1", "")
	assert.Equal(t, http.StatusConflict, w.Code, "referenced by transactions")

	w = ts.do(t, http.MethodDelete, "/api/accounts/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/accounts?user=user1", "")
	assert.Len(t, decodeBody[[]domain.Account](t, w), 2)
}

func TestCategoriesEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/api/categories?type=Income", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[struct {
		Categories []domain.Category `json:"categories"`
		Count      int               `json:"count"`
	}](t, w)
	assert.Equal(t, 2, body.Count)

	w = ts.do(t, http.MethodPost, "/api/categories", `{"name":"Transfer","type":"Expense"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/categories", `{"id":"cat9","name":"Kesehatan","type":"Expense"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodPut, "/api/categories/cat9", `{"name":"Kesehatan & Obat","type":"Expense"}`)
	require.Equal(t, http.StatusOK, w.Code)
	c, ok := ts.ledger.Snapshot().Category("cat9")
	require.True(t, ok)
	assert.Equal(t, "Kesehatan & Obat", c.Name)

	w = ts.do(t, http.MethodDelete, "/api/categories/cat9", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPut, "/api/session/user", `{"userId":"All"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.AllUsers, ts.ledger.Snapshot().CurrentUser)

	w = ts.do(t, http.MethodPut, "/api/session/user", `{"userId":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPut, "/api/session/theme", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ThemeDark, ts.ledger.Snapshot().Theme)

	rev := ts.ledger.Snapshot().Revision
	w = ts.do(t, http.MethodPut, "/api/session/theme", `{"theme":"dark"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, rev, ts.ledger.Snapshot().Revision, "already dark")

	w = ts.do(t, http.MethodPut, "/api/users", `[{"id":"user1","name":"Malvin K"},{"id":"user2","name":"Yovita"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Malvin K", ts.ledger.Snapshot().UserName("user1"))

	w = ts.do(t, http.MethodPut, "/api/users", `[{"id":"user1","name":"Solo"}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBudgetsAndInvestments(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/api/budgets", `{"userId":"user2","category":"Hiburan","amount":600000,"period":"Monthly"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	b := decodeBody[domain.Budget](t, w)

	w = ts.do(t, http.MethodGet, "/api/reports/budgets?user=user2", "")
	require.Equal(t, http.StatusOK, w.Code)
	usages := decodeBody[[]report.BudgetUsage](t, w)
	require.Len(t, usages, 2)
	assert.Equal(t, "500000", usages[1].Spent.String())

	w = ts.do(t, http.MethodDelete, "/api/budgets/"+b.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodPut, "/api/budgets/"+b.ID, `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = ts.do(t, http.MethodGet, "/api/investments?user=user1", "")
	require.Equal(t, http.StatusOK, w.Code)
	holdings := decodeBody[[]struct {
		ID    string          `json:"id"`
		Value decimal.Decimal `json:"value"`
	}](t, w)
	require.Len(t, holdings, 2)
	assert.Equal(t, "950000", holdings[0].Value.String())

	w = ts.do(t, http.MethodPost, "/api/investments", `{"userId":"user1","name":"Gold","type":"Commodity","quantity":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/investments/inv2", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestReports(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/api/reports/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	dash := decodeBody[report.Dashboard](t, w)
	assert.Equal(t, "user1", dash.UserID)
	assert.Equal(t, "15000000", dash.MonthlyIncome.String())
	assert.Equal(t, "3500000", dash.MonthlyExpense.String())

	w = ts.do(t, http.MethodGet, "/api/reports/cashflow?months=2&user=user1", "")
	require.Equal(t, http.StatusOK, w.Code)
	flow := decodeBody[[]report.MonthFlow](t, w)
	require.Len(t, flow, 2)
	assert.Equal(t, "2025-04", flow[0].Month)
	assert.Equal(t, "12200000", flow[0].Net.String())

	w = ts.do(t, http.MethodGet, "/api/reports/cashflow?months=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/api/export?format=csv&user=user2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "transactions-2025-05-20.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Date,User,Type"))
	assert.Contains(t, lines[1], "Yovita")

	w = ts.do(t, http.MethodGet, "/api/export?format=pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = ts.do(t, http.MethodGet, "/api/export?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssistantUnavailable(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(t, http.MethodPost, "/api/assistant/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAssistantChatConfirm(t *testing.T) {
	model := &stubModel{reply: assistant.Reply{Proposal: assistant.AddProposal{
		Type:        domain.TypeExpense,
		Amount:      decimal.NewFromInt(50000),
		Description: "Kopi",
		Category:    "Makanan & Minuman",
	}}}
	ts := newTestServer(t, model)

	w := ts.do(t, http.MethodPost, "/api/assistant/chat", `{"message":"add expense 50000 for coffee"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	msg := decodeBody[struct {
		Action struct {
			ID      string        `json:"id"`
			State   string        `json:"state"`
			Preview domain.Record `json:"preview"`
		} `json:"action"`
	}](t, w)
	require.NotEmpty(t, msg.Action.ID)
	assert.Equal(t, "pending", msg.Action.State)
	assert.Equal(t, "acc1", msg.Action.Preview.AccountID)
	assert.Equal(t, int64(0), ts.ledger.Snapshot().Revision, "nothing applied before confirmation")

	w = ts.do(t, http.MethodPost, "/api/assistant/actions/"+msg.Action.ID+"/confirm", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "49950000", ts.balance(t, "acc1"))

	w = ts.do(t, http.MethodPost, "/api/assistant/actions/"+msg.Action.ID+"/confirm", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "49950000", ts.balance(t, "acc1"))

	w = ts.do(t, http.MethodDelete, "/api/assistant/actions/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/assistant/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]map[string]any](t, w), 4)
}

func TestAssistantModelFailure(t *testing.T) {
	ts := newTestServer(t, &stubModel{err: errors.New("quota exceeded")})

	w := ts.do(t, http.MethodPost, "/api/assistant/chat", `{"message":"hello"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = ts.do(t, http.MethodPost, "/api/assistant/health", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAssistantHelpers(t *testing.T) {
	model := &stubModel{
		suggest: "Transportasi",
		receipt: assistant.Receipt{Category: "Kebutuhan", Description: "Indomaret"},
	}
	ts := newTestServer(t, model)

	w := ts.do(t, http.MethodPost, "/api/assistant/suggest-category", `{"description":"Grab ride","amount":35000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Transportasi", decodeBody[map[string]string](t, w)["category"])

	w = ts.do(t, http.MethodPost, "/api/assistant/suggest-category", `{"description":" "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/assistant/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decodeBody[map[string]string](t, w)["report"], "Score")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("receipt", "receipt.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/assistant/scan-receipt", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", model.mime)
	assert.Equal(t, "Indomaret", decodeBody[assistant.Receipt](t, rec).Description)
}

func TestJobsEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/api/jobs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeBody[map[string]any](t, w)["count"])

	w = ts.do(t, http.MethodGet, "/api/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(t, http.MethodPatch, "/api/transactions", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/transactions/", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
