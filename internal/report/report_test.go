package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

var now = time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func assertDec(t *testing.T, want decimal.Decimal, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, want.Equal(got), "%s: want %s, got %s", msg, want, got)
}

func TestNetWorth(t *testing.T) {
	s := store.Seed(now)

	// 50M + 1.5M accounts, 950k + 10M holdings
	assertDec(t, d(51500000), TotalBalance(s, "user1"), "balance")
	assertDec(t, d(10950000), InvestmentValue(s, "user1"), "investments")
	assertDec(t, d(62450000), NetWorth(s, "user1"), "net worth")

	all := NetWorth(s, domain.AllUsers)
	assertDec(t, NetWorth(s, "user1").Add(NetWorth(s, "user2")), all, "household")
}

func TestMonthlyTotals(t *testing.T) {
	s := store.Seed(now)

	got := MonthlyTotals(s, "user1", now)
	assertDec(t, d(15000000), got.Income, "income")
	assertDec(t, d(3500000), got.Expense, "expense")
	assertDec(t, d(11500000), got.Net(), "net")

	household := MonthlyTotals(s, domain.AllUsers, now)
	assertDec(t, d(35000000), household.Income, "household income")
}

func TestMonthWindowIsHalfOpen(t *testing.T) {
	s := store.Empty()
	s.Users = []domain.User{{ID: "u", Name: "U"}}
	s.Accounts = []domain.Account{{ID: "a", UserID: "u", Name: "A", Type: domain.AccountCash}}
	mk := func(id string, date time.Time) domain.Transaction {
		return domain.Income{Base: domain.Base{ID: id, UserID: "u", Amount: d(1), Description: id, Date: date}, AccountID: "a", Category: "Gaji"}
	}
	s.Transactions = []domain.Transaction{
		mk("first-instant", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		mk("last-day-evening", time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC)),
		mk("next-month", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)),
		mk("prev-month", time.Date(2024, 5, 31, 23, 59, 0, 0, time.UTC)),
	}
	assertDec(t, d(2), MonthlyTotals(s, "u", now).Income, "june income")
}

func TestTransfersAreNotIncomeOrExpense(t *testing.T) {
	s := store.Seed(now)
	s.Transactions = append(s.Transactions, domain.Transfer{
		Base:          domain.Base{ID: "tr", UserID: "user1", Amount: d(999), Description: "top up", Date: now},
		FromAccountID: "acc1", ToAccountID: "acc2",
	})
	got := MonthlyTotals(s, "user1", now)
	assertDec(t, d(15000000), got.Income, "income")
	assertDec(t, d(3500000), got.Expense, "expense")
}

func TestBudgetUsages(t *testing.T) {
	s := store.Seed(now)

	usages := BudgetUsages(s, "user1", now)
	require.Len(t, usages, 2)

	kebutuhan := usages[0]
	assert.Equal(t, "Kebutuhan", kebutuhan.Category)
	assertDec(t, d(2500000), kebutuhan.Spent, "spent")
	assertDec(t, d(500000), kebutuhan.Remaining, "remaining")
	assert.Equal(t, "83.33", kebutuhan.Percentage.StringFixed(2))
	assert.False(t, kebutuhan.Overspent())

	hiburan := usages[1]
	assertDec(t, decimal.Zero, hiburan.Spent, "user2's movie does not count against user1")

	s, err := s.UpsertBudget(domain.Budget{ID: "bud0", UserID: "user1", Category: "Tagihan", Amount: decimal.Zero, Period: domain.PeriodMonthly})
	require.NoError(t, err)
	for _, u := range BudgetUsages(s, "user1", now) {
		if u.ID == "bud0" {
			assert.True(t, u.Percentage.IsZero())
			assert.True(t, u.Overspent())
		}
	}
}

func TestYearlyBudget(t *testing.T) {
	s := store.Seed(now)
	s, err := s.UpsertBudget(domain.Budget{ID: "y", UserID: "user1", Category: "Kebutuhan", Amount: d(10000000), Period: domain.PeriodYearly})
	require.NoError(t, err)
	for _, u := range BudgetUsages(s, "user1", now) {
		if u.ID == "y" {
			assertDec(t, d(4800000), u.Spent, "both months count")
		}
	}
}

func TestCashFlow(t *testing.T) {
	s := store.Seed(now)
	flow := CashFlow(s, "user1", 6, now)
	require.Len(t, flow, 6)
	assert.Equal(t, "2024-01", flow[0].Month)
	assert.Equal(t, "2024-06", flow[5].Month)
	assertDec(t, d(11500000), flow[5].Net, "june net")
	assertDec(t, d(14500000), flow[4].Income, "may income")
	assertDec(t, d(2300000), flow[4].Expense, "may expense")
	assertDec(t, decimal.Zero, flow[0].Net, "january")

	assert.Nil(t, CashFlow(s, "user1", 0, now))
}

func TestExpenseByCategory(t *testing.T) {
	s := store.Seed(now)
	start, end := MonthWindow(now)
	got := ExpenseByCategory(s, domain.AllUsers, start, end)
	require.Len(t, got, 4)
	assert.Equal(t, "Kebutuhan", got[0].Category)
	assert.Equal(t, "Hiburan", got[3].Category)
}

func TestHealth(t *testing.T) {
	s := store.Seed(now)
	h := Health(s, "user1", now)

	assert.Equal(t, 3, h.TimeframeMonths)
	assert.Equal(t, "IDR", h.Currency)
	assertDec(t, d(29500000), h.TotalIncome, "income")
	assertDec(t, d(5800000), h.TotalExpense, "expense")
	assert.Equal(t, int64(80), h.SavingsRatePercent)
	require.Len(t, h.BudgetAdherence, 2)
	assertDec(t, d(9000000), h.BudgetAdherence[0].Budgeted, "three months of budget")
	assert.Equal(t, "ok", h.BudgetAdherence[0].Status)
	assertDec(t, d(51500000), h.NetWorth.CashAndBank, "cash")
}

func TestDashboard(t *testing.T) {
	s := store.Seed(now)
	dash := BuildDashboard(s, "user2", now)
	assertDec(t, d(75500000), dash.TotalBalance, "balance")
	assertDec(t, d(7750000), dash.InvestmentValue, "investments")
	assertDec(t, d(20000000), dash.MonthlyIncome, "income")
	assertDec(t, d(1250000), dash.MonthlyExpense, "expense")
	assert.Len(t, dash.Budgets, 1)
}
