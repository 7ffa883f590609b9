// Package report computes read-only views over a ledger snapshot: net
// worth, monthly totals, budget consumption, cash flow and the figures fed
// to the AI health report. Nothing here changes the snapshot.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

var hundred = decimal.NewFromInt(100)

// StartOfMonth returns midnight on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// MonthWindow returns the half-open range [start, end) of t's month.
func MonthWindow(t time.Time) (start, end time.Time) {
	start = StartOfMonth(t)
	return start, start.AddDate(0, 1, 0)
}

func yearWindow(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(1, 0, 0)
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// TotalBalance sums the balances of userID's accounts (all accounts for
// domain.AllUsers).
func TotalBalance(s store.Snapshot, userID string) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range s.AccountsForUser(userID) {
		sum = sum.Add(a.Balance)
	}
	return sum
}

// InvestmentValue sums quantity times current price over userID's holdings.
func InvestmentValue(s store.Snapshot, userID string) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range s.InvestmentsForUser(userID) {
		sum = sum.Add(v.Value())
	}
	return sum
}

// NetWorth is account balances plus investment value.
func NetWorth(s store.Snapshot, userID string) decimal.Decimal {
	return TotalBalance(s, userID).Add(InvestmentValue(s, userID))
}

// Totals is income and expense over a window. Transfers count toward
// neither.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Net returns income minus expense.
func (t Totals) Net() decimal.Decimal { return t.Income.Sub(t.Expense) }

func (t *Totals) add(tx domain.Transaction) {
	switch tx.Type() {
	case domain.TypeIncome:
		t.Income = t.Income.Add(tx.Common().Amount)
	case domain.TypeExpense:
		t.Expense = t.Expense.Add(tx.Common().Amount)
	}
}

// TotalsBetween sums userID's income and expense dated in [start, end).
func TotalsBetween(s store.Snapshot, userID string, start, end time.Time) Totals {
	var t Totals
	for _, tx := range s.TransactionsForUser(userID) {
		if within(tx.Common().Date, start, end) {
			t.add(tx)
		}
	}
	return t
}

// MonthlyTotals sums userID's income and expense in the month containing
// now.
func MonthlyTotals(s store.Snapshot, userID string, now time.Time) Totals {
	start, end := MonthWindow(now)
	return TotalsBetween(s, userID, start, end)
}

// BudgetUsage is a budget with its consumption in the current period.
type BudgetUsage struct {
	domain.Budget
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Overspent reports whether spending exceeded the budget.
func (b BudgetUsage) Overspent() bool { return b.Spent.GreaterThan(b.Amount) }

// BudgetUsages computes consumption for userID's budgets (all budgets for
// domain.AllUsers). Spending counts the budget owner's expenses in the
// budget's category within the current month or, for yearly budgets, the
// current calendar year. Percentage is 0 for a zero budget.
func BudgetUsages(s store.Snapshot, userID string, now time.Time) []BudgetUsage {
	budgets := s.BudgetsForUser(userID)
	out := make([]BudgetUsage, 0, len(budgets))
	for _, b := range budgets {
		start, end := MonthWindow(now)
		if b.Period == domain.PeriodYearly {
			start, end = yearWindow(now)
		}
		spent := decimal.Zero
		for _, tx := range s.TransactionsForUser(b.UserID) {
			c := tx.Common()
			if tx.Type() == domain.TypeExpense && tx.CategoryName() == b.Category && within(c.Date, start, end) {
				spent = spent.Add(c.Amount)
			}
		}
		pct := decimal.Zero
		if b.Amount.IsPositive() {
			pct = spent.Div(b.Amount).Mul(hundred)
		}
		out = append(out, BudgetUsage{Budget: b, Spent: spent, Remaining: b.Amount.Sub(spent), Percentage: pct})
	}
	return out
}

// CategoryAmount is an expense total for one category.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// ExpenseByCategory totals userID's expenses dated in [start, end) per
// category, largest first.
func ExpenseByCategory(s store.Snapshot, userID string, start, end time.Time) []CategoryAmount {
	totals := map[string]decimal.Decimal{}
	for _, tx := range s.TransactionsForUser(userID) {
		if tx.Type() == domain.TypeExpense && within(tx.Common().Date, start, end) {
			totals[tx.CategoryName()] = totals[tx.CategoryName()].Add(tx.Common().Amount)
		}
	}
	out := make([]CategoryAmount, 0, len(totals))
	for c, a := range totals {
		out = append(out, CategoryAmount{Category: c, Amount: a})
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Amount.Cmp(out[j].Amount); cmp != 0 {
			return cmp > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MonthFlow is one month of cash flow.
type MonthFlow struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// CashFlow returns income, expense and net for each of the last months
// months up to and including the month of now, oldest first. Month is
// formatted as YYYY-MM.
func CashFlow(s store.Snapshot, userID string, months int, now time.Time) []MonthFlow {
	if months <= 0 {
		return nil
	}
	out := make([]MonthFlow, 0, months)
	current := StartOfMonth(now)
	for i := months - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		t := TotalsBetween(s, userID, start, start.AddDate(0, 1, 0))
		out = append(out, MonthFlow{
			Month:   start.Format("2006-01"),
			Income:  t.Income,
			Expense: t.Expense,
			Net:     t.Net(),
		})
	}
	return out
}

// Dashboard bundles the headline figures for one view.
type Dashboard struct {
	UserID          string           `json:"userId"`
	TotalBalance    decimal.Decimal  `json:"totalBalance"`
	InvestmentValue decimal.Decimal  `json:"investmentValue"`
	NetWorth        decimal.Decimal  `json:"netWorth"`
	MonthlyIncome   decimal.Decimal  `json:"monthlyIncome"`
	MonthlyExpense  decimal.Decimal  `json:"monthlyExpense"`
	Budgets         []BudgetUsage    `json:"budgets"`
	TopExpenses     []CategoryAmount `json:"topExpenses"`
}

// BuildDashboard computes the dashboard for userID as of now.
func BuildDashboard(s store.Snapshot, userID string, now time.Time) Dashboard {
	month := MonthlyTotals(s, userID, now)
	start, end := MonthWindow(now)
	return Dashboard{
		UserID:          userID,
		TotalBalance:    TotalBalance(s, userID),
		InvestmentValue: InvestmentValue(s, userID),
		NetWorth:        NetWorth(s, userID),
		MonthlyIncome:   month.Income,
		MonthlyExpense:  month.Expense,
		Budgets:         BudgetUsages(s, userID, now),
		TopExpenses:     ExpenseByCategory(s, userID, start, end),
	}
}
