package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

// HealthMonths is the lookback used for the financial health report.
const HealthMonths = 3

// HealthSummary is the anonymous figure set sent to the AI model for a
// financial health report. Field names are what the prompt refers to.
type HealthSummary struct {
	TimeframeMonths    int              `json:"timeframe_months"`
	Currency           string           `json:"currency"`
	TotalIncome        decimal.Decimal  `json:"total_income"`
	TotalExpense       decimal.Decimal  `json:"total_expense"`
	SavingsRatePercent int64            `json:"savings_rate_percent"`
	ExpenseBreakdown   []CategoryAmount `json:"expense_breakdown"`
	NetWorth           HealthNetWorth   `json:"net_worth"`
	BudgetAdherence    []BudgetCheck    `json:"budget_adherence"`
}

type HealthNetWorth struct {
	CashAndBank decimal.Decimal `json:"cash_and_bank"`
	Investments decimal.Decimal `json:"investments"`
}

type BudgetCheck struct {
	Category string          `json:"category"`
	Budgeted decimal.Decimal `json:"budgeted"`
	Spent    decimal.Decimal `json:"spent"`
	Status   string          `json:"status"`
}

// Health builds the summary for userID from the first day of the month
// HealthMonths months before now through the end of the current month.
func Health(s store.Snapshot, userID string, now time.Time) HealthSummary {
	_, end := MonthWindow(now)
	start := StartOfMonth(now).AddDate(0, -HealthMonths, 0)

	totals := TotalsBetween(s, userID, start, end)
	breakdown := ExpenseByCategory(s, userID, start, end)
	spentBy := make(map[string]decimal.Decimal, len(breakdown))
	for _, c := range breakdown {
		spentBy[c.Category] = c.Amount
	}

	months := decimal.NewFromInt(HealthMonths)
	var checks []BudgetCheck
	for _, b := range s.BudgetsForUser(userID) {
		budgeted := b.Amount.Mul(months)
		if b.Period == domain.PeriodYearly {
			budgeted = b.Amount.Mul(months).Div(decimal.NewFromInt(12))
		}
		status := "ok"
		if spentBy[b.Category].GreaterThan(budgeted) {
			status = "overspent"
		}
		checks = append(checks, BudgetCheck{Category: b.Category, Budgeted: budgeted, Spent: spentBy[b.Category], Status: status})
	}

	var rate int64
	if totals.Income.IsPositive() {
		rate = totals.Net().Div(totals.Income).Mul(hundred).Round(0).IntPart()
	}

	return HealthSummary{
		TimeframeMonths:    HealthMonths,
		Currency:           domain.Currency,
		TotalIncome:        totals.Income,
		TotalExpense:       totals.Expense,
		SavingsRatePercent: rate,
		ExpenseBreakdown:   breakdown,
		NetWorth: HealthNetWorth{
			CashAndBank: TotalBalance(s, userID),
			Investments: InvestmentValue(s, userID),
		},
		BudgetAdherence: checks,
	}
}
