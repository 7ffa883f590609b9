package domain

import (
	"github.com/shopspring/decimal"
)

// AllUsers is the household-wide view selector used in place of a user id.
const AllUsers = "All"

// TransferCategory is the category every transfer carries.
const TransferCategory = "Transfer"

// TransactionType discriminates the three transaction variants.
type TransactionType string

const (
	TypeIncome   TransactionType = "Income"
	TypeExpense  TransactionType = "Expense"
	TypeTransfer TransactionType = "Transfer"
)

// AccountType is the kind of store of value an account represents.
type AccountType string

const (
	AccountBank       AccountType = "Bank"
	AccountEWallet    AccountType = "E-Wallet"
	AccountCash       AccountType = "Cash"
	AccountInvestment AccountType = "Investment"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountBank, AccountEWallet, AccountCash, AccountInvestment:
		return true
	}
	return false
}

// BudgetPeriod is the window a budget amount applies to.
type BudgetPeriod string

const (
	PeriodMonthly BudgetPeriod = "Monthly"
	PeriodYearly  BudgetPeriod = "Yearly"
)

// Theme is the persisted UI theme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// User is a household member.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Account holds a running balance owned by one user. OpeningBalance is the
// balance the account was created with; Balance is OpeningBalance plus the
// effects of every transaction that touches the account.
type Account struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	Balance        decimal.Decimal `json:"balance"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

// Category labels income and expense transactions. Transfers never use a
// user category.
type Category struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Type TransactionType `json:"type"`
}

// Budget caps spending in one expense category for one user.
type Budget struct {
	ID       string          `json:"id"`
	UserID   string          `json:"userId"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Period   BudgetPeriod    `json:"period"`
}

// Investment is a holding valued at quantity times current price. Holdings
// do not interact with account balances.
type Investment struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
}

// Value returns the market value of the holding.
func (i Investment) Value() decimal.Decimal {
	return i.Quantity.Mul(i.CurrentPrice)
}

// CostBasis returns what the holding cost to acquire.
func (i Investment) CostBasis() decimal.Decimal {
	return i.Quantity.Mul(i.PurchasePrice)
}

// Gain returns the unrealized gain (negative for a loss).
func (i Investment) Gain() decimal.Decimal {
	return i.Value().Sub(i.CostBasis())
}
