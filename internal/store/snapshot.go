// Package store holds the ledger's entity collections as an immutable
// snapshot. Every modifier returns a new Snapshot and leaves the receiver
// untouched, so a snapshot handed to a reader never changes under it.
package store

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/household-ledger/internal/domain"
)

// Snapshot is the complete ledger state at one revision. Transactions are
// kept newest-first in insertion order.
type Snapshot struct {
	Users        []domain.User
	Accounts     []domain.Account
	Categories   []domain.Category
	Budgets      []domain.Budget
	Investments  []domain.Investment
	Transactions []domain.Transaction
	CurrentUser  string
	Theme        domain.Theme
	Revision     int64
}

// Empty returns a snapshot with no entities and the default preferences.
func Empty() Snapshot {
	return Snapshot{CurrentUser: domain.AllUsers, Theme: domain.ThemeLight}
}

// User returns the user with the given id.
func (s Snapshot) User(id string) (domain.User, bool) {
	i := slices.IndexFunc(s.Users, func(u domain.User) bool { return u.ID == id })
	if i < 0 {
		return domain.User{}, false
	}
	return s.Users[i], true
}

// UserName returns the user's display name, or "Unknown User".
func (s Snapshot) UserName(id string) string {
	if u, ok := s.User(id); ok {
		return u.Name
	}
	return "Unknown User"
}

// Account returns the account with the given id.
func (s Snapshot) Account(id string) (domain.Account, bool) {
	i := s.accountIndex(id)
	if i < 0 {
		return domain.Account{}, false
	}
	return s.Accounts[i], true
}

func (s Snapshot) accountIndex(id string) int {
	return slices.IndexFunc(s.Accounts, func(a domain.Account) bool { return a.ID == id })
}

// AccountsForUser returns the accounts owned by userID, or all accounts for
// domain.AllUsers.
func (s Snapshot) AccountsForUser(userID string) []domain.Account {
	return filter(s.Accounts, userID, func(a domain.Account) string { return a.UserID })
}

// PrimaryAccount returns the first account owned by userID.
func (s Snapshot) PrimaryAccount(userID string) (domain.Account, bool) {
	for _, a := range s.Accounts {
		if a.UserID == userID {
			return a, true
		}
	}
	return domain.Account{}, false
}

// Transaction returns the stored transaction with the given id.
func (s Snapshot) Transaction(id string) (domain.Transaction, bool) {
	i := s.transactionIndex(id)
	if i < 0 {
		return nil, false
	}
	return s.Transactions[i], true
}

func (s Snapshot) transactionIndex(id string) int {
	return slices.IndexFunc(s.Transactions, func(t domain.Transaction) bool { return t.Common().ID == id })
}

// TransactionsForUser returns the transactions recorded by userID, or every
// transaction for domain.AllUsers.
func (s Snapshot) TransactionsForUser(userID string) []domain.Transaction {
	return filter(s.Transactions, userID, func(t domain.Transaction) string { return t.Common().UserID })
}

// AccountReferences returns the ids of transactions that use accountID as
// source or destination.
func (s Snapshot) AccountReferences(accountID string) []string {
	var ids []string
	for _, t := range s.Transactions {
		if domain.Touches(t, accountID) {
			ids = append(ids, t.Common().ID)
		}
	}
	return ids
}

// Category returns the category with the given id.
func (s Snapshot) Category(id string) (domain.Category, bool) {
	i := slices.IndexFunc(s.Categories, func(c domain.Category) bool { return c.ID == id })
	if i < 0 {
		return domain.Category{}, false
	}
	return s.Categories[i], true
}

// CategoryByName finds a category by name and type.
func (s Snapshot) CategoryByName(name string, typ domain.TransactionType) (domain.Category, bool) {
	for _, c := range s.Categories {
		if c.Name == name && c.Type == typ {
			return c, true
		}
	}
	return domain.Category{}, false
}

// ListCategories returns categories of the given type, or all of them when
// typ is empty.
func (s Snapshot) ListCategories(typ domain.TransactionType) []domain.Category {
	if typ == "" {
		return slices.Clone(s.Categories)
	}
	var out []domain.Category
	for _, c := range s.Categories {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

// Budget returns the budget with the given id.
func (s Snapshot) Budget(id string) (domain.Budget, bool) {
	i := slices.IndexFunc(s.Budgets, func(b domain.Budget) bool { return b.ID == id })
	if i < 0 {
		return domain.Budget{}, false
	}
	return s.Budgets[i], true
}

// BudgetsForUser returns userID's budgets, or all of them for
// domain.AllUsers.
func (s Snapshot) BudgetsForUser(userID string) []domain.Budget {
	return filter(s.Budgets, userID, func(b domain.Budget) string { return b.UserID })
}

// Investment returns the holding with the given id.
func (s Snapshot) Investment(id string) (domain.Investment, bool) {
	i := slices.IndexFunc(s.Investments, func(v domain.Investment) bool { return v.ID == id })
	if i < 0 {
		return domain.Investment{}, false
	}
	return s.Investments[i], true
}

// InvestmentsForUser returns userID's holdings, or all of them for
// domain.AllUsers.
func (s Snapshot) InvestmentsForUser(userID string) []domain.Investment {
	return filter(s.Investments, userID, func(v domain.Investment) string { return v.UserID })
}

// WithLedger returns a copy of s with the transaction list and account
// balances replaced. It is the only way balances change.
func (s Snapshot) WithLedger(transactions []domain.Transaction, balances map[string]decimal.Decimal) Snapshot {
	accounts := slices.Clone(s.Accounts)
	for i := range accounts {
		if b, ok := balances[accounts[i].ID]; ok {
			accounts[i].Balance = b
		}
	}
	s.Accounts = accounts
	s.Transactions = transactions
	return s
}

// Balances returns the current balance of every account keyed by id.
func (s Snapshot) Balances() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(s.Accounts))
	for _, a := range s.Accounts {
		m[a.ID] = a.Balance
	}
	return m
}

func filter[T any](items []T, userID string, owner func(T) string) []T {
	if userID == domain.AllUsers {
		return slices.Clone(items)
	}
	var out []T
	for _, it := range items {
		if owner(it) == userID {
			out = append(out, it)
		}
	}
	return out
}
