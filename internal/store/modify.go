package store

import (
	"slices"
	"strings"

	"github.com/dvloznov/household-ledger/internal/domain"
)

// AddAccount appends a new account. Its Balance is taken as the opening
// balance.
func (s Snapshot) AddAccount(a domain.Account) (Snapshot, error) {
	if err := s.checkAccount(a); err != nil {
		return s, err
	}
	if _, exists := s.Account(a.ID); exists {
		return s, domain.NewValidationError("id", "account "+a.ID+" already exists")
	}
	a.OpeningBalance = a.Balance
	s.Accounts = append(slices.Clone(s.Accounts), a)
	return s, nil
}

// UpdateAccount changes an account's name, type and owner. The stored
// balance and opening balance are kept whatever the caller sends.
func (s Snapshot) UpdateAccount(a domain.Account) (Snapshot, error) {
	if err := s.checkAccount(a); err != nil {
		return s, err
	}
	i := s.accountIndex(a.ID)
	if i < 0 {
		return s, domain.NotFound("account", a.ID)
	}
	accounts := slices.Clone(s.Accounts)
	accounts[i].Name = a.Name
	accounts[i].Type = a.Type
	accounts[i].UserID = a.UserID
	s.Accounts = accounts
	return s, nil
}

// UpsertAccount adds a or, when an account with its id exists, updates it.
func (s Snapshot) UpsertAccount(a domain.Account) (Snapshot, error) {
	if _, exists := s.Account(a.ID); exists {
		return s.UpdateAccount(a)
	}
	return s.AddAccount(a)
}

func (s Snapshot) checkAccount(a domain.Account) error {
	switch {
	case a.ID == "":
		return domain.NewValidationError("id", "required")
	case strings.TrimSpace(a.Name) == "":
		return domain.NewValidationError("name", "required")
	case !a.Type.Valid():
		return domain.NewValidationError("type", "must be Bank, E-Wallet, Cash or Investment")
	}
	if _, ok := s.User(a.UserID); !ok {
		return domain.NotFound("user", a.UserID)
	}
	return nil
}

// RemoveAccount deletes an account no transaction references.
func (s Snapshot) RemoveAccount(id string) (Snapshot, error) {
	i := s.accountIndex(id)
	if i < 0 {
		return s, domain.NotFound("account", id)
	}
	if refs := s.AccountReferences(id); len(refs) > 0 {
		return s, &domain.ReferentialIntegrityError{Entity: "account", ID: id, ReferencedBy: refs}
	}
	s.Accounts = slices.Delete(slices.Clone(s.Accounts), i, i+1)
	return s, nil
}

func checkCategory(c domain.Category) error {
	switch {
	case c.ID == "":
		return domain.NewValidationError("id", "required")
	case strings.TrimSpace(c.Name) == "":
		return domain.NewValidationError("name", "required")
	case c.Type != domain.TypeIncome && c.Type != domain.TypeExpense:
		return domain.NewValidationError("type", "categories are Income or Expense")
	case c.Name == domain.TransferCategory:
		return domain.NewValidationError("name", "Transfer is reserved")
	}
	return nil
}

// AddCategory appends a category.
func (s Snapshot) AddCategory(c domain.Category) (Snapshot, error) {
	if err := checkCategory(c); err != nil {
		return s, err
	}
	if _, exists := s.Category(c.ID); exists {
		return s, domain.NewValidationError("id", "category "+c.ID+" already exists")
	}
	s.Categories = append(slices.Clone(s.Categories), c)
	return s, nil
}

// UpdateCategory replaces a category. Transactions keep the label they were
// recorded with.
func (s Snapshot) UpdateCategory(c domain.Category) (Snapshot, error) {
	if err := checkCategory(c); err != nil {
		return s, err
	}
	i := slices.IndexFunc(s.Categories, func(x domain.Category) bool { return x.ID == c.ID })
	if i < 0 {
		return s, domain.NotFound("category", c.ID)
	}
	cats := slices.Clone(s.Categories)
	cats[i] = c
	s.Categories = cats
	return s, nil
}

// RemoveCategory deletes a category. Transactions and budgets that use its
// name are left as they are.
func (s Snapshot) RemoveCategory(id string) (Snapshot, error) {
	i := slices.IndexFunc(s.Categories, func(x domain.Category) bool { return x.ID == id })
	if i < 0 {
		return s, domain.NotFound("category", id)
	}
	s.Categories = slices.Delete(slices.Clone(s.Categories), i, i+1)
	return s, nil
}

// UpdateUsers renames users. The set of ids cannot change.
func (s Snapshot) UpdateUsers(users []domain.User) (Snapshot, error) {
	if len(users) != len(s.Users) {
		return s, domain.NewValidationError("users", "users can be renamed but not added or removed")
	}
	seen := make(map[string]bool, len(users))
	for _, u := range users {
		if _, ok := s.User(u.ID); !ok || seen[u.ID] {
			return s, domain.NewValidationError("users", "unknown or duplicate user "+u.ID)
		}
		if strings.TrimSpace(u.Name) == "" {
			return s, domain.NewValidationError("name", "required")
		}
		seen[u.ID] = true
	}
	s.Users = slices.Clone(users)
	return s, nil
}

// SetCurrentUser selects the active view: a user id or domain.AllUsers.
func (s Snapshot) SetCurrentUser(id string) (Snapshot, error) {
	if id != domain.AllUsers {
		if _, ok := s.User(id); !ok {
			return s, domain.NotFound("user", id)
		}
	}
	s.CurrentUser = id
	return s, nil
}

// ToggleTheme flips between the light and dark themes.
func (s Snapshot) ToggleTheme() Snapshot {
	if s.Theme == domain.ThemeDark {
		s.Theme = domain.ThemeLight
	} else {
		s.Theme = domain.ThemeDark
	}
	return s
}

// UpsertBudget adds or replaces a budget.
func (s Snapshot) UpsertBudget(b domain.Budget) (Snapshot, error) {
	switch {
	case b.ID == "":
		return s, domain.NewValidationError("id", "required")
	case b.Category == "":
		return s, domain.NewValidationError("category", "required")
	case b.Amount.IsNegative():
		return s, domain.NewValidationError("amount", "must not be negative")
	case b.Period != domain.PeriodMonthly && b.Period != domain.PeriodYearly:
		return s, domain.NewValidationError("period", "must be Monthly or Yearly")
	}
	if _, ok := s.User(b.UserID); !ok {
		return s, domain.NotFound("user", b.UserID)
	}
	budgets := slices.Clone(s.Budgets)
	if i := slices.IndexFunc(budgets, func(x domain.Budget) bool { return x.ID == b.ID }); i >= 0 {
		budgets[i] = b
	} else {
		budgets = append(budgets, b)
	}
	s.Budgets = budgets
	return s, nil
}

// RemoveBudget deletes a budget.
func (s Snapshot) RemoveBudget(id string) (Snapshot, error) {
	i := slices.IndexFunc(s.Budgets, func(x domain.Budget) bool { return x.ID == id })
	if i < 0 {
		return s, domain.NotFound("budget", id)
	}
	s.Budgets = slices.Delete(slices.Clone(s.Budgets), i, i+1)
	return s, nil
}

// UpsertInvestment adds or replaces a holding.
func (s Snapshot) UpsertInvestment(v domain.Investment) (Snapshot, error) {
	switch {
	case v.ID == "":
		return s, domain.NewValidationError("id", "required")
	case strings.TrimSpace(v.Name) == "":
		return s, domain.NewValidationError("name", "required")
	case v.Quantity.IsNegative() || v.PurchasePrice.IsNegative() || v.CurrentPrice.IsNegative():
		return s, domain.NewValidationError("quantity", "quantities and prices must not be negative")
	}
	if _, ok := s.User(v.UserID); !ok {
		return s, domain.NotFound("user", v.UserID)
	}
	invs := slices.Clone(s.Investments)
	if i := slices.IndexFunc(invs, func(x domain.Investment) bool { return x.ID == v.ID }); i >= 0 {
		invs[i] = v
	} else {
		invs = append(invs, v)
	}
	s.Investments = invs
	return s, nil
}

// RemoveInvestment deletes a holding.
func (s Snapshot) RemoveInvestment(id string) (Snapshot, error) {
	i := slices.IndexFunc(s.Investments, func(x domain.Investment) bool { return x.ID == id })
	if i < 0 {
		return s, domain.NotFound("investment", id)
	}
	s.Investments = slices.Delete(slices.Clone(s.Investments), i, i+1)
	return s, nil
}
