package ledger

import (
	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

// Mutation is a request to change the ledger. Manual edits and confirmed AI
// proposals produce the same variants.
type Mutation interface {
	// Kind names the mutation for logs and job records.
	Kind() string
	apply(s store.Snapshot) (store.Snapshot, error)
}

// Apply is the single state transition: it returns the snapshot that
// results from m, or s unchanged and an error.
func Apply(s store.Snapshot, m Mutation) (store.Snapshot, error) {
	if m == nil {
		return s, domain.NewValidationError("mutation", "required")
	}
	return m.apply(s)
}

type AddTransaction struct{ Transaction domain.Transaction }

// UpdateTransaction replaces Old with New. Old only has to match the stored
// transaction's balance effect unless Exact is set, in which case every
// field must still match.
type UpdateTransaction struct {
	Old, New domain.Transaction
	Exact    bool
}

type DeleteTransaction struct{ Transaction domain.Transaction }

type AddAccount struct{ Account domain.Account }

type UpdateAccount struct{ Account domain.Account }

type DeleteAccount struct{ ID string }

type AddCategory struct{ Category domain.Category }

type UpdateCategory struct{ Category domain.Category }

type DeleteCategory struct{ ID string }

type UpdateUsers struct{ Users []domain.User }

type SetCurrentUser struct{ UserID string }

type ToggleTheme struct{}

type UpsertBudget struct{ Budget domain.Budget }

type DeleteBudget struct{ ID string }

type UpsertInvestment struct{ Investment domain.Investment }

type DeleteInvestment struct{ ID string }

func (AddTransaction) Kind() string { return "add_transaction" }
func (UpdateTransaction) Kind() string { return "update_transaction" }
func (DeleteTransaction) Kind() string { return "delete_transaction" }
func (AddAccount) Kind() string { return "add_account" }
func (UpdateAccount) Kind() string { return "update_account" }
func (DeleteAccount) Kind() string { return "delete_account" }
func (AddCategory) Kind() string { return "add_category" }
func (UpdateCategory) Kind() string { return "update_category" }
func (DeleteCategory) Kind() string { return "delete_category" }
func (UpdateUsers) Kind() string { return "update_users" }
func (SetCurrentUser) Kind() string { return "set_current_user" }
func (ToggleTheme) Kind() string { return "toggle_theme" }
func (UpsertBudget) Kind() string { return "upsert_budget" }
func (DeleteBudget) Kind() string { return "delete_budget" }
func (UpsertInvestment) Kind() string { return "upsert_investment" }
func (DeleteInvestment) Kind() string { return "delete_investment" }

func (m AddTransaction) apply(s store.Snapshot) (store.Snapshot, error) {
	if err := CheckTransaction(s, m.Transaction); err != nil {
		return s, err
	}
	return Add(s, m.Transaction)
}

func (m UpdateTransaction) apply(s store.Snapshot) (store.Snapshot, error) {
	if err := CheckTransaction(s, m.New); err != nil {
		return s, err
	}
	if m.Exact {
		id := m.Old.Common().ID
		if stored, ok := s.Transaction(id); ok && !domain.SameRecord(stored, m.Old) {
			return s, &domain.ValidationError{Field: "transaction", Message: id + " changed since it was read", Err: domain.ErrStale}
		}
	}
	return Update(s, m.Old, m.New)
}

func (m DeleteTransaction) apply(s store.Snapshot) (store.Snapshot, error) {
	return Delete(s, m.Transaction)
}

func (m AddAccount) apply(s store.Snapshot) (store.Snapshot, error) { return s.AddAccount(m.Account) }
func (m UpdateAccount) apply(s store.Snapshot) (store.Snapshot, error) { return s.UpdateAccount(m.Account) }
func (m DeleteAccount) apply(s store.Snapshot) (store.Snapshot, error) { return s.RemoveAccount(m.ID) }
func (m AddCategory) apply(s store.Snapshot) (store.Snapshot, error) { return s.AddCategory(m.Category) }
func (m UpdateCategory) apply(s store.Snapshot) (store.Snapshot, error) {
	return s.UpdateCategory(m.Category)
}
func (m DeleteCategory) apply(s store.Snapshot) (store.Snapshot, error) { return s.RemoveCategory(m.ID) }
func (m UpdateUsers) apply(s store.Snapshot) (store.Snapshot, error) { return s.UpdateUsers(m.Users) }
func (m SetCurrentUser) apply(s store.Snapshot) (store.Snapshot, error) {
	return s.SetCurrentUser(m.UserID)
}
func (ToggleTheme) apply(s store.Snapshot) (store.Snapshot, error) { return s.ToggleTheme(), nil }
func (m UpsertBudget) apply(s store.Snapshot) (store.Snapshot, error) { return s.UpsertBudget(m.Budget) }
func (m DeleteBudget) apply(s store.Snapshot) (store.Snapshot, error) { return s.RemoveBudget(m.ID) }
func (m DeleteInvestment) apply(s store.Snapshot) (store.Snapshot, error) {
	return s.RemoveInvestment(m.ID)
}
func (m UpsertInvestment) apply(s store.Snapshot) (store.Snapshot, error) {
	return s.UpsertInvestment(m.Investment)
}
