package ledger

import (
	"strings"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

// CheckTransaction applies the request-level rules a manual or AI-proposed
// transaction must satisfy before it reaches the engine. The engine itself
// accepts a zero amount; requests do not.
func CheckTransaction(s store.Snapshot, tx domain.Transaction) error {
	if tx == nil {
		return domain.NewValidationError("transaction", "required")
	}
	b := tx.Common()
	switch {
	case !b.Amount.IsPositive():
		return domain.NewValidationError("amount", "must be greater than zero")
	case strings.TrimSpace(b.Description) == "":
		return domain.NewValidationError("description", "required")
	case b.UserID == "":
		return domain.NewValidationError("userId", "required")
	}
	if _, ok := s.User(b.UserID); !ok {
		return domain.NotFound("user", b.UserID)
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.Type() != domain.TypeTransfer && strings.TrimSpace(tx.CategoryName()) == "" {
		return domain.NewValidationError("category", "required")
	}
	for _, id := range tx.Accounts() {
		if _, ok := s.Account(id); !ok {
			return domain.NotFound("account", id)
		}
	}
	return nil
}
