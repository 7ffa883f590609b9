// Package ledger implements balance reconciliation: the pure transitions that
// keep every account balance equal to its opening balance plus the effects
// of the transactions that reference it.
package ledger

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

// Add records tx as the newest transaction and applies its legs.
func Add(s store.Snapshot, tx domain.Transaction) (store.Snapshot, error) {
	if err := checkShape(s, tx); err != nil {
		return s, err
	}
	if _, exists := s.Transaction(tx.Common().ID); exists {
		return s, domain.NewValidationError("id", "transaction "+tx.Common().ID+" already exists")
	}

	balances := s.Balances()
	post(balances, tx, false)

	txs := make([]domain.Transaction, 0, len(s.Transactions)+1)
	txs = append(txs, tx)
	txs = append(txs, s.Transactions...)
	return s.WithLedger(txs, balances), nil
}

// Update replaces old with updated. The stored version of old is reversed in
// full and updated is applied in full, so changes of type, amount or
// accounts all reconcile the same way. old must still match the stored
// transaction; otherwise the update is rejected with domain.ErrStale.
func Update(s store.Snapshot, old, updated domain.Transaction) (store.Snapshot, error) {
	if old == nil || updated == nil {
		return s, domain.NewValidationError("transaction", "required")
	}
	id := old.Common().ID
	if updated.Common().ID != id {
		return s, domain.NewValidationError("id", "an update cannot change the transaction id")
	}
	stored, idx, err := lookup(s, old)
	if err != nil {
		return s, err
	}
	if err := checkShape(s, updated); err != nil {
		return s, err
	}

	balances := s.Balances()
	post(balances, stored, true)
	post(balances, updated, false)

	txs := slices.Clone(s.Transactions)
	txs[idx] = updated
	return s.WithLedger(txs, balances), nil
}

// Delete removes tx and reverses its legs.
func Delete(s store.Snapshot, tx domain.Transaction) (store.Snapshot, error) {
	if tx == nil {
		return s, domain.NewValidationError("transaction", "required")
	}
	stored, idx, err := lookup(s, tx)
	if err != nil {
		return s, err
	}

	balances := s.Balances()
	post(balances, stored, true)

	txs := slices.Delete(slices.Clone(s.Transactions), idx, idx+1)
	return s.WithLedger(txs, balances), nil
}

// lookup finds the stored transaction the caller refers to and checks the
// caller's copy has the same balance effect.
func lookup(s store.Snapshot, tx domain.Transaction) (domain.Transaction, int, error) {
	id := tx.Common().ID
	idx := slices.IndexFunc(s.Transactions, func(t domain.Transaction) bool { return t.Common().ID == id })
	if idx < 0 {
		return nil, -1, domain.NotFound("transaction", id)
	}
	stored := s.Transactions[idx]
	if !domain.SameEffect(stored, tx) {
		return nil, -1, &domain.ValidationError{Field: "transaction", Message: id, Err: domain.ErrStale}
	}
	return stored, idx, nil
}

func checkShape(s store.Snapshot, tx domain.Transaction) error {
	if tx == nil {
		return domain.NewValidationError("transaction", "required")
	}
	if tx.Common().ID == "" {
		return domain.NewValidationError("id", "required")
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	for _, id := range tx.Accounts() {
		if _, ok := s.Account(id); !ok {
			return domain.NotFound("account", id)
		}
	}
	return nil
}

// post adds the legs of tx to balances, or subtracts them when reverse is
// set.
func post(balances map[string]decimal.Decimal, tx domain.Transaction, reverse bool) {
	for _, leg := range tx.Legs() {
		delta := leg.Delta
		if reverse {
			delta = delta.Neg()
		}
		balances[leg.AccountID] = balances[leg.AccountID].Add(delta)
	}
}
