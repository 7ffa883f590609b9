package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/household-ledger/internal/store"
)

// Discrepancy is an account whose stored balance differs from its opening
// balance plus the effects of its transactions.
type Discrepancy struct {
	AccountID string          `json:"accountId"`
	Expected  decimal.Decimal `json:"expected"`
	Actual    decimal.Decimal `json:"actual"`
}

// Audit recomputes every balance from scratch. A snapshot produced only by
// the engine has no discrepancies.
func Audit(s store.Snapshot) []Discrepancy {
	expected := make(map[string]decimal.Decimal, len(s.Accounts))
	for _, a := range s.Accounts {
		expected[a.ID] = a.OpeningBalance
	}
	for _, t := range s.Transactions {
		post(expected, t, false)
	}

	var out []Discrepancy
	for _, a := range s.Accounts {
		if !a.Balance.Equal(expected[a.ID]) {
			out = append(out, Discrepancy{AccountID: a.ID, Expected: expected[a.ID], Actual: a.Balance})
		}
	}
	return out
}

// Rebuild returns s with every balance recomputed from opening balances.
func Rebuild(s store.Snapshot) store.Snapshot {
	balances := make(map[string]decimal.Decimal, len(s.Accounts))
	for _, a := range s.Accounts {
		balances[a.ID] = a.OpeningBalance
	}
	for _, t := range s.Transactions {
		post(balances, t, false)
	}
	return s.WithLedger(s.Transactions, balances)
}
