package persist

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

// document is the persisted layout. Toasts and chat history are never part
// of it.
type document struct {
	Users        []domain.User       `json:"users"`
	Transactions []domain.Record     `json:"transactions"`
	Accounts     []accountRecord     `json:"accounts"`
	Budgets      []domain.Budget     `json:"budgets"`
	Investments  []domain.Investment `json:"investments"`
	Categories   []domain.Category   `json:"categories"`
	CurrentUser  string              `json:"currentUser"`
	Theme        domain.Theme        `json:"theme"`
	Revision     int64               `json:"revision,omitempty"`
}

// accountRecord allows documents written before opening balances were
// recorded; those get an opening balance derived on load.
type accountRecord struct {
	ID             string             `json:"id"`
	UserID         string             `json:"userId"`
	Name           string             `json:"name"`
	Type           domain.AccountType `json:"type"`
	Balance        decimal.Decimal    `json:"balance"`
	OpeningBalance *decimal.Decimal   `json:"openingBalance,omitempty"`
}

// Encode serializes s.
func Encode(s store.Snapshot) ([]byte, error) {
	doc := document{
		Users:        nonNil(s.Users),
		Transactions: make([]domain.Record, 0, len(s.Transactions)),
		Accounts:     make([]accountRecord, 0, len(s.Accounts)),
		Budgets:      nonNil(s.Budgets),
		Investments:  nonNil(s.Investments),
		Categories:   nonNil(s.Categories),
		CurrentUser:  s.CurrentUser,
		Theme:        s.Theme,
		Revision:     s.Revision,
	}
	for _, t := range s.Transactions {
		doc.Transactions = append(doc.Transactions, t.Record())
	}
	for _, a := range s.Accounts {
		opening := a.OpeningBalance
		doc.Accounts = append(doc.Accounts, accountRecord{
			ID: a.ID, UserID: a.UserID, Name: a.Name, Type: a.Type,
			Balance: a.Balance, OpeningBalance: &opening,
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("Encode: %w", err)
	}
	return data, nil
}

// Decode parses a document written by Encode or by an older version that
// lacked opening balances and revisions.
func Decode(data []byte) (store.Snapshot, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return store.Snapshot{}, fmt.Errorf("Decode: parsing document: %w", err)
	}

	s := store.Snapshot{
		Users:       doc.Users,
		Budgets:     doc.Budgets,
		Investments: doc.Investments,
		Categories:  doc.Categories,
		CurrentUser: doc.CurrentUser,
		Theme:       doc.Theme,
		Revision:    doc.Revision,
	}
	if s.CurrentUser == "" {
		s.CurrentUser = domain.AllUsers
	}
	if s.Theme != domain.ThemeDark {
		s.Theme = domain.ThemeLight
	}

	s.Transactions = make([]domain.Transaction, 0, len(doc.Transactions))
	for i, r := range doc.Transactions {
		tx, err := r.Transaction()
		if err != nil {
			return store.Snapshot{}, fmt.Errorf("Decode: transaction %d (%s): %w", i, r.ID, err)
		}
		s.Transactions = append(s.Transactions, tx)
	}

	legacy := false
	s.Accounts = make([]domain.Account, 0, len(doc.Accounts))
	for _, a := range doc.Accounts {
		acc := domain.Account{ID: a.ID, UserID: a.UserID, Name: a.Name, Type: a.Type, Balance: a.Balance}
		if a.OpeningBalance != nil {
			acc.OpeningBalance = *a.OpeningBalance
		} else {
			legacy = true
		}
		s.Accounts = append(s.Accounts, acc)
	}
	if legacy {
		s = s.DeriveOpeningBalances()
		for i, a := range doc.Accounts {
			if a.OpeningBalance != nil {
				s.Accounts[i].OpeningBalance = *a.OpeningBalance
			}
		}
	}
	return s, nil
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
