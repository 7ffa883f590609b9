package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	UserID   string `bigquery:"user_id"`   // REQUIRED
	UserName string `bigquery:"user_name"` // REQUIRED

	AccountID            string              `bigquery:"account_id"`             // REQUIRED, source account for transfers
	DestinationAccountID bigquery.NullString `bigquery:"destination_account_id"` // NULLABLE, transfers only

	Type     string `bigquery:"type"`     // REQUIRED: Income | Expense | Transfer
	Category string `bigquery:"category"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	BookedTS        time.Time  `bigquery:"booked_ts"`        // REQUIRED

	Amount       *big.Rat `bigquery:"amount"`        // REQUIRED NUMERIC, always positive
	SignedAmount *big.Rat `bigquery:"signed_amount"` // REQUIRED NUMERIC, negative for expenses, zero for transfers
	Currency     string   `bigquery:"currency"`      // REQUIRED

	Description string   `bigquery:"description"` // REQUIRED
	Tags        []string `bigquery:"tags"`        // REPEATED STRING

	Revision int64     `bigquery:"revision"`  // REQUIRED
	SyncedTS time.Time `bigquery:"synced_ts"` // REQUIRED
}

type AccountRow struct {
	AccountID   string `bigquery:"account_id"`   // REQUIRED
	UserID      string `bigquery:"user_id"`      // REQUIRED
	AccountName string `bigquery:"account_name"` // REQUIRED
	AccountType string `bigquery:"account_type"` // REQUIRED
	Currency    string `bigquery:"currency"`     // REQUIRED

	Balance        *big.Rat `bigquery:"balance"`         // REQUIRED NUMERIC
	OpeningBalance *big.Rat `bigquery:"opening_balance"` // REQUIRED NUMERIC

	Revision int64     `bigquery:"revision"`  // REQUIRED
	SyncedTS time.Time `bigquery:"synced_ts"` // REQUIRED
}

type CategoryRow struct {
	CategoryID string `bigquery:"category_id"` // REQUIRED
	Name       string `bigquery:"name"`        // REQUIRED
	Type       string `bigquery:"type"`        // REQUIRED: Income | Expense

	Revision int64     `bigquery:"revision"`  // REQUIRED
	SyncedTS time.Time `bigquery:"synced_ts"` // REQUIRED
}

// TransactionRows flattens the snapshot's transactions.
func TransactionRows(s store.Snapshot, syncedAt time.Time) []*TransactionRow {
	rows := make([]*TransactionRow, 0, len(s.Transactions))
	for _, tx := range s.Transactions {
		r := tx.Record()
		row := &TransactionRow{
			TransactionID:   r.ID,
			UserID:          r.UserID,
			UserName:        s.UserName(r.UserID),
			AccountID:       r.AccountID,
			Type:            string(r.Type),
			Category:        r.Category,
			TransactionDate: civil.DateOf(r.Date),
			BookedTS:        r.Date,
			Amount:          r.Amount.Rat(),
			SignedAmount:    signed(tx).Rat(),
			Currency:        domain.Currency,
			Description:     r.Description,
			Tags:            r.Tags,
			Revision:        s.Revision,
			SyncedTS:        syncedAt,
		}
		if r.DestinationAccountID != "" {
			row.DestinationAccountID = bigquery.NullString{StringVal: r.DestinationAccountID, Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}

// signed is the transaction's net effect on the owner's total balance.
func signed(tx domain.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, leg := range tx.Legs() {
		sum = sum.Add(leg.Delta)
	}
	return sum
}

// AccountRows flattens the snapshot's accounts.
func AccountRows(s store.Snapshot, syncedAt time.Time) []*AccountRow {
	rows := make([]*AccountRow, 0, len(s.Accounts))
	for _, a := range s.Accounts {
		rows = append(rows, &AccountRow{
			AccountID:      a.ID,
			UserID:         a.UserID,
			AccountName:    a.Name,
			AccountType:    string(a.Type),
			Currency:       domain.Currency,
			Balance:        a.Balance.Rat(),
			OpeningBalance: a.OpeningBalance.Rat(),
			Revision:       s.Revision,
			SyncedTS:       syncedAt,
		})
	}
	return rows
}

// CategoryRows flattens the snapshot's categories.
func CategoryRows(s store.Snapshot, syncedAt time.Time) []*CategoryRow {
	rows := make([]*CategoryRow, 0, len(s.Categories))
	for _, c := range s.Categories {
		rows = append(rows, &CategoryRow{
			CategoryID: c.ID,
			Name:       c.Name,
			Type:       string(c.Type),
			Revision:   s.Revision,
			SyncedTS:   syncedAt,
		})
	}
	return rows
}
