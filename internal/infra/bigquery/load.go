package bigquery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
)

// timestampFormat is the microsecond precision BigQuery TIMESTAMP keeps.
const timestampFormat = "2006-01-02T15:04:05.999999Z07:00"

func numeric(r *big.Rat) string {
	if r == nil {
		return "0"
	}
	return bigquery.NumericString(r)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func (r *TransactionRow) loadValues() map[string]any {
	var dest any
	if r.DestinationAccountID.Valid {
		dest = r.DestinationAccountID.StringVal
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"transaction_id":         r.TransactionID,
		"user_id":                r.UserID,
		"user_name":              r.UserName,
		"account_id":             r.AccountID,
		"destination_account_id": dest,
		"type":                   r.Type,
		"category":               r.Category,
		"transaction_date":       r.TransactionDate.String(),
		"booked_ts":              timestamp(r.BookedTS),
		"amount":                 numeric(r.Amount),
		"signed_amount":          numeric(r.SignedAmount),
		"currency":               r.Currency,
		"description":            r.Description,
		"tags":                   tags,
		"revision":               r.Revision,
		"synced_ts":              timestamp(r.SyncedTS),
	}
}

func (r *AccountRow) loadValues() map[string]any {
	return map[string]any{
		"account_id":      r.AccountID,
		"user_id":         r.UserID,
		"account_name":    r.AccountName,
		"account_type":    r.AccountType,
		"currency":        r.Currency,
		"balance":         numeric(r.Balance),
		"opening_balance": numeric(r.OpeningBalance),
		"revision":        r.Revision,
		"synced_ts":       timestamp(r.SyncedTS),
	}
}

func (r *CategoryRow) loadValues() map[string]any {
	return map[string]any{
		"category_id": r.CategoryID,
		"name":        r.Name,
		"type":        r.Type,
		"revision":    r.Revision,
		"synced_ts":   timestamp(r.SyncedTS),
	}
}

type loadable interface {
	loadValues() map[string]any
}

// newlineJSON encodes rows in the newline-delimited JSON a load job reads.
func newlineJSON[T loadable](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, r := range rows {
		if err := enc.Encode(r.loadValues()); err != nil {
			return nil, fmt.Errorf("encoding row %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
