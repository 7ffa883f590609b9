package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransaction(t *testing.T) {
	date := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	base := Record{
		ID:          "txn1",
		UserID:      "user1",
		AccountID:   "acc1",
		Amount:      decimal.NewFromInt(250),
		Description: "Lunch",
		Date:        date,
	}

	tests := []struct {
		name    string
		mutate  func(r *Record)
		want    Transaction
		wantErr string
	}{
		{
			name: "income",
			mutate: func(r *Record) {
				r.Type = TypeIncome
				r.Category = "Gaji"
			},
			want: Income{Base: Base{ID: "txn1", UserID: "user1", Amount: decimal.NewFromInt(250), Description: "Lunch", Date: date}, AccountID: "acc1", Category: "Gaji"},
		},
		{
			name: "expense",
			mutate: func(r *Record) {
				r.Type = TypeExpense
				r.Category = "Makanan & Minuman"
			},
			want: Expense{Base: Base{ID: "txn1", UserID: "user1", Amount: decimal.NewFromInt(250), Description: "Lunch", Date: date}, AccountID: "acc1", Category: "Makanan & Minuman"},
		},
		{
			name: "transfer forces category",
			mutate: func(r *Record) {
				r.Type = TypeTransfer
				r.Category = "Hiburan"
				r.DestinationAccountID = "acc2"
			},
			want: Transfer{Base: Base{ID: "txn1", UserID: "user1", Amount: decimal.NewFromInt(250), Description: "Lunch", Date: date}, FromAccountID: "acc1", ToAccountID: "acc2"},
		},
		{
			name: "expense with destination",
			mutate: func(r *Record) {
				r.Type = TypeExpense
				r.DestinationAccountID = "acc2"
			},
			wantErr: "destinationAccountId",
		},
		{
			name:    "transfer without destination",
			mutate:  func(r *Record) { r.Type = TypeTransfer },
			wantErr: "destinationAccountId",
		},
		{
			name: "transfer to same account",
			mutate: func(r *Record) {
				r.Type = TypeTransfer
				r.DestinationAccountID = "acc1"
			},
			wantErr: "must differ",
		},
		{
			name: "negative amount",
			mutate: func(r *Record) {
				r.Type = TypeIncome
				r.Amount = decimal.NewFromInt(-1)
			},
			wantErr: "amount",
		},
		{
			name:    "unknown type",
			mutate:  func(r *Record) { r.Type = "Refund" },
			wantErr: "type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base
			tt.mutate(&rec)
			got, err := rec.Transaction()
			if tt.wantErr != "" {
				require.Error(t, err)
				var verr *ValidationError
				assert.True(t, errors.As(err, &verr))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.CategoryName(), got.Record().Category)
		})
	}
}

func TestLegs(t *testing.T) {
	amount := decimal.NewFromInt(150)
	b := Base{ID: "t", UserID: "u", Amount: amount}

	assert.Equal(t, []Leg{{AccountID: "a", Delta: amount}}, Income{Base: b, AccountID: "a"}.Legs())
	assert.Equal(t, []Leg{{AccountID: "a", Delta: amount.Neg()}}, Expense{Base: b, AccountID: "a"}.Legs())

	legs := Transfer{Base: b, FromAccountID: "a", ToAccountID: "b"}.Legs()
	require.Len(t, legs, 2)
	assert.True(t, legs[0].Delta.Add(legs[1].Delta).IsZero(), "transfer legs must net to zero")
}

func TestRecordRoundTripKeepsTags(t *testing.T) {
	tx := Expense{Base: Base{ID: "t", UserID: "u", Amount: decimal.NewFromInt(5), Tags: []string{"ai-generated"}}, AccountID: "a", Category: "Hiburan"}
	back, err := tx.Record().Transaction()
	require.NoError(t, err)
	assert.Equal(t, []string{"ai-generated"}, back.Common().Tags)

	empty := Income{Base: Base{ID: "t", UserID: "u"}, AccountID: "a"}.Record()
	assert.NotNil(t, empty.Tags)
}

func TestSameEffect(t *testing.T) {
	b := Base{ID: "t", UserID: "u", Amount: decimal.NewFromInt(100)}
	a := Expense{Base: b, AccountID: "acc1", Category: "Hiburan"}

	renamed := a
	renamed.Description = "renamed"
	renamed.Category = "Tagihan"
	assert.True(t, SameEffect(a, renamed))

	moved := a
	moved.AccountID = "acc2"
	assert.False(t, SameEffect(a, moved))

	assert.False(t, SameEffect(a, Income{Base: b, AccountID: "acc1"}))
	assert.True(t, Touches(Transfer{Base: b, FromAccountID: "x", ToAccountID: "acc1"}, "acc1"))
}

func TestInvestmentValue(t *testing.T) {
	inv := Investment{Quantity: decimal.NewFromInt(100), PurchasePrice: decimal.NewFromInt(9000), CurrentPrice: decimal.NewFromInt(9500)}
	assert.True(t, inv.Value().Equal(decimal.NewFromInt(950000)))
	assert.True(t, inv.CostBasis().Equal(decimal.NewFromInt(900000)))
	assert.True(t, inv.Gain().Equal(decimal.NewFromInt(50000)))
}

func TestErrors(t *testing.T) {
	err := NotFound("transaction", "txn9")
	assert.True(t, errors.Is(err, ErrNotFound))

	ext := External("gemini", "chat", errors.New("boom"))
	assert.True(t, IsRetryable(ext))
	assert.Same(t, ext, External("storage", "save", ext))
	assert.Nil(t, External("gemini", "chat", nil))
	assert.False(t, IsRetryable(err))

	ref := &ReferentialIntegrityError{Entity: "account", ID: "acc1", ReferencedBy: []string{"txn1", "txn2"}}
	assert.Equal(t, "account acc1 is referenced by 2 transaction(s)", ref.Error())
}

func TestFormatMoney(t *testing.T) {
	assert.NotEmpty(t, FormatMoney(decimal.NewFromInt(1500000)))
	assert.NotEqual(t, FormatMoney(decimal.NewFromInt(1)), FormatMoney(decimal.NewFromInt(2)))

	_, err := ParseAmount("abc")
	assert.Error(t, err)
	d, err := ParseAmount("12.50")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("12.5")))
}
