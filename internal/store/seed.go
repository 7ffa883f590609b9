package store

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/household-ledger/internal/domain"
)

// Seed returns the first-run data set: two users, default categories, a few
// accounts with recent transactions, budgets and holdings. Transaction dates
// are placed in the month of now and the month before it.
func Seed(now time.Time) Snapshot {
	thisMonth := func(day int) time.Time {
		return time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, now.Location())
	}
	lastMonth := func(day int) time.Time {
		return time.Date(now.Year(), now.Month()-1, day, 0, 0, 0, 0, now.Location())
	}
	idr := decimal.NewFromInt
	base := func(id, user string, amount int64, desc string, date time.Time, tags ...string) domain.Base {
		return domain.Base{ID: id, UserID: user, Amount: idr(amount), Description: desc, Date: date, Tags: tags}
	}

	s := Snapshot{
		Users: []domain.User{
			{ID: "user1", Name: "Malvin"},
			{ID: "user2", Name: "Yovita"},
		},
		Categories: []domain.Category{
			{ID: "cat1", Name: "Gaji", Type: domain.TypeIncome},
			{ID: "cat2", Name: "Bonus", Type: domain.TypeIncome},
			{ID: "cat3", Name: "Kebutuhan", Type: domain.TypeExpense},
			{ID: "cat4", Name: "Transportasi", Type: domain.TypeExpense},
			{ID: "cat5", Name: "Hiburan", Type: domain.TypeExpense},
			{ID: "cat6", Name: "Makanan & Minuman", Type: domain.TypeExpense},
			{ID: "cat7", Name: "Tagihan", Type: domain.TypeExpense},
			{ID: "cat8", Name: "Pendidikan", Type: domain.TypeExpense},
		},
		Accounts: []domain.Account{
			{ID: "acc1", UserID: "user1", Name: "BCA Savings", Type: domain.AccountBank, Balance: idr(50000000)},
			{ID: "acc2", UserID: "user1", Name: "Gopay", Type: domain.AccountEWallet, Balance: idr(1500000)},
			{ID: "acc3", UserID: "user2", Name: "Mandiri Savings", Type: domain.AccountBank, Balance: idr(75000000)},
			{ID: "acc4", UserID: "user2", Name: "Cash", Type: domain.AccountCash, Balance: idr(500000)},
		},
		Transactions: []domain.Transaction{
			domain.Income{Base: base("txn1", "user1", 15000000, "Gaji Bulanan", thisMonth(1), "gaji"), AccountID: "acc1", Category: "Gaji"},
			domain.Income{Base: base("txn2", "user2", 20000000, "Gaji Bulanan", thisMonth(1), "gaji"), AccountID: "acc3", Category: "Gaji"},
			domain.Expense{Base: base("txn3", "user1", 2500000, "Belanja bulanan", thisMonth(5), "groceries"), AccountID: "acc2", Category: "Kebutuhan"},
			domain.Expense{Base: base("txn4", "user1", 1000000, "Bayar listrik & internet", thisMonth(10), "bills"), AccountID: "acc1", Category: "Tagihan"},
			domain.Expense{Base: base("txn5", "user2", 750000, "Bensin & tol", thisMonth(12), "transport"), AccountID: "acc4", Category: "Transportasi"},
			domain.Expense{Base: base("txn6", "user2", 500000, "Nonton bioskop", thisMonth(15), "movie", "leisure"), AccountID: "acc3", Category: "Hiburan"},
			domain.Income{Base: base("txn7", "user1", 14500000, "Gaji Bulan Lalu", lastMonth(1), "gaji"), AccountID: "acc1", Category: "Gaji"},
			domain.Expense{Base: base("txn8", "user1", 2300000, "Belanja bulanan lalu", lastMonth(5), "groceries"), AccountID: "acc2", Category: "Kebutuhan"},
		},
		Budgets: []domain.Budget{
			{ID: "bud1", UserID: "user1", Category: "Kebutuhan", Amount: idr(3000000), Period: domain.PeriodMonthly},
			{ID: "bud2", UserID: "user1", Category: "Hiburan", Amount: idr(1000000), Period: domain.PeriodMonthly},
			{ID: "bud3", UserID: "user2", Category: "Makanan & Minuman", Amount: idr(4000000), Period: domain.PeriodMonthly},
		},
		Investments: []domain.Investment{
			{ID: "inv1", UserID: "user1", Name: "BBCA Stock", Type: "Stock", Quantity: idr(100), PurchasePrice: idr(9000), CurrentPrice: idr(9500)},
			{ID: "inv2", UserID: "user1", Name: "Bitcoin", Type: "Crypto", Quantity: decimal.RequireFromString("0.01"), PurchasePrice: idr(800000000), CurrentPrice: idr(1000000000)},
			{ID: "inv3", UserID: "user2", Name: "BNI Mutual Fund", Type: "Mutual Fund", Quantity: idr(5000), PurchasePrice: idr(1500), CurrentPrice: idr(1550)},
		},
		CurrentUser: "user1",
		Theme:       domain.ThemeLight,
	}
	return s.DeriveOpeningBalances()
}

// DeriveOpeningBalances sets each account's opening balance to its current
// balance minus the effects of the stored transactions. It is used for data
// that predates opening balances being recorded.
func (s Snapshot) DeriveOpeningBalances() Snapshot {
	effects := make(map[string]decimal.Decimal)
	for _, t := range s.Transactions {
		for _, leg := range t.Legs() {
			effects[leg.AccountID] = effects[leg.AccountID].Add(leg.Delta)
		}
	}
	accounts := slices.Clone(s.Accounts)
	for i := range accounts {
		accounts[i].OpeningBalance = accounts[i].Balance.Sub(effects[accounts[i].ID])
	}
	s.Accounts = accounts
	return s
}
