package domain

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the single currency every amount in the ledger is held in.
const Currency = money.IDR

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// FormatMoney renders d in the ledger currency, e.g. for exports and CLI
// output.
func FormatMoney(d decimal.Decimal) string {
	cur := money.New(0, Currency).Currency()
	return cur.Formatter().Format(d.Shift(int32(cur.Fraction)).IntPart())
}

// ParseAmount parses a decimal amount from user input.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "not a number", Err: err}
	}
	return d, nil
}
