package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one of Income, Expense or Transfer. The variant decides
// which accounts are touched and how; a Transfer cannot exist without a
// destination and an Income or Expense cannot carry one.
type Transaction interface {
	// Common returns the fields shared by every variant.
	Common() Base
	Type() TransactionType
	// CategoryName is the category label; TransferCategory for transfers.
	CategoryName() string
	// Accounts lists the account ids this transaction references.
	Accounts() []string
	// Legs returns the signed balance effect on each touched account.
	Legs() []Leg
	// Validate checks the variant's shape. It does not consult the store.
	Validate() error
	// Record returns the flat persisted form.
	Record() Record

	isTransaction()
}

// Base holds the fields common to all transaction variants.
type Base struct {
	ID          string
	UserID      string
	Amount      decimal.Decimal
	Description string
	Date        time.Time
	Tags        []string
}

// Leg is the effect of a transaction on one account balance.
type Leg struct {
	AccountID string
	Delta     decimal.Decimal
}

// Income credits an account.
type Income struct {
	Base
	AccountID string
	Category  string
}

// Expense debits an account.
type Expense struct {
	Base
	AccountID string
	Category  string
}

// Transfer moves an amount between two distinct accounts.
type Transfer struct {
	Base
	FromAccountID string
	ToAccountID   string
}

func (t Income) Common() Base { return t.Base }
func (t Income) Type() TransactionType { return TypeIncome }
func (t Income) CategoryName() string { return t.Category }
func (t Income) Accounts() []string { return []string{t.AccountID} }
func (t Income) Legs() []Leg { return []Leg{{AccountID: t.AccountID, Delta: t.Amount}} }
func (Income) isTransaction() {}

func (t Expense) Common() Base { return t.Base }
func (t Expense) Type() TransactionType { return TypeExpense }
func (t Expense) CategoryName() string { return t.Category }
func (t Expense) Accounts() []string { return []string{t.AccountID} }
func (t Expense) Legs() []Leg { return []Leg{{AccountID: t.AccountID, Delta: t.Amount.Neg()}} }
func (Expense) isTransaction() {}

func (t Transfer) Common() Base { return t.Base }
func (t Transfer) Type() TransactionType { return TypeTransfer }
func (t Transfer) CategoryName() string { return TransferCategory }
func (t Transfer) Accounts() []string { return []string{t.FromAccountID, t.ToAccountID} }
func (Transfer) isTransaction() {}

func (t Transfer) Legs() []Leg {
	return []Leg{
		{AccountID: t.FromAccountID, Delta: t.Amount.Neg()},
		{AccountID: t.ToAccountID, Delta: t.Amount},
	}
}

func (b Base) validate() error {
	if b.Amount.IsNegative() {
		return NewValidationError("amount", "must not be negative")
	}
	if b.UserID == "" {
		return NewValidationError("userId", "required")
	}
	return nil
}

func (t Income) Validate() error {
	if err := t.Base.validate(); err != nil {
		return err
	}
	if t.AccountID == "" {
		return NewValidationError("accountId", "required")
	}
	return nil
}

func (t Expense) Validate() error {
	if err := t.Base.validate(); err != nil {
		return err
	}
	if t.AccountID == "" {
		return NewValidationError("accountId", "required")
	}
	return nil
}

func (t Transfer) Validate() error {
	if err := t.Base.validate(); err != nil {
		return err
	}
	if t.FromAccountID == "" {
		return NewValidationError("accountId", "required")
	}
	if t.ToAccountID == "" {
		return NewValidationError("destinationAccountId", "required for transfers")
	}
	if t.FromAccountID == t.ToAccountID {
		return NewValidationError("destinationAccountId", "source and destination accounts must differ")
	}
	return nil
}

// Record is the flat wire and storage shape of a transaction.
type Record struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"userId"`
	AccountID            string          `json:"accountId"`
	DestinationAccountID string          `json:"destinationAccountId,omitempty"`
	Type                 TransactionType `json:"type"`
	Category             string          `json:"category"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description"`
	Date                 time.Time       `json:"date"`
	Tags                 []string        `json:"tags"`
}

func (t Income) Record() Record {
	return t.Base.record(TypeIncome, t.AccountID, "", t.Category)
}

func (t Expense) Record() Record {
	return t.Base.record(TypeExpense, t.AccountID, "", t.Category)
}

func (t Transfer) Record() Record {
	return t.Base.record(TypeTransfer, t.FromAccountID, t.ToAccountID, TransferCategory)
}

func (b Base) record(typ TransactionType, account, destination, category string) Record {
	tags := slices.Clone(b.Tags)
	if tags == nil {
		tags = []string{}
	}
	return Record{
		ID:                   b.ID,
		UserID:               b.UserID,
		AccountID:            account,
		DestinationAccountID: destination,
		Type:                 typ,
		Category:             category,
		Amount:               b.Amount,
		Description:          b.Description,
		Date:                 b.Date,
		Tags:                 tags,
	}
}

// Transaction converts the flat record into its variant and validates it.
// A transfer's category is forced to TransferCategory whatever the record
// says.
func (r Record) Transaction() (Transaction, error) {
	base := Base{
		ID:          r.ID,
		UserID:      r.UserID,
		Amount:      r.Amount,
		Description: r.Description,
		Date:        r.Date,
		Tags:        slices.Clone(r.Tags),
	}

	var tx Transaction
	switch r.Type {
	case TypeIncome, TypeExpense:
		if r.DestinationAccountID != "" {
			return nil, NewValidationError("destinationAccountId", "only transfers have a destination account")
		}
		if r.Type == TypeIncome {
			tx = Income{Base: base, AccountID: r.AccountID, Category: r.Category}
		} else {
			tx = Expense{Base: base, AccountID: r.AccountID, Category: r.Category}
		}
	case TypeTransfer:
		tx = Transfer{Base: base, FromAccountID: r.AccountID, ToAccountID: r.DestinationAccountID}
	default:
		return nil, NewValidationError("type", "must be Income, Expense or Transfer")
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// SameEffect reports whether a and b have identical balance effects, i.e.
// reversing one is equivalent to reversing the other.
func SameEffect(a, b Transaction) bool {
	la, lb := a.Legs(), b.Legs()
	if a.Type() != b.Type() || len(la) != len(lb) {
		return false
	}
	for i := range la {
		if la[i].AccountID != lb[i].AccountID || !la[i].Delta.Equal(lb[i].Delta) {
			return false
		}
	}
	return true
}

// SameRecord reports whether a and b agree on every stored field,
// descriptive ones included.
func SameRecord(a, b Transaction) bool {
	ra, rb := a.Record(), b.Record()
	return ra.ID == rb.ID &&
		ra.UserID == rb.UserID &&
		ra.AccountID == rb.AccountID &&
		ra.DestinationAccountID == rb.DestinationAccountID &&
		ra.Type == rb.Type &&
		ra.Category == rb.Category &&
		ra.Amount.Equal(rb.Amount) &&
		ra.Description == rb.Description &&
		ra.Date.Equal(rb.Date) &&
		slices.Equal(ra.Tags, rb.Tags)
}

// Touches reports whether tx references accountID as source or destination.
func Touches(tx Transaction, accountID string) bool {
	return slices.Contains(tx.Accounts(), accountID)
}
