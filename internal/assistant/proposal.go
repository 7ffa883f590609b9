package assistant

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/household-ledger/internal/domain"
)

// Function names the chat model may call.
const (
	FuncAddTransaction    = "add_transaction"
	FuncUpdateTransaction = "update_transaction"
)

// Proposal is a change the model suggested. It is inert until translated
// and confirmed.
type Proposal interface {
	Kind() string
	isProposal()
}

// AddProposal asks for a new income or expense on the active user's
// primary account.
type AddProposal struct {
	Type        domain.TransactionType `json:"type"`
	Amount      decimal.Decimal        `json:"amount"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
}

// UpdateProposal asks to change the transaction best matching Query. Nil
// fields are left as they are.
type UpdateProposal struct {
	Query       string           `json:"searchQuery"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
}

func (AddProposal) Kind() string    { return FuncAddTransaction }
func (UpdateProposal) Kind() string { return FuncUpdateTransaction }
func (AddProposal) isProposal()     {}
func (UpdateProposal) isProposal()  {}

// ParseFunctionCall converts a model function call into a Proposal.
func ParseFunctionCall(name string, args map[string]any) (Proposal, error) {
	switch name {
	case FuncAddTransaction:
		return parseAdd(args)
	case FuncUpdateTransaction:
		return parseUpdate(args)
	default:
		return nil, domain.NewValidationError("function", fmt.Sprintf("unknown function %q", name))
	}
}

func parseAdd(args map[string]any) (AddProposal, error) {
	var p AddProposal
	amount, ok := decimalArg(args["amount"])
	if !ok {
		return p, domain.NewValidationError("amount", "missing or not a number")
	}
	p.Amount = amount
	p.Description = stringArg(args["description"])
	p.Category = stringArg(args["category"])

	switch typ := domain.TransactionType(stringArg(args["type"])); typ {
	case domain.TypeIncome, domain.TypeExpense:
		p.Type = typ
	default:
		return p, domain.NewValidationError("type", fmt.Sprintf("must be Income or Expense, got %q", typ))
	}
	return p, nil
}

func parseUpdate(args map[string]any) (UpdateProposal, error) {
	var p UpdateProposal
	p.Query = strings.TrimSpace(stringArg(args["search_query"]))
	if p.Query == "" {
		return p, domain.NewValidationError("search_query", "required")
	}
	updates, _ := args["updates"].(map[string]any)
	if v, ok := updates["amount"]; ok {
		amount, ok := decimalArg(v)
		if !ok {
			return p, domain.NewValidationError("updates.amount", "not a number")
		}
		p.Amount = &amount
	}
	if v, ok := updates["description"].(string); ok {
		p.Description = &v
	}
	if v, ok := updates["category"].(string); ok {
		p.Category = &v
	}
	return p, nil
}

func stringArg(v any) string {
	s, _ := v.(string)
	return s
}

// decimalArg accepts the JSON number the model is asked for, and tolerates
// numeric strings.
func decimalArg(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(n), ",", ""))
		return d, err == nil
	}
	return decimal.Decimal{}, false
}
