package assistant

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/ledger"
	"github.com/dvloznov/household-ledger/internal/store"
)

// GeneratedTag marks transactions created from a model proposal.
const GeneratedTag = "ai-generated"

// ActiveUser is the user the assistant acts for: the current user, or the
// first user when all users are selected.
func ActiveUser(s store.Snapshot) (domain.User, error) {
	if s.CurrentUser != "" && s.CurrentUser != domain.AllUsers {
		if u, ok := s.User(s.CurrentUser); ok {
			return u, nil
		}
		return domain.User{}, domain.NotFound("user", s.CurrentUser)
	}
	if len(s.Users) == 0 {
		return domain.User{}, domain.NewValidationError("user", "no users configured")
	}
	return s.Users[0], nil
}

// Translate turns p into the same mutation a manual edit would produce,
// checked against s. Adds go to the active user's primary account; updates
// are merged onto the transaction m finds.
func Translate(s store.Snapshot, p Proposal, m Matcher, now time.Time) (ledger.Mutation, error) {
	user, err := ActiveUser(s)
	if err != nil {
		return nil, err
	}

	switch p := p.(type) {
	case AddProposal:
		acc, ok := s.PrimaryAccount(user.ID)
		if !ok {
			return nil, domain.NewValidationError("account", fmt.Sprintf("no accounts are set up for %s", user.Name))
		}
		tx, err := domain.Record{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			AccountID:   acc.ID,
			Type:        p.Type,
			Category:    p.Category,
			Amount:      p.Amount,
			Description: p.Description,
			Date:        now,
			Tags:        []string{GeneratedTag},
		}.Transaction()
		if err != nil {
			return nil, err
		}
		if err := ledger.CheckTransaction(s, tx); err != nil {
			return nil, err
		}
		return ledger.AddTransaction{Transaction: tx}, nil

	case UpdateProposal:
		old, ok := m.Match(s.Transactions, p.Query, user.ID, now)
		if !ok {
			return nil, domain.NotFound("transaction", p.Query)
		}
		r := old.Record()
		if p.Amount != nil {
			r.Amount = *p.Amount
		}
		if p.Description != nil {
			r.Description = *p.Description
		}
		if p.Category != nil && old.Type() != domain.TypeTransfer {
			r.Category = *p.Category
		}
		updated, err := r.Transaction()
		if err != nil {
			return nil, err
		}
		if err := ledger.CheckTransaction(s, updated); err != nil {
			return nil, err
		}
		return ledger.UpdateTransaction{Old: old, New: updated, Exact: true}, nil

	default:
		return nil, domain.NewValidationError("proposal", fmt.Sprintf("unsupported proposal %T", p))
	}
}
