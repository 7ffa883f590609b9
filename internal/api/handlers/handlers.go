package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/household-ledger/internal/api/middleware"
	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/ledger"
	"github.com/dvloznov/household-ledger/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Ledger is the part of ledger.Dispatcher the handlers need.
type Ledger interface {
	Snapshot() store.Snapshot
	Dispatch(ctx context.Context, m ledger.Mutation) (store.Snapshot, error)
}

// decodeJSON reads a JSON body into v. Malformed input is a validation
// error.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "request body is required")
		}
		return &domain.ValidationError{Field: "body", Message: "invalid JSON", Err: err}
	}
	return nil
}

// viewUser returns the user selector for a read: the "user" query parameter
// or the snapshot's current user.
func viewUser(r *http.Request, s store.Snapshot) string {
	if u := r.URL.Query().Get("user"); u != "" {
		return u
	}
	return s.CurrentUser
}

// parseDate parses an optional YYYY-MM-DD query parameter.
func parseDate(r *http.Request, name string) (time.Time, bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, false, domain.NewValidationError(name, "must be YYYY-MM-DD")
	}
	return t, true, nil
}

// dispatch applies m and writes the error response when it is rejected.
func dispatch(w http.ResponseWriter, r *http.Request, l Ledger, log zerolog.Logger, m ledger.Mutation) (store.Snapshot, bool) {
	snap, err := l.Dispatch(r.Context(), m)
	if err != nil {
		log.Warn().Err(err).Str("mutation", m.Kind()).Msg("Mutation rejected")
		middleware.WriteDomainError(w, err)
		return snap, false
	}
	return snap, true
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	ledger Ledger
	now    func() time.Time
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(l Ledger, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		ledger: l,
		now:    time.Now,
		log:    log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	s := h.ledger.Snapshot()

	startDate, hasStart, err := parseDate(r, "start_date")
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	endDate, hasEnd, err := parseDate(r, "end_date")
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	typ := domain.TransactionType(r.URL.Query().Get("type"))

	records := []domain.Record{}
	for _, tx := range s.TransactionsForUser(viewUser(r, s)) {
		c := tx.Common()
		if hasStart && c.Date.Before(startDate) {
			continue
		}
		// end_date is inclusive of the whole day
		if hasEnd && !c.Date.Before(endDate.AddDate(0, 0, 1)) {
			continue
		}
		if typ != "" && tx.Type() != typ {
			continue
		}
		records = append(records, tx.Record())
	}

	// Return array directly for frontend compatibility
	middleware.WriteJSON(w, http.StatusOK, records)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var rec domain.Record
	if err := decodeJSON(r, &rec); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Date.IsZero() {
		rec.Date = h.now()
	}

	tx, err := rec.Transaction()
	if err == nil {
		err = ledger.CheckTransaction(h.ledger.Snapshot(), tx)
	}
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	snap, ok := dispatch(w, r, h.ledger, h.log, ledger.AddTransaction{Transaction: tx})
	if !ok {
		return
	}

	h.log.Info().Str("transaction_id", rec.ID).Int64("revision", snap.Revision).Msg("Transaction added")
	middleware.WriteJSON(w, http.StatusCreated, tx.Record())
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request, id string) {
	s := h.ledger.Snapshot()
	old, found := s.Transaction(id)
	if !found {
		middleware.WriteDomainError(w, domain.NotFound("transaction", id))
		return
	}

	var rec domain.Record
	if err := decodeJSON(r, &rec); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	if rec.ID != "" && rec.ID != id {
		middleware.WriteError(w, http.StatusBadRequest, "Transaction ID in body does not match path")
		return
	}
	rec.ID = id
	if rec.Date.IsZero() {
		rec.Date = old.Common().Date
	}

	tx, err := rec.Transaction()
	if err == nil {
		err = ledger.CheckTransaction(s, tx)
	}
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	snap, ok := dispatch(w, r, h.ledger, h.log, ledger.UpdateTransaction{Old: old, New: tx})
	if !ok {
		return
	}

	h.log.Info().Str("transaction_id", id).Int64("revision", snap.Revision).Msg("Transaction updated")
	middleware.WriteJSON(w, http.StatusOK, tx.Record())
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	tx, found := h.ledger.Snapshot().Transaction(id)
	if !found {
		middleware.WriteDomainError(w, domain.NotFound("transaction", id))
		return
	}

	snap, ok := dispatch(w, r, h.ledger, h.log, ledger.DeleteTransaction{Transaction: tx})
	if !ok {
		return
	}

	h.log.Info().Str("transaction_id", id).Int64("revision", snap.Revision).Msg("Transaction deleted")
	w.WriteHeader(http.StatusNoContent)
}

// idFromPath checks that the path carried an id.
func idFromPath(w http.ResponseWriter, entity, id string) bool {
	if id == "" {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("%s ID is required", entity))
		return false
	}
	return true
}
