package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/household-ledger/internal/api/middleware"
	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/ledger"
)

// AccountsHandler handles account-related endpoints.
type AccountsHandler struct {
	ledger Ledger
	log    zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(l Ledger, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{ledger: l, log: log}
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	s := h.ledger.Snapshot()
	accounts := s.AccountsForUser(viewUser(r, s))
	if accounts == nil {
		accounts = []domain.Account{}
	}
	middleware.WriteJSON(w, http.StatusOK, accounts)
}

// CreateAccount handles POST /api/accounts
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var a domain.Account
	if err := decodeJSON(r, &a); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	snap, ok := dispatch(w, r, h.ledger, h.log, ledger.AddAccount{Account: a})
	if !ok {
		return
	}

	created, _ := snap.Account(a.ID)
	h.log.Info().Str("account_id", a.ID).Int64("revision", snap.Revision).Msg("Account added")
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// UpdateAccount handles PUT /api/accounts/{id}. Balances cannot be edited.
func (h *AccountsHandler) UpdateAccount(w http.ResponseWriter, r *http.Request, id string) {
	var a domain.Account
	if err := decodeJSON(r, &a); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	a.ID = id

	snap, ok := dispatch(w, r, h.ledger, h.log, ledger.UpdateAccount{Account: a})
	if !ok {
		return
	}

	updated, _ := snap.Account(id)
	middleware.WriteJSON(w, http.StatusOK, updated)
}

// DeleteAccount handles DELETE /api/accounts/{id}
func (h *AccountsHandler) DeleteAccount(w http.ResponseWriter, r *http.Request, id string) {
	snap, ok := dispatch(w, r, h.ledger, h.log, ledger.DeleteAccount{ID: id})
	if !ok {
		return
	}
	h.log.Info().Str("account_id", id).Int64("revision", snap.Revision).Msg("Account deleted")
	w.WriteHeader(http.StatusNoContent)
}

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct {
	ledger Ledger
	log    zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(l Ledger, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{ledger: l, log: log}
}

// ListCategories handles GET /api/categories. The optional type parameter
// selects Income or Expense categories.
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.ledger.Snapshot().ListCategories(domain.TransactionType(r.URL.Query().Get("type")))
	if categories == nil {
		categories = []domain.Category{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// CreateCategory handles POST /api/categories
func (h *CategoriesHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var c domain.Category
	if err := decodeJSON(r, &c); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := dispatch(w, r, h.ledger, h.log, ledger.AddCategory{Category: c}); !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, c)
}

// UpdateCategory handles PUT /api/categories/{id}
func (h *CategoriesHandler) UpdateCategory(w http.ResponseWriter, r *http.Request, id string) {
	var c domain.Category
	if err := decodeJSON(r, &c); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	c.ID = id
	if _, ok := dispatch(w, r, h.ledger, h.log, ledger.UpdateCategory{Category: c}); !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/categories/{id}
func (h *CategoriesHandler) DeleteCategory(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := dispatch(w, r, h.ledger, h.log, ledger.DeleteCategory{ID: id}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SettingsHandler handles users and the persisted view preferences.
type SettingsHandler struct {
	ledger Ledger
	log    zerolog.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(l Ledger, log zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{ledger: l, log: log}
}

type sessionState struct {
	CurrentUser string       `json:"currentUser"`
	Theme       domain.Theme `json:"theme"`
}

// ListUsers handles GET /api/users
func (h *SettingsHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	s := h.ledger.Snapshot()
	users := s.Users
	if users == nil {
		users = []domain.User{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users":       users,
		"currentUser": s.CurrentUser,
		"theme":       s.Theme,
	})
}

// UpdateUsers handles PUT /api/users
func (h *SettingsHandler) UpdateUsers(w http.ResponseWriter, r *http.Request) {
	var users []domain.User
	if err := decodeJSON(r, &users); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	snap, ok := dispatch(w, r, h.ledger, h.log, ledger.UpdateUsers{Users: users})
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, snap.Users)
}

// SetCurrentUser handles PUT /api/session/user
func (h *SettingsHandler) SetCurrentUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	snap, ok := dispatch(w, r, h.ledger, h.log, ledger.SetCurrentUser{UserID: req.UserID})
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sessionState{CurrentUser: snap.CurrentUser, Theme: snap.Theme})
}

// SetTheme handles PUT /api/session/theme. With an empty body, or no theme
// field, the theme is toggled; otherwise it is set to the requested one.
func (h *SettingsHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme domain.Theme `json:"theme"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			middleware.WriteDomainError(w, err)
			return
		}
	}
	if req.Theme != "" && req.Theme != domain.ThemeLight && req.Theme != domain.ThemeDark {
		middleware.WriteDomainError(w, domain.NewValidationError("theme", "must be light or dark"))
		return
	}

	snap := h.ledger.Snapshot()
	if req.Theme == "" || req.Theme != snap.Theme {
		var ok bool
		if snap, ok = dispatch(w, r, h.ledger, h.log, ledger.ToggleTheme{}); !ok {
			return
		}
	}
	middleware.WriteJSON(w, http.StatusOK, sessionState{CurrentUser: snap.CurrentUser, Theme: snap.Theme})
}

// BudgetsHandler handles budget endpoints.
type BudgetsHandler struct {
	ledger Ledger
	log    zerolog.Logger
}

// NewBudgetsHandler creates a new budgets handler.
func NewBudgetsHandler(l Ledger, log zerolog.Logger) *BudgetsHandler {
	return &BudgetsHandler{ledger: l, log: log}
}

// ListBudgets handles GET /api/budgets
func (h *BudgetsHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	s := h.ledger.Snapshot()
	budgets := s.BudgetsForUser(viewUser(r, s))
	if budgets == nil {
		budgets = []domain.Budget{}
	}
	middleware.WriteJSON(w, http.StatusOK, budgets)
}

// UpsertBudget handles POST /api/budgets
func (h *BudgetsHandler) UpsertBudget(w http.ResponseWriter, r *http.Request) {
	var b domain.Budget
	if err := decodeJSON(r, &b); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, ok := dispatch(w, r, h.ledger, h.log, ledger.UpsertBudget{Budget: b}); !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, b)
}

// DeleteBudget handles DELETE /api/budgets/{id}
func (h *BudgetsHandler) DeleteBudget(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := dispatch(w, r, h.ledger, h.log, ledger.DeleteBudget{ID: id}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InvestmentsHandler handles investment holding endpoints.
type InvestmentsHandler struct {
	ledger Ledger
	log    zerolog.Logger
}

// NewInvestmentsHandler creates a new investments handler.
func NewInvestmentsHandler(l Ledger, log zerolog.Logger) *InvestmentsHandler {
	return &InvestmentsHandler{ledger: l, log: log}
}

type investmentView struct {
	domain.Investment
	Value decimal.Decimal `json:"value"`
	Gain  decimal.Decimal `json:"gain"`
}

// ListInvestments handles GET /api/investments
func (h *InvestmentsHandler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	s := h.ledger.Snapshot()
	holdings := s.InvestmentsForUser(viewUser(r, s))
	out := make([]investmentView, 0, len(holdings))
	for _, v := range holdings {
		out = append(out, investmentView{Investment: v, Value: v.Value(), Gain: v.Gain()})
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// UpsertInvestment handles POST /api/investments
func (h *InvestmentsHandler) UpsertInvestment(w http.ResponseWriter, r *http.Request) {
	var v domain.Investment
	if err := decodeJSON(r, &v); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if _, ok := dispatch(w, r, h.ledger, h.log, ledger.UpsertInvestment{Investment: v}); !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, v)
}

// DeleteInvestment handles DELETE /api/investments/{id}
func (h *InvestmentsHandler) DeleteInvestment(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := dispatch(w, r, h.ledger, h.log, ledger.DeleteInvestment{ID: id}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
