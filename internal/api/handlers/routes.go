package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/household-ledger/internal/api/middleware"
)

// Handlers groups every endpoint handler the router serves.
type Handlers struct {
	Transactions *TransactionsHandler
	Accounts     *AccountsHandler
	Categories   *CategoriesHandler
	Settings     *SettingsHandler
	Budgets      *BudgetsHandler
	Investments  *InvestmentsHandler
	Reports      *ReportsHandler
	Export       *ExportHandler
	Assistant    *AssistantHandler
	Jobs         *JobsHandler
}

func methodNotAllowed(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// collection routes GET and POST on an exact path.
func collection(list, create http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && list != nil:
			list(w, r)
		case r.Method == http.MethodPost && create != nil:
			create(w, r)
		default:
			methodNotAllowed(w)
		}
	}
}

// item routes PUT and DELETE on prefix+{id}.
func item(prefix, entity string, update, remove func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Extract ID from path
		id := strings.TrimPrefix(r.URL.Path, prefix)
		if !idFromPath(w, entity, id) {
			return
		}
		switch {
		case r.Method == http.MethodPut && update != nil:
			update(w, r, id)
		case r.Method == http.MethodDelete && remove != nil:
			remove(w, r, id)
		default:
			methodNotAllowed(w)
		}
	}
}

// NewRouter registers every API route on a new mux.
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", collection(h.Transactions.ListTransactions, h.Transactions.CreateTransaction))
	mux.HandleFunc("/api/transactions/", item("/api/transactions/", "Transaction", h.Transactions.UpdateTransaction, h.Transactions.DeleteTransaction))

	// Accounts endpoints
	mux.HandleFunc("/api/accounts", collection(h.Accounts.ListAccounts, h.Accounts.CreateAccount))
	mux.HandleFunc("/api/accounts/", item("/api/accounts/", "Account", h.Accounts.UpdateAccount, h.Accounts.DeleteAccount))

	// Categories endpoints
	mux.HandleFunc("/api/categories", collection(h.Categories.ListCategories, h.Categories.CreateCategory))
	mux.HandleFunc("/api/categories/", item("/api/categories/", "Category", h.Categories.UpdateCategory, h.Categories.DeleteCategory))

	// Users and view preferences
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Settings.ListUsers(w, r)
		case http.MethodPut:
			h.Settings.UpdateUsers(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/api/session/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			h.Settings.SetCurrentUser(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/api/session/theme", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			h.Settings.SetTheme(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Budgets and investments
	mux.HandleFunc("/api/budgets", collection(h.Budgets.ListBudgets, h.Budgets.UpsertBudget))
	mux.HandleFunc("/api/budgets/", item("/api/budgets/", "Budget", nil, h.Budgets.DeleteBudget))
	mux.HandleFunc("/api/investments", collection(h.Investments.ListInvestments, h.Investments.UpsertInvestment))
	mux.HandleFunc("/api/investments/", item("/api/investments/", "Investment", nil, h.Investments.DeleteInvestment))

	// Reports and export
	mux.HandleFunc("/api/reports/dashboard", collection(h.Reports.Dashboard, nil))
	mux.HandleFunc("/api/reports/budgets", collection(h.Reports.Budgets, nil))
	mux.HandleFunc("/api/reports/cashflow", collection(h.Reports.CashFlow, nil))
	mux.HandleFunc("/api/export", collection(h.Export.Export, nil))

	// Assistant endpoints
	mux.HandleFunc("/api/assistant/messages", collection(h.Assistant.Messages, nil))
	mux.HandleFunc("/api/assistant/chat", collection(nil, h.Assistant.Chat))
	mux.HandleFunc("/api/assistant/health", collection(nil, h.Assistant.HealthReport))
	mux.HandleFunc("/api/assistant/suggest-category", collection(nil, h.Assistant.SuggestCategory))
	mux.HandleFunc("/api/assistant/scan-receipt", collection(nil, h.Assistant.ScanReceipt))
	mux.HandleFunc("/api/assistant/actions/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/assistant/actions/")
		if id, ok := strings.CutSuffix(rest, "/confirm"); ok {
			if !idFromPath(w, "Action", id) {
				return
			}
			if r.Method == http.MethodPost {
				h.Assistant.ConfirmAction(w, r, id)
			} else {
				methodNotAllowed(w)
			}
			return
		}
		if !idFromPath(w, "Action", rest) {
			return
		}
		if r.Method == http.MethodDelete {
			h.Assistant.DiscardAction(w, r, rest)
		} else {
			methodNotAllowed(w)
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", collection(h.Jobs.ListJobs, nil))
	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if !idFromPath(w, "Job", jobID) {
				return
			}
			h.Jobs.GetJob(w, r, jobID)
		} else {
			methodNotAllowed(w)
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return mux
}
