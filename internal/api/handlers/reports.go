package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/household-ledger/internal/api/middleware"
	"github.com/dvloznov/household-ledger/internal/export"
	"github.com/dvloznov/household-ledger/internal/report"
)

const (
	defaultCashFlowMonths = 6
	maxCashFlowMonths     = 36
)

// ReportsHandler serves the derived views. Nothing here mutates the ledger.
type ReportsHandler struct {
	ledger Ledger
	now    func() time.Time
	log    zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(l Ledger, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{ledger: l, now: time.Now, log: log}
}

// Dashboard handles GET /api/reports/dashboard
func (h *ReportsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	s := h.ledger.Snapshot()
	middleware.WriteJSON(w, http.StatusOK, report.BuildDashboard(s, viewUser(r, s), h.now()))
}

// Budgets handles GET /api/reports/budgets
func (h *ReportsHandler) Budgets(w http.ResponseWriter, r *http.Request) {
	s := h.ledger.Snapshot()
	middleware.WriteJSON(w, http.StatusOK, report.BudgetUsages(s, viewUser(r, s), h.now()))
}

// CashFlow handles GET /api/reports/cashflow?months=N
func (h *ReportsHandler) CashFlow(w http.ResponseWriter, r *http.Request) {
	months := defaultCashFlowMonths
	if v := r.URL.Query().Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxCashFlowMonths {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("months must be between 1 and %d", maxCashFlowMonths))
			return
		}
		months = n
	}

	s := h.ledger.Snapshot()
	middleware.WriteJSON(w, http.StatusOK, report.CashFlow(s, viewUser(r, s), months, h.now()))
}

// ExportHandler renders the visible transactions as a download.
type ExportHandler struct {
	ledger Ledger
	now    func() time.Time
	log    zerolog.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(l Ledger, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{ledger: l, now: time.Now, log: log}
}

// Export handles GET /api/export?format=csv|pdf
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	exporter, err := export.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	s := h.ledger.Snapshot()
	txs := s.TransactionsForUser(viewUser(r, s))

	// Render fully before writing headers so a failure can still be
	// reported as JSON.
	var buf bytes.Buffer
	if err := exporter.Export(&buf, txs, s.Users); err != nil {
		h.log.Error().Err(err).Str("format", exporter.Extension()).Msg("Export failed")
		middleware.WriteDomainError(w, err)
		return
	}

	filename := fmt.Sprintf("transactions-%s.%s", h.now().Format("2006-01-02"), exporter.Extension())
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn().Err(err).Msg("Failed to write export response")
	}
}
