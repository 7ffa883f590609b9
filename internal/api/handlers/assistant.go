package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/household-ledger/internal/api/middleware"
	"github.com/dvloznov/household-ledger/internal/assistant"
	"github.com/dvloznov/household-ledger/internal/domain"
)

// maxReceiptBytes bounds uploaded receipt images.
const maxReceiptBytes = 10 << 20

// AssistantHandler exposes the AI assistant. A nil model means no API key
// was configured and every endpoint answers 503.
type AssistantHandler struct {
	session *assistant.Session
	model   assistant.Model
	ledger  Ledger
	now     func() time.Time
	log     zerolog.Logger
}

// NewAssistantHandler creates a new assistant handler. session may be nil
// when model is nil.
func NewAssistantHandler(session *assistant.Session, model assistant.Model, l Ledger, log zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{
		session: session,
		model:   model,
		ledger:  l,
		now:     time.Now,
		log:     log,
	}
}

func (h *AssistantHandler) available(w http.ResponseWriter) bool {
	if h.model == nil || h.session == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "AI assistant is not configured")
		return false
	}
	return true
}

// Messages handles GET /api/assistant/messages
func (h *AssistantHandler) Messages(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.session.Messages())
}

// Chat handles POST /api/assistant/chat
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	reply, err := h.session.Send(r.Context(), strings.TrimSpace(req.Message))
	if err != nil {
		h.log.Error().Err(err).Msg("Assistant chat failed")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, reply)
}

// ConfirmAction handles POST /api/assistant/actions/{id}/confirm
func (h *AssistantHandler) ConfirmAction(w http.ResponseWriter, r *http.Request, id string) {
	if !h.available(w) {
		return
	}
	snap, err := h.session.Confirm(r.Context(), id)
	if err != nil {
		h.log.Warn().Err(err).Str("action_id", id).Msg("Action not applied")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"action_id": id,
		"status":    string(assistant.ActionConfirmed),
		"revision":  snap.Revision,
	})
}

// DiscardAction handles DELETE /api/assistant/actions/{id}
func (h *AssistantHandler) DiscardAction(w http.ResponseWriter, r *http.Request, id string) {
	if !h.available(w) {
		return
	}
	if err := h.session.Discard(id); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthReport handles POST /api/assistant/health
func (h *AssistantHandler) HealthReport(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	s := h.ledger.Snapshot()
	userID := viewUser(r, s)

	markdown, err := assistant.HealthReport(r.Context(), h.model, s, userID, h.now())
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Health report failed")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"report": markdown})
}

// SuggestCategory handles POST /api/assistant/suggest-category
func (h *AssistantHandler) SuggestCategory(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req struct {
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		middleware.WriteDomainError(w, domain.NewValidationError("description", "required"))
		return
	}

	category, err := assistant.SuggestCategory(r.Context(), h.model, h.ledger.Snapshot(), req.Description, req.Amount)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"category": category})
}

// ScanReceipt handles POST /api/assistant/scan-receipt. The image is sent
// as the "receipt" field of a multipart form.
func (h *AssistantHandler) ScanReceipt(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBytes+1<<10)
	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "No receipt provided")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read receipt")
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read receipt")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}

	receipt, err := assistant.ScanReceipt(r.Context(), h.model, h.ledger.Snapshot(), image, mimeType)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, receipt)
}
