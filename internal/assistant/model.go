// Package assistant is the boundary to the generative model. The model only
// ever produces text or proposals; nothing it returns touches the ledger
// until a user confirms it through a Session.
package assistant

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/report"
	"github.com/dvloznov/household-ledger/internal/store"
)

// Model is a generative backend.
type Model interface {
	// Chat answers a user message, either with text or with a proposal.
	Chat(ctx context.Context, message string, categories []domain.Category, today time.Time) (Reply, error)
	// SuggestCategory names the best expense category for a transaction.
	SuggestCategory(ctx context.Context, description string, amount decimal.Decimal, categories []string) (string, error)
	// ScanReceipt extracts purchase details from a receipt image.
	ScanReceipt(ctx context.Context, image []byte, mimeType string, categories []string) (Receipt, error)
	// HealthReport writes a Markdown report over a financial summary.
	HealthReport(ctx context.Context, summary report.HealthSummary) (string, error)
}

// Reply is a chat answer. Proposal is nil for plain text answers.
type Reply struct {
	Text     string
	Proposal Proposal
}

// Receipt holds whatever the model could read off a receipt.
type Receipt struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    string           `json:"category,omitempty"`
	Description string           `json:"description,omitempty"`
}

func categoryNames(cats []domain.Category) []string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names
}

// SuggestCategory asks m for an expense category and discards answers that
// are not one of the snapshot's expense categories.
func SuggestCategory(ctx context.Context, m Model, s store.Snapshot, description string, amount decimal.Decimal) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", domain.NewValidationError("description", "required")
	}
	names := categoryNames(s.ListCategories(domain.TypeExpense))
	cat, err := m.SuggestCategory(ctx, description, amount, names)
	if err != nil {
		return "", domain.External("gemini", "suggest_category", err)
	}
	if !slices.Contains(names, cat) {
		return "", nil
	}
	return cat, nil
}

// ScanReceipt reads a receipt image. A category outside the snapshot's
// expense categories is blanked.
func ScanReceipt(ctx context.Context, m Model, s store.Snapshot, image []byte, mimeType string) (Receipt, error) {
	if len(image) == 0 {
		return Receipt{}, domain.NewValidationError("image", "required")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return Receipt{}, domain.NewValidationError("mimeType", "must be an image type")
	}
	names := categoryNames(s.ListCategories(domain.TypeExpense))
	r, err := m.ScanReceipt(ctx, image, mimeType, names)
	if err != nil {
		return Receipt{}, domain.External("gemini", "scan_receipt", err)
	}
	if r.Category != "" && !slices.Contains(names, r.Category) {
		r.Category = ""
	}
	return r, nil
}

// HealthReport summarizes the user's last months and asks m for a report.
func HealthReport(ctx context.Context, m Model, s store.Snapshot, userID string, now time.Time) (string, error) {
	summary := report.Health(s, userID, now)
	text, err := m.HealthReport(ctx, summary)
	if err != nil {
		return "", domain.External("gemini", "health_report", err)
	}
	return text, nil
}

// cleanModelJSON strips Markdown fences and surrounding chatter from a model
// response that should have been bare JSON.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}

func decodeModelJSON(raw string, v any) error {
	return json.Unmarshal([]byte(cleanModelJSON(raw)), v)
}
