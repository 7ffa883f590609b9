package assistant

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dvloznov/household-ledger/internal/domain"
)

// DefaultMatchWindow bounds how far back an update proposal may reach.
const DefaultMatchWindow = 30 * 24 * time.Hour

// Matcher finds the transaction an update proposal refers to.
type Matcher interface {
	Match(txs []domain.Transaction, query, userID string, now time.Time) (domain.Transaction, bool)
}

// KeywordMatcher picks the newest of the user's transactions within Window
// whose description or category contains every query word longer than two
// characters. A query with no such word matches nothing.
type KeywordMatcher struct {
	Window time.Duration
}

func (m KeywordMatcher) Match(txs []domain.Transaction, query, userID string, now time.Time) (domain.Transaction, bool) {
	keywords := queryKeywords(query)
	if len(keywords) == 0 {
		return nil, false
	}
	window := m.Window
	if window <= 0 {
		window = DefaultMatchWindow
	}

	var own []domain.Transaction
	for _, t := range txs {
		if t.Common().UserID == userID {
			own = append(own, t)
		}
	}
	slices.SortStableFunc(own, func(a, b domain.Transaction) int {
		return b.Common().Date.Compare(a.Common().Date)
	})

	for _, t := range own {
		if now.Sub(t.Common().Date) >= window {
			continue
		}
		desc := strings.ToLower(t.Common().Description)
		cat := strings.ToLower(t.CategoryName())
		if allContained(keywords, desc, cat) {
			return t, true
		}
	}
	return nil, false
}

func queryKeywords(query string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

func allContained(keywords []string, desc, cat string) bool {
	for _, kw := range keywords {
		if !strings.Contains(desc, kw) && !strings.Contains(cat, kw) {
			return false
		}
	}
	return true
}
