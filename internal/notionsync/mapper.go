package notionsync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

// Database property names.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropCurrency      = "Currency"
	PropType          = "Type"
	PropCategory      = "Category"
	PropUser          = "User"
	PropAccount       = "Account"
	PropToAccount     = "To Account"
	PropTags          = "Tags"
	PropFingerprint   = "Fingerprint"
)

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

// Fingerprint identifies the mirrored content of a transaction, including
// the user and account names shown alongside it, so unchanged pages can be
// skipped.
func Fingerprint(tx domain.Transaction, s store.Snapshot) string {
	r := tx.Record()
	data, _ := json.Marshal(struct {
		Record      domain.Record `json:"r"`
		User        string        `json:"u"`
		Account     string        `json:"a"`
		Destination string        `json:"d"`
	}{r, s.UserName(r.UserID), accountName(s, r.AccountID), accountName(s, r.DestinationAccountID)})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// TransactionProperties converts a ledger transaction to Notion properties.
// Account and user names are resolved against s.
func TransactionProperties(tx domain.Transaction, s store.Snapshot) notionapi.Properties {
	r := tx.Record()
	amount, _ := r.Amount.Float64()
	date := notionapi.Date(r.Date)

	props := notionapi.Properties{
		PropDescription:   notionapi.TitleProperty{Title: richText(r.Description)},
		PropTransactionID: notionapi.RichTextProperty{RichText: richText(r.ID)},
		PropDate:          notionapi.DateProperty{Date: &notionapi.DateObject{Start: &date}},
		PropAmount:        notionapi.NumberProperty{Number: amount},
		PropCurrency:      notionapi.SelectProperty{Select: notionapi.Option{Name: domain.Currency}},
		PropType:          notionapi.SelectProperty{Select: notionapi.Option{Name: string(r.Type)}},
		PropUser:          notionapi.SelectProperty{Select: notionapi.Option{Name: s.UserName(r.UserID)}},
		PropAccount:       notionapi.RichTextProperty{RichText: richText(accountName(s, r.AccountID))},
		PropFingerprint:   notionapi.RichTextProperty{RichText: richText(Fingerprint(tx, s))},
	}

	if r.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: r.Category}}
	}
	if r.DestinationAccountID != "" {
		props[PropToAccount] = notionapi.RichTextProperty{RichText: richText(accountName(s, r.DestinationAccountID))}
	}

	tags := make([]notionapi.Option, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, notionapi.Option{Name: t})
	}
	props[PropTags] = notionapi.MultiSelectProperty{MultiSelect: tags}

	return props
}

func accountName(s store.Snapshot, id string) string {
	if id == "" {
		return ""
	}
	if a, ok := s.Account(id); ok {
		return a.Name
	}
	return id
}

// plainText reads a rich text or title property from a fetched page.
// Returns empty string if not found.
func plainText(page notionapi.Page, name string) string {
	switch prop := page.Properties[name].(type) {
	case *notionapi.RichTextProperty:
		if len(prop.RichText) > 0 {
			return prop.RichText[0].PlainText
		}
	case *notionapi.TitleProperty:
		if len(prop.Title) > 0 {
			return prop.Title[0].PlainText
		}
	}
	return ""
}
