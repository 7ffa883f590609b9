package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/report"
)

// GeminiConfig selects models for each kind of request.
type GeminiConfig struct {
	APIKey string
	// ChatModel serves chat turns.
	ChatModel string
	// FastModel serves receipts and category suggestions.
	FastModel string
	// ReportModel writes health reports.
	ReportModel string
}

// GeminiModel implements Model with the Gemini API.
type GeminiModel struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGeminiModel creates a Gemini API client. An empty API key falls back
// to the GEMINI_API_KEY / GOOGLE_API_KEY environment variables.
func NewGeminiModel(ctx context.Context, cfg GeminiConfig) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiModel: create genai client: %w", err)
	}
	return &GeminiModel{client: client, cfg: cfg}, nil
}

var addTransactionDecl = &genai.FunctionDeclaration{
	Name:        FuncAddTransaction,
	Description: "Adds a new income or expense transaction.",
	Parameters: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"amount":      {Type: genai.TypeNumber, Description: "The transaction amount."},
			"description": {Type: genai.TypeString, Description: `A brief description of the transaction, e.g., "Coffee" or "Monthly Salary".`},
			"category":    {Type: genai.TypeString, Description: "The category of the transaction."},
			"type":        {Type: genai.TypeString, Description: `The type of transaction, either "Income" or "Expense".`},
		},
		Required: []string{"amount", "description", "category", "type"},
	},
}

var updateTransactionDecl = &genai.FunctionDeclaration{
	Name:        FuncUpdateTransaction,
	Description: "Updates an existing transaction based on user query.",
	Parameters: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"search_query": {Type: genai.TypeString, Description: `A query to find the transaction to update, e.g., "the coffee yesterday" or "my salary".`},
			"updates": {
				Type:        genai.TypeObject,
				Description: "An object containing the fields to update.",
				Properties: map[string]*genai.Schema{
					"amount":      {Type: genai.TypeNumber, Description: "The new transaction amount."},
					"description": {Type: genai.TypeString, Description: "The new description."},
					"category":    {Type: genai.TypeString, Description: "The new category."},
				},
			},
		},
		Required: []string{"search_query", "updates"},
	},
}

func systemText(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}

func (g *GeminiModel) Chat(ctx context.Context, message string, categories []domain.Category, today time.Time) (Reply, error) {
	instruction := "You are a financial assistant. Your goal is to help users manage their transactions.\n" +
		"- When asked to add or record a transaction, use the 'add_transaction' function. Infer the category from this list: [" +
		strings.Join(categoryNames(categories), ", ") + "].\n" +
		"- When asked to change, modify, or update a transaction, use the 'update_transaction' function.\n" +
		"- If the user's request is ambiguous or a general question, respond with a helpful text message.\n" +
		"- Assume today is " + today.Format("Mon Jan 02 2006") + ".\n" +
		"- Do not ask for the account, it will be handled by the app.\n" +
		"- Be friendly and concise."

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.ChatModel, genai.Text(message), &genai.GenerateContentConfig{
		SystemInstruction: systemText(instruction),
		Tools:             []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{addTransactionDecl, updateTransactionDecl}}},
	})
	if err != nil {
		return Reply{}, fmt.Errorf("Chat: generate content: %w", err)
	}

	if calls := resp.FunctionCalls(); len(calls) > 0 {
		p, err := ParseFunctionCall(calls[0].Name, calls[0].Args)
		if err != nil {
			return Reply{}, fmt.Errorf("Chat: %w", err)
		}
		return Reply{Proposal: p}, nil
	}
	return Reply{Text: resp.Text()}, nil
}

func (g *GeminiModel) SuggestCategory(ctx context.Context, description string, amount decimal.Decimal, categories []string) (string, error) {
	prompt := fmt.Sprintf("Based on the transaction description %q and amount %s, suggest the most relevant expense category from this list: [%s].\n"+
		`Return a JSON object with a single key "category". The value MUST be one of the categories from the list provided. `+
		"If no category is a good match, return an empty string for the category value.",
		description, amount.String(), strings.Join(categories, ", "))

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.FastModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{"category": {Type: genai.TypeString}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("SuggestCategory: generate content: %w", err)
	}

	var out struct {
		Category string `json:"category"`
	}
	if err := decodeModelJSON(resp.Text(), &out); err != nil {
		return "", fmt.Errorf("SuggestCategory: unmarshal JSON: %w", err)
	}
	return out.Category, nil
}

func (g *GeminiModel) ScanReceipt(ctx context.Context, image []byte, mimeType string, categories []string) (Receipt, error) {
	prompt := "Analyze the provided receipt image. Extract the following information and return it as a JSON object:\n" +
		`1. "amount": The total amount paid. This should be a number without any currency symbols or commas.` + "\n" +
		`2. "category": The most relevant expense category from the following list: [` + strings.Join(categories, ", ") + "]. If no category is a good match, return an empty string.\n" +
		`3. "description": A short, concise description of the purchase, often the name of the store or primary item.` + "\n\n" +
		"If any field cannot be determined, omit it from the JSON object."

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
				{Text: prompt},
			},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.FastModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"amount":      {Type: genai.TypeNumber},
				"category":    {Type: genai.TypeString},
				"description": {Type: genai.TypeString},
			},
		},
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("ScanReceipt: generate content: %w", err)
	}

	raw := resp.Text()
	if !strings.HasPrefix(strings.TrimSpace(cleanModelJSON(raw)), "{") {
		return Receipt{}, errors.New("ScanReceipt: response was not a JSON object")
	}
	var r Receipt
	if err := decodeModelJSON(raw, &r); err != nil {
		return Receipt{}, fmt.Errorf("ScanReceipt: unmarshal JSON: %w", err)
	}
	return r, nil
}

func (g *GeminiModel) HealthReport(ctx context.Context, summary report.HealthSummary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("HealthReport: marshal summary: %w", err)
	}
	prompt := "Analyze the following financial data and generate a report in Markdown format. " +
		"The report MUST include the following sections, identified by these exact headings:\n\n" +
		"### Score\n- Start with a single line containing only a number from 1 to 100 representing the user's financial health score. " +
		"A score of 100 is excellent. Base this score on savings rate, budget adherence, and overall financial stability reflected in the data.\n\n" +
		"### Summary\n- Provide a brief, one-paragraph overview of the user's financial situation.\n\n" +
		"### What You're Doing Well\n- List 2-3 positive aspects as a bulleted list. Use encouraging language.\n\n" +
		"### Areas for Improvement\n- List 2-3 areas where the user could improve, also as a bulleted list. Be constructive and avoid alarming language.\n\n" +
		"### Actionable Tips\n- Provide 2-3 concrete, actionable tips in a bulleted list.\n\n" +
		"User Data:\n" + string(data)

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.ReportModel, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: systemText("You are an expert, friendly, and encouraging financial advisor. " +
			"Provide a clear, concise, and actionable financial health report based on the JSON data provided by the user. " +
			"The entire response must be in Markdown. Analyze the data in the context of Indonesian Rupiah (IDR)."),
	})
	if err != nil {
		return "", fmt.Errorf("HealthReport: generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("HealthReport: empty response from model")
	}
	return text, nil
}

var _ Model = (*GeminiModel)(nil)
