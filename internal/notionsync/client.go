package notionsync

import (
	"context"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/household-ledger/internal/domain"
)

// NotionService is the slice of the Notion API the syncer needs. Failures
// are domain.ExternalServiceError so job retries pick them up.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	// ArchivePage moves a page to the trash.
	ArchivePage(ctx context.Context, pageID string) error
}

// NotionClient implements NotionService with an integration token.
type NotionClient struct {
	api *notionapi.Client
}

func NewNotionClient(token string) *NotionClient {
	return &NotionClient{api: notionapi.NewClient(notionapi.Token(token))}
}

func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	parent := notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: notionapi.DatabaseID(databaseID)}
	page, err := n.api.Page.Create(ctx, &notionapi.PageCreateRequest{Parent: parent, Properties: properties})
	if err != nil {
		return nil, domain.External("notion", "create page", err)
	}
	return page, nil
}

func (n *NotionClient) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := n.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{Properties: properties})
	if err != nil {
		return nil, domain.External("notion", "update page", err)
	}
	return page, nil
}

func (n *NotionClient) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := n.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
	if err != nil {
		return nil, domain.External("notion", "query database", err)
	}
	return resp, nil
}

func (n *NotionClient) ArchivePage(ctx context.Context, pageID string) error {
	if _, err := n.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{Archived: true}); err != nil {
		return domain.External("notion", "archive page", err)
	}
	return nil
}

var _ NotionService = (*NotionClient)(nil)
