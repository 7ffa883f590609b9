package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/household-ledger/internal/logger"
	"github.com/dvloznov/household-ledger/internal/store"
)

const (
	// PageSize is the number of pages requested per database query.
	PageSize = 100
)

// Result counts what a sync did, or would do in dry-run mode.
type Result struct {
	Created   int
	Updated   int
	Archived  int
	Unchanged int
	Failed    int
}

// Syncer mirrors ledger transactions into a Notion database. Pages are
// keyed by their "Transaction ID" property.
type Syncer struct {
	client     NotionService
	databaseID string
	dryRun     bool
}

// NewSyncer creates a Syncer. In dry-run mode nothing is written; the
// planned changes are logged and counted.
func NewSyncer(client NotionService, databaseID string, dryRun bool) *Syncer {
	return &Syncer{client: client, databaseID: databaseID, dryRun: dryRun}
}

// SyncSnapshot runs Sync and reports only the error, for use as a job handler.
func (sy *Syncer) SyncSnapshot(ctx context.Context, s store.Snapshot) error {
	_, err := sy.Sync(ctx, s)
	return err
}

// Sync brings the database in line with s:
// 1. Pages without a Transaction ID, for deleted transactions, or
// duplicating another page are archived
// 2. Transactions without a page get one
// 3. Pages whose fingerprint differs are updated
//
// Individual page failures are logged and counted; the sync carries on and
// returns an error at the end if any failed.
func (sy *Syncer) Sync(ctx context.Context, s store.Snapshot) (Result, error) {
	log := logger.FromContext(ctx).With().
		Int64("revision", s.Revision).
		Bool("dry_run", sy.dryRun).
		Logger()

	log.Info().Int("transaction_count", len(s.Transactions)).Msg("Starting transaction sync to Notion")

	pages, err := queryAllNotionPages(ctx, sy.client, sy.databaseID)
	if err != nil {
		return Result{}, fmt.Errorf("Sync: failed to query Notion pages: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	valid := make(map[string]bool, len(s.Transactions))
	for _, tx := range s.Transactions {
		valid[tx.Common().ID] = true
	}

	var res Result
	existing := make(map[string]notionapi.Page, len(pages))
	for _, page := range pages {
		txID := plainText(page, PropTransactionID)
		_, dup := existing[txID]
		if txID != "" && valid[txID] && !dup {
			existing[txID] = page
			continue
		}

		pageLog := log.With().Str("transaction_id", txID).Str("page_id", string(page.ID)).Logger()
		if sy.dryRun {
			pageLog.Info().Msg("[DRY RUN] Would archive stale Notion page")
			res.Archived++
			continue
		}
		if err := sy.client.ArchivePage(ctx, string(page.ID)); err != nil {
			pageLog.Warn().Err(err).Msg("Failed to archive stale Notion page")
			res.Failed++
			continue
		}
		pageLog.Info().Msg("Archived stale Notion page")
		res.Archived++
	}

	for _, tx := range s.Transactions {
		id := tx.Common().ID
		txLog := log.With().Str("transaction_id", id).Logger()

		page, found := existing[id]
		if found && plainText(page, PropFingerprint) == Fingerprint(tx, s) {
			res.Unchanged++
			continue
		}

		if sy.dryRun {
			if found {
				txLog.Info().Str("page_id", string(page.ID)).Msg("[DRY RUN] Would update Notion page")
				res.Updated++
			} else {
				txLog.Info().Msg("[DRY RUN] Would create Notion page")
				res.Created++
			}
			continue
		}

		props := TransactionProperties(tx, s)
		if found {
			if _, err := sy.client.UpdatePage(ctx, string(page.ID), props); err != nil {
				txLog.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			txLog.Debug().Str("page_id", string(page.ID)).Msg("Updated Notion page")
			res.Updated++
			continue
		}

		created, err := sy.client.CreatePage(ctx, sy.databaseID, props)
		if err != nil {
			txLog.Warn().Err(err).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		txLog.Debug().Str("page_id", string(created.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("unchanged", res.Unchanged).
		Int("failed", res.Failed).
		Msg("Transaction sync completed")

	if res.Failed > 0 {
		return res, fmt.Errorf("Sync: %d Notion page operations failed", res.Failed)
	}
	return res, nil
}

// queryAllNotionPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: PageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return allPages, nil
}
