// Package mirror wires the optional read-only copies of the ledger, the
// BigQuery warehouse and the Notion database, into a job router.
package mirror

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dvloznov/household-ledger/internal/config"
	infraBQ "github.com/dvloznov/household-ledger/internal/infra/bigquery"
	"github.com/dvloznov/household-ledger/internal/jobs"
	"github.com/dvloznov/household-ledger/internal/notionsync"
)

// Register adds a handler to r for every mirror enabled in cfg. A mirror
// whose client cannot be created is logged and left out. The returned
// functions close the clients.
func Register(ctx context.Context, cfg config.Config, r *jobs.Router, log zerolog.Logger) []func() error {
	var closers []func() error

	if cfg.Warehouse.Enabled {
		wh, err := infraBQ.NewWarehouse(ctx, cfg.Warehouse.ProjectID, cfg.Warehouse.Dataset, log)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create BigQuery client - warehouse sync disabled")
		} else if err := wh.EnsureDataset(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to prepare BigQuery dataset - warehouse sync disabled")
			wh.Close()
		} else {
			r.Handle(jobs.JobTypeSyncWarehouse, wh.Sync)
			closers = append(closers, wh.Close)
		}
	}

	if cfg.Notion.Enabled {
		syncer := notionsync.NewSyncer(notionsync.NewNotionClient(cfg.Notion.Token), cfg.Notion.DatabaseID, false)
		r.Handle(jobs.JobTypeSyncNotion, syncer.SyncSnapshot)
	}

	return closers
}

// CloseAll runs every closer, logging failures.
func CloseAll(closers []func() error, log zerolog.Logger) {
	for _, c := range closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("Failed to close mirror client")
		}
	}
}
