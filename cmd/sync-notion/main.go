package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/household-ledger/internal/config"
	"github.com/dvloznov/household-ledger/internal/logger"
	"github.com/dvloznov/household-ledger/internal/notionsync"
	"github.com/dvloznov/household-ledger/internal/persist"
)

func main() {
	cfg, err := config.Load(os.Getenv("LEDGER_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.RegisterFlags(flag.CommandLine)
	notionDBID := flag.String("notion-db-id", cfg.Notion.DatabaseID, "Notion database ID (or set NOTION_DATABASE_ID env)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if cfg.Notion.Token == "" {
		log.Fatal().Msg("Error: NOTION_TOKEN is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, closeStore, err := persist.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer closeStore()

	snap, err := persist.LoadOrSeed(ctx, st, time.Now(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ledger")
	}

	log.Info().
		Str("storage", cfg.Storage.Backend).
		Int64("revision", snap.Revision).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	syncer := notionsync.NewSyncer(notionsync.NewNotionClient(cfg.Notion.Token), *notionDBID, *dryRun)
	res, err := syncer.Sync(ctx, snap)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d updated, %d archived, %d unchanged.\n",
		res.Created, res.Updated, res.Archived, res.Unchanged)
}
