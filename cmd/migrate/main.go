package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/dvloznov/household-ledger/internal/config"
	"github.com/dvloznov/household-ledger/internal/logger"
	"github.com/dvloznov/household-ledger/internal/persist"
)

var (
	dbPath   = flag.String("db", "ledger.db", "Path to the sqlite database")
	status   = flag.Bool("status", false, "List migrations without applying them")
	copyFrom = flag.String("copy-from", "", "After migrating, copy the latest snapshot from this backend (file or gcs) into the database")
	srcPath  = flag.String("src-path", "ledger.json", "Snapshot file for -copy-from=file")
	bucket   = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for -copy-from=gcs")
	object   = flag.String("object", "ledger/snapshot.json", "GCS object for -copy-from=gcs")
)

func main() {
	flag.Parse()
	log := logger.New()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open database")
	}
	defer db.Close()

	log.Info().Str("db", *dbPath).Msg("Opened database")

	applied, err := run(ctx, db, *status, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	switch {
	case *status:
	case applied == 0:
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	default:
		log.Info().Int("applied", applied).Msg("Successfully applied migrations")
	}

	if *copyFrom != "" && !*status {
		if err := copySnapshot(ctx, log); err != nil {
			log.Fatal().Err(err).Str("from", *copyFrom).Msg("Copy failed")
		}
	}
}

// run prints one line per embedded migration and applies the pending ones
// unless dryRun is set. It returns how many were applied.
func run(ctx context.Context, db *sql.DB, dryRun bool, out io.Writer) (int, error) {
	all, err := persist.Migrations()
	if err != nil {
		return 0, err
	}
	pending, err := persist.PendingMigrations(ctx, db)
	if err != nil {
		return 0, err
	}
	todo := make(map[int]bool, len(pending))
	for _, m := range pending {
		todo[m.Version] = true
	}

	applied := 0
	for _, m := range all {
		if !todo[m.Version] {
			fmt.Fprintf(out, "  [SKIP] %04d_%s (already applied)\n", m.Version, m.Name)
			continue
		}
		if dryRun {
			fmt.Fprintf(out, "  [PEND] %04d_%s\n", m.Version, m.Name)
			continue
		}
		fmt.Fprintf(out, "  [RUN]  %04d_%s\n", m.Version, m.Name)
		if err := persist.ApplyMigration(ctx, db, m); err != nil {
			return applied, err
		}
		fmt.Fprintf(out, "  [OK]   %04d_%s\n", m.Version, m.Name)
		applied++
	}
	return applied, nil
}

func copySnapshot(ctx context.Context, log zerolog.Logger) error {
	src := config.Storage{Backend: *copyFrom, Path: *srcPath, Bucket: *bucket, Object: *object}
	from, closeFrom, err := persist.Open(ctx, src)
	if err != nil {
		return err
	}
	defer closeFrom()

	snap, err := from.Load(ctx)
	if err != nil {
		return err
	}

	to, closeTo, err := persist.Open(ctx, config.Storage{Backend: config.BackendSQLite, Path: *dbPath})
	if err != nil {
		return err
	}
	defer closeTo()

	if err := to.Save(ctx, snap); err != nil {
		return err
	}
	log.Info().
		Str("from", *copyFrom).
		Int64("revision", snap.Revision).
		Int("transactions", len(snap.Transactions)).
		Msg("Copied snapshot")
	return nil
}
