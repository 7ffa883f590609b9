package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/dvloznov/household-ledger/internal/config"
	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/ledger"
	"github.com/dvloznov/household-ledger/internal/logger"
	"github.com/dvloznov/household-ledger/internal/persist"
	"github.com/dvloznov/household-ledger/internal/store"
)

// storageFlags selects the snapshot every command works on.
type storageFlags struct {
	backend string
	path    string
	bucket  string
	user    string
}

func (f *storageFlags) register(fs *flag.FlagSet, cfg config.Config) {
	fs.StringVar(&f.backend, "storage", cfg.Storage.Backend, "Storage backend: file, sqlite or gcs")
	fs.StringVar(&f.path, "storage-path", cfg.Storage.Path, "Snapshot file or sqlite database path")
	fs.StringVar(&f.bucket, "bucket", cfg.Storage.Bucket, "GCS bucket for the gcs backend")
	fs.StringVar(&f.user, "user", "", "User id to act as or report on (defaults to the current user)")
}

func (f *storageFlags) storage(cfg config.Config) config.Storage {
	st := cfg.Storage
	st.Backend, st.Path, st.Bucket = f.backend, f.path, f.bucket
	return st
}

// workspace is an opened ledger: the dispatcher over the loaded snapshot
// plus the store it came from. Mutations are saved synchronously.
type workspace struct {
	store  persist.Store
	ledger *ledger.Dispatcher
	close  func() error
	log    zerolog.Logger
}

func openWorkspace(ctx context.Context, f *storageFlags) (*workspace, error) {
	cfg := loadConfig()
	// Only problems are logged; command output goes to stdout.
	level := "warn"
	if cfg.Log.Level == "debug" {
		level = "debug"
	}
	log := logger.NewWithOptions(logger.Options{Level: level, Out: os.Stderr})

	st, closeStore, err := persist.Open(ctx, f.storage(cfg))
	if err != nil {
		return nil, err
	}
	snap, err := persist.LoadOrSeed(ctx, st, time.Now(), log)
	if err != nil {
		closeStore()
		return nil, err
	}
	return &workspace{
		store:  st,
		ledger: ledger.NewDispatcher(snap, log),
		close:  closeStore,
		log:    log,
	}, nil
}

// apply dispatches m and saves the resulting snapshot.
func (w *workspace) apply(ctx context.Context, m ledger.Mutation) (store.Snapshot, error) {
	snap, err := w.ledger.Dispatch(ctx, m)
	if err != nil {
		return snap, err
	}
	if err := w.store.Save(ctx, snap); err != nil {
		return snap, fmt.Errorf("saving snapshot: %w", err)
	}
	return snap, nil
}

// user resolves the -user flag against the snapshot's current user.
func (w *workspace) user(flagUser string) string {
	if flagUser != "" {
		return flagUser
	}
	return w.ledger.Snapshot().CurrentUser
}

// actingUser is like user but never returns domain.AllUsers, for commands
// that create something owned by one person.
func (w *workspace) actingUser(flagUser string) (string, error) {
	u := w.user(flagUser)
	if u != domain.AllUsers {
		return u, nil
	}
	s := w.ledger.Snapshot()
	if len(s.Users) == 0 {
		return "", domain.NewValidationError("user", "no users are set up")
	}
	return s.Users[0].ID, nil
}

// loadConfig reads LEDGER_CONFIG and the environment. Broken settings fall
// back to the defaults with a warning.
func loadConfig() config.Config {
	cfg, err := config.Load(os.Getenv("LEDGER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; using defaults\n", err)
		return config.Default()
	}
	return cfg
}

// printMarkdown renders md for the terminal, falling back to the raw text.
func printMarkdown(w io.Writer, md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err == nil {
		if out, err := r.Render(md); err == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	fmt.Fprint(w, md)
}

// cell escapes a value for a markdown table.
func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
