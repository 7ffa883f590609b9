// Package persist saves and restores ledger snapshots. Each backend stores
// the same JSON document; only the medium differs.
package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/household-ledger/internal/store"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// Store is a persistence backend.
type Store interface {
	// Load returns the most recently saved snapshot, or ErrNoSnapshot.
	Load(ctx context.Context) (store.Snapshot, error)
	// Save replaces the saved snapshot with s.
	Save(ctx context.Context, s store.Snapshot) error
}

// LoadOrSeed loads the saved snapshot, falling back to the seed data set on
// first run. Any other load failure is returned; the caller decides whether
// to continue with seed data.
func LoadOrSeed(ctx context.Context, st Store, now time.Time, log zerolog.Logger) (store.Snapshot, error) {
	s, err := st.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		log.Info().Msg("No saved snapshot, starting from seed data")
		return store.Seed(now), nil
	}
	if err != nil {
		return store.Seed(now), fmt.Errorf("LoadOrSeed: %w", err)
	}
	log.Info().Int64("revision", s.Revision).Int("transactions", len(s.Transactions)).Msg("Loaded snapshot")
	return s, nil
}
