package persist

import (
	"context"
	"fmt"

	"github.com/dvloznov/household-ledger/internal/config"
)

// Open builds the backend selected by cfg. The returned close function
// releases any client or database handle.
func Open(ctx context.Context, cfg config.Storage) (Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileStore(cfg.Path), noop, nil
	case config.BackendSQLite:
		st, err := OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, noop, err
		}
		if cfg.History > 0 {
			st.SetHistory(cfg.History)
		}
		return st, st.Close, nil
	case config.BackendGCS:
		client, err := NewGCSClient(ctx)
		if err != nil {
			return nil, noop, err
		}
		return NewGCSStore(client, cfg.Bucket, cfg.Object), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("Open: unknown storage backend %q", cfg.Backend)
	}
}
