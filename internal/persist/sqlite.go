package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

// DefaultHistory is how many snapshots a SQLiteStore keeps.
const DefaultHistory = 50

// SQLiteStore appends every saved snapshot to a table and loads the latest.
// Older rows are pruned beyond the history limit.
type SQLiteStore struct {
	db      *sql.DB
	history int
}

// SnapshotInfo describes one stored snapshot without its body.
type SnapshotInfo struct {
	ID       int64     `json:"id"`
	Revision int64     `json:"revision"`
	SavedAt  time.Time `json:"savedAt"`
}

// OpenSQLite opens (or creates) the database at path and applies pending
// migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("OpenSQLite: open db: %w", err)
	}
	// One writer at a time; sqlite serializes anyway.
	db.SetMaxOpenConns(1)

	if _, err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("OpenSQLite: %w", err)
	}
	return &SQLiteStore{db: db, history: DefaultHistory}, nil
}

// DB exposes the underlying handle for migration tooling.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// SetHistory changes how many snapshots are retained. Values below 1 keep
// only the latest.
func (s *SQLiteStore) SetHistory(n int) {
	if n < 1 {
		n = 1
	}
	s.history = n
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Load(ctx context.Context) (store.Snapshot, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return store.Snapshot{}, domain.External("sqlite", "load", err)
	}
	return Decode([]byte(body))
}

func (s *SQLiteStore) Save(ctx context.Context, snap store.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.External("sqlite", "save", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (revision, saved_at, body) VALUES (?, ?, ?)`,
		snap.Revision, time.Now().UTC().Format(time.RFC3339Nano), string(data),
	); err != nil {
		return domain.External("sqlite", "save", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`,
		s.history,
	); err != nil {
		return domain.External("sqlite", "prune", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.External("sqlite", "save", err)
	}
	return nil
}

// History lists stored snapshots, newest first.
func (s *SQLiteStore) History(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, revision, saved_at FROM snapshots ORDER BY id DESC`)
	if err != nil {
		return nil, domain.External("sqlite", "history", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var savedAt string
		if err := rows.Scan(&info.ID, &info.Revision, &savedAt); err != nil {
			return nil, domain.External("sqlite", "history", err)
		}
		info.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
