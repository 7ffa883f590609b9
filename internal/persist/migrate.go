package persist

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"time"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationPattern matches migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is one numbered schema change.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
}

// Migrations returns the embedded migrations ordered by version.
func Migrations() ([]Migration, error) {
	return readMigrations(migrationFS, "migrations")
}

func readMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := migrationPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		content, err := fs.ReadFile(fsys, dir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", e.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     m[2],
			Filename: e.Name(),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// EnsureMigrationsTable creates schema_migrations if it does not exist.
func EnsureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL,
			checksum   TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("EnsureMigrationsTable: %w", err)
	}
	return nil
}

// AppliedMigrations lists the migrations recorded in schema_migrations.
func AppliedMigrations(ctx context.Context, db *sql.DB) ([]AppliedMigration, error) {
	rows, err := db.QueryContext(ctx, `SELECT version, name, applied_at, checksum FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("AppliedMigrations: %w", err)
	}
	defer rows.Close()

	var out []AppliedMigration
	for rows.Next() {
		var am AppliedMigration
		var appliedAt string
		if err := rows.Scan(&am.Version, &am.Name, &appliedAt, &am.Checksum); err != nil {
			return nil, fmt.Errorf("AppliedMigrations: scan: %w", err)
		}
		am.AppliedAt, _ = time.Parse(time.RFC3339, appliedAt)
		out = append(out, am)
	}
	return out, rows.Err()
}

// ApplyMigration runs m and records it in one transaction.
func ApplyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ApplyMigration: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("ApplyMigration: %04d_%s: %w", m.Version, m.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at, checksum) VALUES (?, ?, ?, ?)`,
		m.Version, m.Name, time.Now().UTC().Format(time.RFC3339), m.Checksum,
	); err != nil {
		return fmt.Errorf("ApplyMigration: recording %04d: %w", m.Version, err)
	}
	return tx.Commit()
}

// PendingMigrations returns the embedded migrations not yet applied. A
// checksum mismatch on an applied migration is an error.
func PendingMigrations(ctx context.Context, db *sql.DB) ([]Migration, error) {
	if err := EnsureMigrationsTable(ctx, db); err != nil {
		return nil, err
	}
	all, err := Migrations()
	if err != nil {
		return nil, err
	}
	applied, err := AppliedMigrations(ctx, db)
	if err != nil {
		return nil, err
	}
	done := make(map[int]string, len(applied))
	for _, am := range applied {
		done[am.Version] = am.Checksum
	}

	var pending []Migration
	for _, m := range all {
		sum, ok := done[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if sum != m.Checksum {
			return nil, fmt.Errorf("PendingMigrations: %04d_%s was modified after being applied", m.Version, m.Name)
		}
	}
	return pending, nil
}

// Migrate applies all pending migrations and returns them.
func Migrate(ctx context.Context, db *sql.DB) ([]Migration, error) {
	pending, err := PendingMigrations(ctx, db)
	if err != nil {
		return nil, err
	}
	for _, m := range pending {
		if err := ApplyMigration(ctx, db, m); err != nil {
			return nil, err
		}
	}
	return pending, nil
}
