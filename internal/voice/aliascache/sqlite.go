package aliascache

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/quangvo/agripos/pkg/catalog"
)

// sqliteSchema holds the snapshot table. One row per alias; the table is
// wiped and rewritten on every Save to mirror the full-replace sync
// semantics.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS voice_aliases (
    alias_name TEXT NOT NULL,
    product_id INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteStore is a [SnapshotStore] backed by a local SQLite file — the
// device-storage layer that keeps alias resolution working offline.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ SnapshotStore = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the snapshot database at path and
// ensures the schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("aliascache: open sqlite %q: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("aliascache: migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save implements [SnapshotStore.Save]. The replacement is transactional:
// a failure mid-write leaves the previous snapshot intact.
func (s *SQLiteStore) Save(ctx context.Context, aliases []catalog.Alias) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("aliascache: begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM voice_aliases`); err != nil {
		return fmt.Errorf("aliascache: clear snapshot: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO voice_aliases (alias_name, product_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("aliascache: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range aliases {
		if _, err := stmt.ExecContext(ctx, a.AliasName, a.ProductID); err != nil {
			return fmt.Errorf("aliascache: insert alias %q: %w", a.AliasName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("aliascache: commit snapshot: %w", err)
	}
	return nil
}

// Load implements [SnapshotStore.Load].
func (s *SQLiteStore) Load(ctx context.Context) ([]catalog.Alias, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT alias_name, product_id FROM voice_aliases ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("aliascache: read snapshot: %w", err)
	}
	defer rows.Close()

	var aliases []catalog.Alias
	for rows.Next() {
		var a catalog.Alias
		if err := rows.Scan(&a.AliasName, &a.ProductID); err != nil {
			return nil, fmt.Errorf("aliascache: scan snapshot row: %w", err)
		}
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aliascache: iterate snapshot: %w", err)
	}
	return aliases, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
