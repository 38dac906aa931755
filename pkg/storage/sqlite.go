package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go driver registered as "sqlite"
)

// NewSQLite opens (creating if absent) an embedded SQLite-backed Adapter at
// dataSourceName — a filesystem path, or ":memory:" for an ephemeral
// in-process instance used by tests. This is WyrmDB's default, zero-config
// backend (see SPEC_FULL.md §3), avoiding the cgo toolchain requirement the
// teacher's badger engine never had either.
func NewSQLite(dataSourceName string) (Adapter, error) {
	db, err := sqlx.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("storage: enable foreign keys: %w", err)
	}
	return newSQLRowStore(db, sqliteDialect{}), nil
}
