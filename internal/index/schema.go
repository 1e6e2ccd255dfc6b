// Package index is the SQLite cache of indexed files and folders.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS files (
	path         TEXT PRIMARY KEY,
	modified     TEXT NOT NULL DEFAULT '',
	attributes   TEXT NOT NULL DEFAULT '{}' CHECK (json_valid(attributes)),
	search_index TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS folders (
	path TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Reset empties both tables. Used when the root changes.
func (db *DB) Reset() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, q := range []string{`DELETE FROM files`, `DELETE FROM folders`} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("index: reset: %w", err)
		}
	}
	if err := ftsReset(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
