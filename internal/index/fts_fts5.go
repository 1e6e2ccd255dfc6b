//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
			path UNINDEXED,
			search_index,
			tokenize = 'trigram'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, search string) error {
	_, _ = tx.Exec(`DELETE FROM files_fts WHERE path = ?`, path)
	_, err := tx.Exec(`INSERT INTO files_fts (path, search_index) VALUES (?, ?)`, path, search)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, cond string, args ...any) error {
	if _, err := tx.Exec(`DELETE FROM files_fts WHERE `+cond, args...); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

func ftsReset(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM files_fts`); err != nil {
		return fmt.Errorf("index: reset fts: %w", err)
	}
	return nil
}

// filterClause uses the trigram index for terms it can serve and falls back
// to a plain substring scan for shorter ones.
func filterClause(f string) (string, []any) {
	if utf8.RuneCountInString(f) < 3 {
		return "instr(search_index, ?) > 0", []any{f}
	}
	quoted := `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	return "path IN (SELECT path FROM files_fts WHERE files_fts MATCH ?)", []any{quoted}
}
