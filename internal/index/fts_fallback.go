//go:build !sqlite_fts5

package index

import "database/sql"

func initFTS(_ *sql.DB) error {
	// FTS5 not available; filtering scans files.search_index.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string, _ ...any) error { return nil }

func ftsReset(_ *sql.Tx) error { return nil }

func filterClause(f string) (string, []any) {
	return "instr(search_index, ?) > 0", []any{f}
}
