package index

import (
	"fmt"
	"strings"

	"github.com/starford/shelf/internal/models"
)

// UpsertFolder records a folder. Hidden folders (leading dot) are skipped.
func (db *DB) UpsertFolder(f models.Folder) error {
	if strings.HasPrefix(f.Name, ".") {
		return nil
	}
	_, err := db.conn.Exec(`
		INSERT INTO folders (path, name) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET name = excluded.name
	`, f.Path, f.Name)
	if err != nil {
		return fmt.Errorf("index: upsert folder: %w", err)
	}
	return nil
}

// RemoveFolderSubtree deletes folder, every folder below it and every file
// below it in one transaction. It returns the number of rows removed.
func (db *DB) RemoveFolderSubtree(folder string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cond, args := underClause("path", folder)
	res, err := tx.Exec(`DELETE FROM folders WHERE `+cond, args...)
	if err != nil {
		return 0, fmt.Errorf("index: remove folders under %q: %w", folder, err)
	}
	folders, _ := res.RowsAffected()
	files, err := removeFiles(tx, folder)
	if err != nil {
		return 0, err
	}
	return folders + files, tx.Commit()
}

func (db *DB) HasFolder(path string) (bool, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM folders WHERE path = ?`, path).Scan(&n); err != nil {
		return false, fmt.Errorf("index: has folder: %w", err)
	}
	return n > 0, nil
}

// QueryFolders returns every folder ordered by path, with schema flags
// computed against res.
func (db *DB) QueryFolders(res SchemaResolver) ([]models.Folder, error) {
	return db.queryFolders(res, "")
}

// QueryFoldersUnderSchema returns the folders governed by the schema owned by
// owner: owner itself and its descendants that do not declare their own
// schema or sit below one that does.
func (db *DB) QueryFoldersUnderSchema(res SchemaResolver, owner string) ([]models.Folder, error) {
	all, err := db.queryFolders(res, owner)
	if err != nil {
		return nil, err
	}
	target := schemaPathOf(res, owner)
	if target == "" {
		return nil, nil
	}
	out := all[:0]
	for _, f := range all {
		if f.SchemaFilePath == target {
			out = append(out, f)
		}
	}
	return out, nil
}

func schemaPathOf(res SchemaResolver, owner string) string {
	rec, ok := res.Resolve(owner)
	if !ok || rec.Location.OwnerFolder != owner {
		return ""
	}
	return rec.Location.SchemaPath
}

func (db *DB) queryFolders(res SchemaResolver, under string) ([]models.Folder, error) {
	cond, args := underClause("path", under)
	rows, err := db.conn.Query(`SELECT path, name FROM folders WHERE `+cond+` ORDER BY path`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query folders: %w", err)
	}
	defer rows.Close()

	var out []models.Folder
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.Path, &f.Name); err != nil {
			return nil, fmt.Errorf("index: scan folder: %w", err)
		}
		if rec, ok := res.Resolve(f.Path); ok {
			f.HasSchema = true
			f.SchemaFilePath = rec.Location.SchemaPath
		}
		f.OwnSchema = res.Owns(f.Path)
		out = append(out, f)
	}
	return out, rows.Err()
}
