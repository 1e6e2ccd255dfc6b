package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/shelf/internal/models"
)

// UpsertFile inserts or replaces a record and recomputes its search text.
// A record without a path is ignored.
func (db *DB) UpsertFile(r models.Record) error {
	if r.Path == "" {
		return nil
	}
	attrs := r.Attrs
	if attrs == nil {
		attrs = map[string]models.AttrValue{}
	}
	attrJSON, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("index: encode attributes for %s: %w", r.Path, err)
	}
	search := SearchText(attrs)

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO files (path, modified, attributes, search_index)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			modified     = excluded.modified,
			attributes   = excluded.attributes,
			search_index = excluded.search_index
	`, r.Path, r.Modified, string(attrJSON), search)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.Path, search); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveFile deletes one record. Removing an unknown path is not an error.
func (db *DB) RemoveFile(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: remove file: %w", err)
	}
	if err := ftsDelete(tx, "path = ?", path); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveFilesUnder deletes every record below folder, leaving folders intact.
func (db *DB) RemoveFilesUnder(folder string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	n, err := removeFiles(tx, folder)
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func removeFiles(tx *sql.Tx, folder string) (int64, error) {
	cond, args := underClause("path", folder)
	res, err := tx.Exec(`DELETE FROM files WHERE `+cond, args...)
	if err != nil {
		return 0, fmt.Errorf("index: remove files under %q: %w", folder, err)
	}
	if err := ftsDelete(tx, cond, args...); err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// GetFile returns the record at path, or nil if it is not indexed.
func (db *DB) GetFile(path string) (*models.Record, error) {
	row := db.conn.QueryRow(`SELECT path, modified, attributes FROM files WHERE path = ?`, path)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (models.Record, error) {
	var (
		r     models.Record
		attrs string
	)
	if err := s.Scan(&r.Path, &r.Modified, &attrs); err != nil {
		return models.Record{}, err
	}
	if err := json.Unmarshal([]byte(attrs), &r.Attrs); err != nil {
		return models.Record{}, fmt.Errorf("index: decode attributes for %s: %w", r.Path, err)
	}
	return r, nil
}

// Counts returns the number of indexed files and folders.
func (db *DB) Counts() (files, folders int, err error) {
	err = db.conn.QueryRow(`SELECT (SELECT count(*) FROM files), (SELECT count(*) FROM folders)`).Scan(&files, &folders)
	if err != nil {
		err = fmt.Errorf("index: counts: %w", err)
	}
	return files, folders, err
}
