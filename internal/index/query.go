package index

import (
	"fmt"
	"strings"

	"github.com/starford/shelf/internal/models"
)

// FileQuery selects and orders records.
type FileQuery struct {
	// Prefix limits results to a folder subtree. Empty means everything.
	Prefix string
	// Filter is matched case-insensitively against the search text.
	Filter string
	// SortKey is "path" or the name of an item of Schema.
	SortKey    string
	Descending bool
	// Schema tells how SortKey's values are shaped. Without it, or when it
	// has no item named SortKey, records are ordered by path.
	Schema *models.SchemaDefinition
}

// QueryFiles returns the records matching q.
func (db *DB) QueryFiles(q FileQuery) ([]models.Record, error) {
	var (
		where []string
		args  []any
	)
	cond, condArgs := underClause("path", q.Prefix)
	where = append(where, cond)
	args = append(args, condArgs...)

	if f := strings.ToLower(strings.TrimSpace(q.Filter)); f != "" {
		c, a := filterClause(f)
		where = append(where, c)
		args = append(args, a...)
	}

	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	order := "path " + dir
	if expr, ok := sortExpr(q.SortKey, q.Schema); ok {
		order = expr + " " + dir + ", path ASC"
		args = append(args, jsonPath(q.SortKey))
	}

	rows, err := db.conn.Query(`SELECT path, modified, attributes FROM files WHERE `+
		strings.Join(where, " AND ")+` ORDER BY `+order, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query files: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// sortExpr returns the ORDER BY expression for key. The expression takes the
// JSON path of the attribute's value as its single parameter.
func sortExpr(key string, def *models.SchemaDefinition) (string, bool) {
	if key == "" || key == "path" || def == nil {
		return "", false
	}
	item, ok := def.Item(key)
	if !ok {
		return "", false
	}
	switch item.Type {
	case models.FieldDatesPairCollection:
		// Last pair's end date.
		return `json_extract(attributes, ? || '[#-1].finished')`, true
	case models.FieldDateCollection:
		return `json_extract(attributes, ? || '[0]')`, true
	case models.FieldTextCollection:
		return `lower(json_extract(attributes, ? || '[0]'))`, true
	case models.FieldText, models.FieldImage:
		return `lower(json_extract(attributes, ?))`, true
	default:
		return `json_extract(attributes, ?)`, true
	}
}

// jsonPath addresses the payload of attribute name in the stored JSON.
func jsonPath(name string) string {
	return `$."` + strings.ReplaceAll(name, `"`, `\"`) + `".value`
}
