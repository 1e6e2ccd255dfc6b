package index

import (
	"sort"
	"strings"

	"github.com/starford/shelf/internal/models"
)

// SearchText builds the lower-cased text a record is filtered by. Only
// attribute values contribute; keys are visited in sorted order.
func SearchText(attrs map[string]models.AttrValue) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if t := attrs[k].Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// underClause matches column against folder and its descendants by whole path
// components. substr avoids LIKE so '%' and '_' in names are literal.
func underClause(column, folder string) (string, []any) {
	if folder == "" {
		return "1 = 1", nil
	}
	prefix := folder + "/"
	return "(" + column + " = ? OR substr(" + column + ", 1, ?) = ?)",
		[]any{folder, len([]rune(prefix)), prefix}
}
