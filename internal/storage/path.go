package storage

import (
	"path"
	"strings"
)

// HasExtension reports whether a file name carries an extension. A leading
// dot marks a hidden name, not an extension: ".shelf" has none.
func HasExtension(name string) bool {
	return path.Ext(strings.TrimLeft(path.Base(name), ".")) != ""
}

// IsHidden reports whether any component of the relative slash path starts
// with a dot.
func IsHidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
