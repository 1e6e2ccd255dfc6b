package schema

import (
	"path"
	"strings"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
)

const (
	// InternalFolder is the reserved per-folder directory holding the schema.
	InternalFolder = ".shelf"
	// FileName is the only file name accepted inside InternalFolder.
	FileName = "schema.yaml"
	// Version is stamped on every saved schema.
	Version = "1.0"
)

// LocationOf returns where the schema owned by folder lives.
func LocationOf(folder string) models.SchemaLocation {
	return models.SchemaLocation{
		SchemaPath:  path.Join(folder, InternalFolder, FileName),
		OwnerFolder: folder,
	}
}

// Locate canonicalizes a folder, its reserved folder, or its schema file into
// a SchemaLocation. isDir tells whether p names a directory.
func Locate(p string, isDir bool) (models.SchemaLocation, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		if !isDir {
			return models.SchemaLocation{}, apperr.New(apperr.KindInvariant, "Empty schema path")
		}
		return LocationOf(""), nil
	}
	base := path.Base(p)
	if base == "." || base == ".." {
		return models.SchemaLocation{}, apperr.New(apperr.KindInvariant, "Invalid schema path").WithInfo(p)
	}

	var schemaPath string
	switch {
	case isDir && base == InternalFolder:
		schemaPath = path.Join(p, FileName)
	case isDir:
		schemaPath = path.Join(p, InternalFolder, FileName)
	case base == FileName:
		schemaPath = p
	default:
		return models.SchemaLocation{}, apperr.New(apperr.KindMalformed, "Schema file must be named "+FileName).WithInfo(p)
	}

	dir, ok := Parent(schemaPath)
	if !ok {
		return models.SchemaLocation{}, apperr.New(apperr.KindInvariant, "Unable to get parent from schema path").WithInfo(schemaPath)
	}
	owner, ok := Parent(dir)
	if !ok {
		return models.SchemaLocation{}, apperr.New(apperr.KindInvariant, "Unable to get owner folder from schema path").WithInfo(schemaPath)
	}
	return models.SchemaLocation{SchemaPath: schemaPath, OwnerFolder: owner}, nil
}

// IsSchemaPath reports whether p is a file inside a reserved folder. Only such
// files are routed to the schema cache; the cache then rejects any of them
// not named FileName.
func IsSchemaPath(p string) bool {
	dir, ok := Parent(p)
	return ok && path.Base(dir) == InternalFolder
}
