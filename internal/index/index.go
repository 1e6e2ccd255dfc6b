package index

import "github.com/starford/shelf/internal/models"

// SchemaResolver answers which schema governs a path. The folder queries use
// it to compute schema flags at read time.
type SchemaResolver interface {
	Resolve(path string) (models.SchemaRecord, bool)
	Owns(folder string) bool
}

// FileIndex defines the index operations the engine depends on.
// Consumers should depend on this interface rather than the concrete *DB type.
type FileIndex interface {
	UpsertFile(r models.Record) error
	UpsertFolder(f models.Folder) error
	RemoveFile(path string) error
	RemoveFilesUnder(folder string) (int64, error)
	RemoveFolderSubtree(folder string) (int64, error)
	HasFolder(path string) (bool, error)
	GetFile(path string) (*models.Record, error)
	QueryFiles(q FileQuery) ([]models.Record, error)
	QueryFolders(res SchemaResolver) ([]models.Folder, error)
	QueryFoldersUnderSchema(res SchemaResolver, owner string) ([]models.Folder, error)
	Reset() error
	Close() error
}

// Verify *DB satisfies FileIndex at compile time.
var _ FileIndex = (*DB)(nil)
