package api

import (
	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/engine"
	"github.com/starford/shelf/internal/models"
)

// Service is what the HTTP layer needs from the indexing engine.
// *engine.Engine implements it.
type Service interface {
	Root() string
	QueryFiles(q engine.FileQuery) ([]models.Record, error)
	ReadRecord(rel string) (*engine.RecordView, error)
	SaveRecord(r models.Record, forced bool) (models.Record, error)
	Folders() ([]models.Folder, error)
	FoldersUnderSchema(schemaPath string) ([]models.Folder, error)
	SchemaFor(rel string) (models.SchemaRecord, error)
	SchemaList() map[string]models.SchemaDefinition
	SchemaListAll() map[string]models.SchemaDefinition
	SaveSchema(rel string, def models.SchemaDefinition) (models.SchemaDefinition, error)
}

var _ Service = (*engine.Engine)(nil)

// RootSetter re-anchors the service on a new root folder. It reports whether
// the root changed; a non-nil error with changed=true carries scan warnings.
type RootSetter func(root string) (changed bool, err *apperr.Error)
