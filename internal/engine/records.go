package engine

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/index"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/notify"
	"github.com/starford/shelf/internal/parser"
)

// RecordView is a record read straight from disk together with the schema
// it was parsed against.
type RecordView struct {
	Record     models.Record        `json:"record"`
	Schema     *models.SchemaRecord `json:"schema,omitempty"`
	ParseError *apperr.Error        `json:"parseError,omitempty"`
}

// ReadRecord reads rel from disk, body included. Attributes are parsed when a
// schema governs rel; a parse failure is reported in the view, not as error.
func (e *Engine) ReadRecord(rel string) (*RecordView, error) {
	files := e.Files()
	if files == nil {
		return nil, noRoot()
	}
	content, err := files.Read(rel)
	if err != nil {
		kind := apperr.KindIO
		if errors.Is(err, fs.ErrNotExist) {
			kind = apperr.KindNotFound
		}
		return nil, apperr.Wrap(kind, "Error reading file", err).
			WithInfo(rel).
			WithAction(apperr.ActionFileReadRetry, "Retry")
	}
	body := content.Body
	view := &RecordView{Record: models.Record{
		Path:     rel,
		Modified: content.Modified,
		Markdown: &body,
		Attrs:    map[string]models.AttrValue{},
	}}
	if sr, ok := e.schemas.Resolve(rel); ok {
		view.Schema = &sr
		view.Record.Attrs, view.ParseError = parser.ParseAttributes(content.FrontMatter, sr.Schema)
	}
	return view, nil
}

// SaveRecord writes r to disk. Unless forced, the write is refused when the
// file changed on disk since r was read. A nil Markdown keeps the current
// body. The index catches up through the watcher.
func (e *Engine) SaveRecord(r models.Record, forced bool) (models.Record, error) {
	if r.Path == "" {
		return models.Record{}, apperr.New(apperr.KindInvariant, "Record has no path")
	}
	files := e.Files()
	if files == nil {
		return models.Record{}, noRoot()
	}

	var existing string
	current, err := files.Read(r.Path)
	switch {
	case err == nil:
		existing = current.Body
		if !forced && current.Modified != r.Modified {
			return models.Record{}, apperr.New(apperr.KindIO, "File was changed on disk").
				WithInfo(r.Path).
				WithAction(apperr.ActionFileSaveRetryForced, "Overwrite")
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return models.Record{}, apperr.Wrap(apperr.KindIO, "Error reading file", err).
			WithInfo(r.Path).
			WithAction(apperr.ActionFileReadRetry, "Retry")
	}

	body := existing
	if r.Markdown != nil {
		body = *r.Markdown
	}
	fm, err := parser.EncodeAttributes(r.Attrs)
	if err != nil {
		return models.Record{}, apperr.Wrap(apperr.KindInvariant, "Error serializing attributes", err).WithInfo(r.Path)
	}
	mod, err := files.Write(r.Path, fm, body)
	if err != nil {
		return models.Record{}, apperr.Wrap(apperr.KindIO, "Error saving file", err).
			WithInfo(r.Path).
			WithAction(apperr.ActionFileSaveRetry, "Retry")
	}
	r.Modified = mod
	r.Markdown = &body
	e.logger.Info("engine: record saved", slog.String("path", r.Path), slog.Bool("forced", forced))
	return r, nil
}

// SaveSchema writes def as the schema of folder rel, re-parses the files it
// governs and announces the new schema list.
func (e *Engine) SaveSchema(rel string, def models.SchemaDefinition) (models.SchemaDefinition, error) {
	if e.Root() == "" {
		return models.SchemaDefinition{}, noRoot()
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()

	saved, err := e.schemas.Save(rel, def)
	if err != nil {
		return models.SchemaDefinition{}, err
	}
	loc, err := e.schemas.Locate(rel)
	if err != nil {
		return models.SchemaDefinition{}, err
	}
	if scanErr := e.reindex(loc.OwnerFolder); scanErr != nil {
		e.emit(notify.Failure(scanErr))
	}
	e.emit(notify.SchemasChanged(e.schemas.List()))
	return saved, nil
}

// FileQuery selects records for QueryFiles.
type FileQuery struct {
	Folder     string `json:"folder"`
	Filter     string `json:"filter"`
	SortKey    string `json:"sort"`
	Descending bool   `json:"desc"`
}

// QueryFiles lists indexed records. Sorting by an attribute uses the schema
// governing q.Folder to know the attribute's shape.
func (e *Engine) QueryFiles(q FileQuery) ([]models.Record, error) {
	iq := index.FileQuery{Prefix: q.Folder, Filter: q.Filter, SortKey: q.SortKey, Descending: q.Descending}
	if sr, ok := e.schemas.Resolve(q.Folder); ok {
		iq.Schema = &sr.Schema
	}
	return e.db.QueryFiles(iq)
}

func (e *Engine) Folders() ([]models.Folder, error) {
	return e.db.QueryFolders(e.schemas.Store())
}

// FoldersUnderSchema lists the folders governed by the schema at
// schemaPath, which may name the schema file, its reserved folder or the
// owning folder.
func (e *Engine) FoldersUnderSchema(schemaPath string) ([]models.Folder, error) {
	loc, err := e.schemas.Locate(schemaPath)
	if err != nil {
		return nil, err
	}
	return e.db.QueryFoldersUnderSchema(e.schemas.Store(), loc.OwnerFolder)
}

// SchemaFor returns the schema governing rel.
func (e *Engine) SchemaFor(rel string) (models.SchemaRecord, error) {
	sr, ok := e.schemas.Resolve(rel)
	if !ok {
		return models.SchemaRecord{}, apperr.New(apperr.KindNotFound, "Schema not found").WithInfo(rel)
	}
	return sr, nil
}

func (e *Engine) SchemaList() map[string]models.SchemaDefinition {
	return e.schemas.List()
}

// SchemaListAll is SchemaList including schemas that declare no items.
func (e *Engine) SchemaListAll() map[string]models.SchemaDefinition {
	return e.schemas.Store().ListAll()
}

func noRoot() *apperr.Error {
	return apperr.New(apperr.KindInvariant, "No root folder").WithAction(apperr.ActionNoRootPath, "Choose folder")
}
