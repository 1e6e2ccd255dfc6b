package engine

import (
	"log/slog"
	"path"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/notify"
	"github.com/starford/shelf/internal/schema"
	"github.com/starford/shelf/internal/storage"
	"github.com/starford/shelf/internal/watcher"
)

// Result is what handling one event produced.
type Result struct {
	Notifications []notify.Notification
	Errors        []*apperr.Error
}

func (r *Result) notify(n notify.Notification) {
	r.Notifications = append(r.Notifications, n)
}

func (r *Result) fail(err *apperr.Error) {
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}

// HandleEvent applies one watcher event to the schema cache and the index.
// Every path of the event is classified and handled on its own.
func (e *Engine) HandleEvent(ev watcher.Event) Result {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	var res Result
	for i, p := range ev.Paths {
		rel, err := e.rel(p)
		if err != nil {
			e.logger.Debug("engine: event outside root", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		action, rule := Classify(Observe(ev, i, p))
		e.logger.Debug("engine: event",
			slog.String("path", rel),
			slog.String("rule", rule),
			slog.String("action", action.String()))

		switch action {
		case ActionFileAdd:
			e.fileChanged(rel, false, &res)
		case ActionFileUpdate:
			e.fileChanged(rel, true, &res)
		case ActionFileRemove:
			e.fileRemoved(rel, &res)
		case ActionFolderAdd:
			e.folderAdded(rel, &res)
		case ActionFolderRemove:
			e.folderRemoved(rel, &res)
		}
	}
	return res
}

func (e *Engine) fileChanged(rel string, update bool, res *Result) {
	switch {
	case schema.IsSchemaPath(rel):
		e.schemaChanged(rel, res)
	case governed(rel):
		rec, changed, perr, err := e.indexFile(rel)
		res.fail(perr)
		res.fail(err)
		if rec == nil || !changed {
			return
		}
		if update {
			res.notify(notify.FileUpdated(*rec))
		} else {
			res.notify(notify.FileAdded(*rec))
		}
	}
}

func (e *Engine) fileRemoved(rel string, res *Result) {
	switch {
	case schema.IsSchemaPath(rel):
		loc, err := e.schemas.Remove(rel)
		if err != nil {
			res.fail(asAppErr(err, apperr.KindInvariant, "Error removing schema"))
			return
		}
		res.fail(e.reindex(loc.OwnerFolder))
		res.notify(notify.SchemasChanged(e.schemas.List()))
	case governed(rel):
		if err := e.db.RemoveFile(rel); err != nil {
			res.fail(apperr.Wrap(apperr.KindIO, "Error when removing file", err).WithInfo(rel))
			return
		}
		e.digests.Remove(rel)
		res.notify(notify.FileRemoved(rel))
	case path.Ext(rel) != MarkdownExt:
		// A removed directory whose name has a dot looks like a file.
		if has, err := e.db.HasFolder(rel); err == nil && has {
			e.folderRemoved(rel, res)
		}
	}
}

func (e *Engine) folderAdded(rel string, res *Result) {
	if path.Base(rel) == schema.InternalFolder {
		e.schemaChanged(rel, res)
		return
	}
	if hiddenFolder(rel) {
		return
	}
	schemasChanged, err := e.scan(rel)
	res.fail(err)
	schemaPath := ""
	if sr, ok := e.schemas.Resolve(rel); ok {
		schemaPath = sr.Location.SchemaPath
	}
	res.notify(notify.FolderAdded(rel, schemaPath))
	if schemasChanged {
		res.notify(notify.SchemasChanged(e.schemas.List()))
	}
}

func (e *Engine) folderRemoved(rel string, res *Result) {
	if path.Base(rel) == schema.InternalFolder {
		loc, err := e.schemas.Remove(rel)
		if err != nil {
			res.fail(asAppErr(err, apperr.KindInvariant, "Error removing schema"))
			return
		}
		res.fail(e.reindex(loc.OwnerFolder))
		res.notify(notify.SchemasChanged(e.schemas.List()))
		return
	}
	if hiddenFolder(rel) {
		return
	}
	n, err := e.db.RemoveFolderSubtree(rel)
	if err != nil {
		res.fail(apperr.Wrap(apperr.KindIO, "Error when removing folder", err).WithInfo(rel))
	}
	removed := e.schemas.RemoveSubtree(rel)
	e.forgetUnder(rel)
	if n == 0 && len(removed) == 0 {
		return
	}
	res.notify(notify.FolderRemoved(rel))
	if len(removed) > 0 {
		res.notify(notify.SchemasChanged(e.schemas.List()))
	}
}

// schemaChanged reloads the schema at rel. When its content changed, the
// files it governs are re-parsed.
func (e *Engine) schemaChanged(rel string, res *Result) {
	rec, changed, err := e.schemas.Reload(rel)
	if err != nil {
		res.fail(asAppErr(err, apperr.KindIO, "Error loading schema"))
		return
	}
	if rec == nil || !changed {
		return
	}
	res.fail(e.reindex(rec.Location.OwnerFolder))
	res.notify(notify.SchemasChanged(e.schemas.List()))
}

// reindex drops the indexed files under folder and rescans it, so files are
// re-parsed against whatever schema now governs them and files left without
// one fall out of the index.
func (e *Engine) reindex(folder string) *apperr.Error {
	if _, err := e.db.RemoveFilesUnder(folder); err != nil {
		return apperr.Wrap(apperr.KindIO, "Error when removing files", err).WithInfo(folder)
	}
	e.forgetUnder(folder)
	return e.scanTree(folder)
}

// hiddenFolder reports whether rel is or lies in a hidden folder. The root
// itself is never hidden.
func hiddenFolder(rel string) bool {
	return rel != "" && storage.IsHidden(rel)
}
