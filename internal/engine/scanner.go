package engine

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/checksum"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/parser"
)

// ScanTree walks the folder rel depth-first and indexes everything in it:
// each folder's schema is loaded before the folder and its files are
// recorded. Per-entry problems are collected into the returned error; the
// walk never stops early.
func (e *Engine) ScanTree(rel string) *apperr.Error {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.scanTree(rel)
}

func (e *Engine) scanTree(rel string) *apperr.Error {
	_, err := e.scan(rel)
	return err
}

// scan is scanTree that also reports whether any schema under rel was newly
// loaded or changed content.
func (e *Engine) scan(rel string) (schemasChanged bool, _ *apperr.Error) {
	root := e.Root()
	if root == "" {
		return false, noRoot()
	}
	agg := apperr.New(apperr.KindIO, "Error indexing folder").WithInfo(rel)
	start := e.abs(rel)
	files, folders := 0, 0

	_ = filepath.WalkDir(start, func(p string, d fs.DirEntry, walkErr error) error {
		r, err := e.rel(p)
		if err != nil {
			agg.Sub(apperr.Wrap(apperr.KindInvariant, "Path outside root", err))
			return nil
		}
		if walkErr != nil {
			agg.Sub(apperr.Wrap(apperr.KindIO, "Error reading directory", walkErr).WithInfo(r))
			return nil
		}
		if d.IsDir() {
			if p != start && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			_, changed, err := e.schemas.Reload(r)
			if err != nil {
				agg.Sub(asAppErr(err, apperr.KindIO, "Error loading schema").WithInfo(r))
			}
			schemasChanged = schemasChanged || changed
			name := d.Name()
			if r == "" {
				name = filepath.Base(root)
			}
			if err := e.db.UpsertFolder(models.Folder{Path: r, Name: name}); err != nil {
				agg.Sub(apperr.Wrap(apperr.KindIO, "Error when inserting folder", err).WithInfo(r))
			}
			folders++
			return nil
		}
		if !governed(r) {
			return nil
		}
		rec, _, perr, ierr := e.indexFile(r)
		agg.Sub(perr)
		agg.Sub(ierr)
		if rec != nil {
			files++
		}
		return nil
	})

	e.logger.Debug("scan: done",
		slog.String("folder", rel),
		slog.Int("folders", folders),
		slog.Int("files", files),
		slog.Int("errors", len(agg.Subs)))
	return schemasChanged, apperr.Collect(agg)
}

// indexFile reads, parses and upserts rel when a schema governs it. It
// returns nil without error for ungoverned files. changed reports whether
// the content differs from what was last indexed for rel.
func (e *Engine) indexFile(rel string) (rec *models.Record, changed bool, parseErr, err *apperr.Error) {
	sr, ok := e.schemas.Resolve(rel)
	if !ok {
		return nil, false, nil, nil
	}
	files := e.Files()
	content, rerr := files.Read(rel)
	if rerr != nil {
		return nil, false, nil, apperr.Wrap(apperr.KindIO, "Error reading file", rerr).
			WithInfo(rel).
			WithAction(apperr.ActionFileReadRetry, "Retry")
	}
	attrs, perr := parser.ParseAttributes(content.FrontMatter, sr.Schema)
	if perr != nil {
		perr.WithInfo(rel + ": " + perr.Info)
	}
	r := models.Record{Path: rel, Modified: content.Modified, Attrs: attrs}
	if uerr := e.db.UpsertFile(r); uerr != nil {
		return nil, false, perr, apperr.Wrap(apperr.KindIO, "Error when inserting file", uerr).WithInfo(rel)
	}
	changed = e.remember(rel, checksum.Parts(content.FrontMatter, content.Body))
	return &r, changed, perr, nil
}
