// Package engine keeps the index and the schema cache consistent with the
// files under one root. It interprets watcher events, rescans subtrees and
// serves record reads and writes.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/index"
	"github.com/starford/shelf/internal/notify"
	"github.com/starford/shelf/internal/schema"
	"github.com/starford/shelf/internal/storage"
)

// MarkdownExt is the extension of indexed files.
const MarkdownExt = ".md"

// DefaultDigestCacheSize bounds how many file digests are remembered for
// suppressing duplicate change notifications.
const DefaultDigestCacheSize = 4096

// PathWatcher re-points a file watcher at a new root.
type PathWatcher interface {
	SetWatchPath(root string) error
}

// Emitter publishes notifications that do not originate from an event,
// such as a schema saved through the API.
type Emitter interface {
	Emit(n notify.Notification) bool
}

// Engine is the indexing context: the current root and every collaborator
// that depends on it.
type Engine struct {
	db      index.FileIndex
	schemas *schema.Cache
	logger  *slog.Logger
	emitter Emitter
	open    func(root string) (storage.Provider, error)
	digests *lru.Cache[string, string]

	// opMu serializes mutations so multi-step cascades are not interleaved.
	opMu sync.Mutex

	mu    sync.RWMutex
	root  string
	files storage.Provider
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithEmitter(em Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithFileOpener replaces how a storage.Provider is built for a new root.
func WithFileOpener(open func(root string) (storage.Provider, error)) Option {
	return func(e *Engine) { e.open = open }
}

func New(db index.FileIndex, schemas *schema.Cache, opts ...Option) (*Engine, error) {
	e := &Engine{
		db:      db,
		schemas: schemas,
		logger:  slog.Default(),
		open: func(root string) (storage.Provider, error) {
			return storage.NewFS(root)
		},
	}
	for _, o := range opts {
		o(e)
	}
	digests, err := lru.New[string, string](DefaultDigestCacheSize)
	if err != nil {
		return nil, fmt.Errorf("engine: digest cache: %w", err)
	}
	e.digests = digests
	return e, nil
}

// Root returns the current absolute root, or "" before SetRoot.
func (e *Engine) Root() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.root
}

func (e *Engine) Files() storage.Provider {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.files
}

func (e *Engine) Schemas() *schema.Cache { return e.schemas }

// SetRoot re-anchors the engine on root: the index and the schema cache are
// cleared, the tree is rescanned and w, if given, is pointed at it. Setting
// the current root again does nothing and reports false.
func (e *Engine) SetRoot(root string, w PathWatcher) (bool, *apperr.Error) {
	abs, err := filepath.Abs(root)
	if err == nil {
		var info os.FileInfo
		if info, err = os.Stat(abs); err == nil && !info.IsDir() {
			err = fmt.Errorf("%s is not a directory", abs)
		}
	}
	if err != nil {
		return false, apperr.Wrap(apperr.KindNotFound, "Root folder not available", err).
			WithInfo(root).
			WithAction(apperr.ActionNoRootPath, "Choose folder")
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()
	if abs == e.Root() {
		return false, nil
	}

	files, err := e.open(abs)
	if err != nil {
		return false, apperr.Wrap(apperr.KindIO, "Root folder not available", err).
			WithInfo(abs).
			WithAction(apperr.ActionNoRootPath, "Choose folder")
	}
	if err := e.db.Reset(); err != nil {
		return false, apperr.Wrap(apperr.KindIO, "Error clearing index", err).
			WithAction(apperr.ActionPrepareCacheRetry, "Retry")
	}
	e.schemas.SetRoot(abs)
	e.digests.Purge()
	e.mu.Lock()
	e.root, e.files = abs, files
	e.mu.Unlock()
	e.logger.Info("engine: root set", slog.String("root", abs))

	var out *apperr.Error
	if scanErr := e.scanTree(""); scanErr != nil {
		out = scanErr.WithAction(apperr.ActionPrepareCacheRetry, "Retry")
	}
	if w != nil {
		if err := w.SetWatchPath(abs); err != nil {
			watchErr := apperr.Wrap(apperr.KindIO, "Error watching folder", err).
				WithInfo(abs).
				WithAction(apperr.ActionWatchPathRetry, "Retry")
			out = watchErr.Sub(out)
		}
	}
	return true, out
}

// rel converts an absolute path under the root to the relative slash form
// used by the index.
func (e *Engine) rel(abs string) (string, error) {
	root := e.Root()
	if root == "" {
		return "", fmt.Errorf("engine: no root set")
	}
	r, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("engine: %s: %w", abs, err)
	}
	if r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("engine: %s is outside root %s", abs, root)
	}
	if r == "." {
		return "", nil
	}
	return filepath.ToSlash(r), nil
}

func (e *Engine) abs(rel string) string {
	return filepath.Join(e.Root(), filepath.FromSlash(rel))
}

// governed reports whether rel is a markdown file the index may hold.
func governed(rel string) bool {
	return filepath.Ext(rel) == MarkdownExt && !storage.IsHidden(rel)
}

// remember records digest for path and reports whether it differs from the
// previous one.
func (e *Engine) remember(path, digest string) bool {
	prev, ok := e.digests.Get(path)
	e.digests.Add(path, digest)
	return !ok || prev != digest
}

func (e *Engine) forgetUnder(folder string) {
	for _, k := range e.digests.Keys() {
		if schema.Within(k, folder) {
			e.digests.Remove(k)
		}
	}
}

func (e *Engine) emit(n notify.Notification) {
	if e.emitter != nil {
		e.emitter.Emit(n)
	}
}

// asAppErr keeps structured errors as they are and wraps anything else.
func asAppErr(err error, kind apperr.Kind, title string) *apperr.Error {
	if err == nil {
		return nil
	}
	if ae, ok := apperr.As(err); ok {
		return ae
	}
	return apperr.Wrap(kind, title, err)
}
