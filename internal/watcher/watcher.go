// Package watcher turns fsnotify notifications for one directory tree into
// normalized events broadcast to any number of subscribers.
package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// DefaultBufferSize is the per-subscriber event buffer.
const DefaultBufferSize = 10000

// ErrClosed is returned by operations on a closed Watcher.
var ErrClosed = errors.New("watcher: closed")

// Config configures a Watcher.
type Config struct {
	// BufferSize bounds each subscriber's queue. When it is full the oldest
	// event is dropped.
	BufferSize int
	// Ignore holds glob patterns matched against every path component
	// below the watched root.
	Ignore []string
}

// Watcher recursively watches a single root at a time.
type Watcher struct {
	fs      *fsnotify.Watcher
	logger  *slog.Logger
	ignore  []glob.Glob
	bufSize int

	pathMu  sync.Mutex
	current string

	subMu sync.Mutex
	subs  map[*Subscription]struct{}

	dropped atomic.Uint64
	done    chan struct{}
	closed  sync.Once
}

// New creates a Watcher and starts its reader goroutine. It watches nothing
// until SetWatchPath is called.
func New(cfg Config, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ignore := make([]glob.Glob, 0, len(cfg.Ignore))
	for _, p := range cfg.Ignore {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("watcher: invalid ignore pattern %q: %w", p, err)
		}
		ignore = append(ignore, g)
	}
	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: create: %w", err)
	}
	w := &Watcher{
		fs:      fw,
		logger:  logger,
		ignore:  ignore,
		bufSize: bufSize,
		subs:    make(map[*Subscription]struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// SetWatchPath stops watching the previous root, if any, and starts watching
// root and every directory below it.
func (w *Watcher) SetWatchPath(root string) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("watcher: resolve %s: %w", root, err)
	}

	w.pathMu.Lock()
	defer w.pathMu.Unlock()
	if w.current != "" {
		w.unwatchUnder(w.current)
		w.logger.Info("watcher: unwatched", slog.String("root", w.current))
		w.current = ""
	}
	if err := w.addDirsRecursive(abs, abs); err != nil {
		w.unwatchUnder(abs)
		return fmt.Errorf("watcher: watch %s: %w", abs, err)
	}
	w.current = abs
	w.logger.Info("watcher: started", slog.String("root", abs))
	return nil
}

// WatchPath returns the currently watched root, or "".
func (w *Watcher) WatchPath() string {
	w.pathMu.Lock()
	defer w.pathMu.Unlock()
	return w.current
}

// Dropped returns how many events were discarded because a subscriber's
// buffer was full.
func (w *Watcher) Dropped() uint64 { return w.dropped.Load() }

// Close stops the watcher and closes every subscription.
func (w *Watcher) Close() error {
	var err error
	w.closed.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.subMu.Lock()
		for s := range w.subs {
			delete(w.subs, s)
			close(s.ch)
		}
		w.subMu.Unlock()
	})
	return err
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	w.pathMu.Lock()
	root := w.current
	if root == "" || w.ignored(root, ev.Name) {
		w.pathMu.Unlock()
		return
	}
	// New directories must be added by hand; fsnotify is not recursive.
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addDirsRecursive(root, ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
			}
		}
	}
	if ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
		w.unwatchUnder(ev.Name)
	}
	w.pathMu.Unlock()

	for _, n := range normalize(ev, time.Now()) {
		w.broadcast(n)
	}
}

// addDirsRecursive adds dir and all its subdirectories to the watcher,
// skipping ignored ones.
func (w *Watcher) addDirsRecursive(root, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(root, path) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *Watcher) unwatchUnder(dir string) {
	prefix := dir + string(filepath.Separator)
	for _, p := range w.fs.WatchList() {
		if p == dir || strings.HasPrefix(p, prefix) {
			_ = w.fs.Remove(p)
		}
	}
}

func (w *Watcher) ignored(root, path string) bool {
	if len(w.ignore) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, g := range w.ignore {
			if g.Match(part) {
				return true
			}
		}
	}
	return false
}
