package watcher

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newWatcher(t *testing.T, cfg Config) *Watcher {
	t.Helper()
	w, err := New(cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

// collect drains sub in the background and reports whether an event matching
// fn has been seen.
func collect(sub *Subscription) func(fn func(Event) bool) bool {
	seen := make(chan Event, 1024)
	go func() {
		for ev := range sub.Events() {
			seen <- ev
		}
	}()
	var got []Event
	return func(fn func(Event) bool) bool {
		for {
			select {
			case ev := <-seen:
				got = append(got, ev)
				continue
			default:
			}
			break
		}
		for _, ev := range got {
			if fn(ev) {
				return true
			}
		}
		return false
	}
}

func TestNormalize(t *testing.T) {
	now := time.Now()
	cases := []struct {
		op   fsnotify.Op
		want Event
	}{
		{fsnotify.Create, Event{Kind: KindCreate, Entry: EntryAny}},
		{fsnotify.Write, Event{Kind: KindModify, Modify: ModifyData}},
		{fsnotify.Rename, Event{Kind: KindModify, Modify: ModifyName, Rename: RenameFrom}},
		{fsnotify.Remove, Event{Kind: KindRemove, Entry: EntryAny}},
		{fsnotify.Chmod, Event{Kind: KindModify, Modify: ModifyMetadata}},
	}
	for _, tc := range cases {
		got := normalize(fsnotify.Event{Name: "/r/a.md", Op: tc.op}, now)
		require.Len(t, got, 1, tc.op.String())
		tc.want.Paths = []string{"/r/a.md"}
		tc.want.Time = now
		assert.Equal(t, tc.want, got[0], tc.op.String())
	}

	both := normalize(fsnotify.Event{Name: "/r/a.md", Op: fsnotify.Write | fsnotify.Chmod}, now)
	require.Len(t, both, 1)
	assert.Equal(t, ModifyData, both[0].Modify)
}

func TestBroadcastDropsOldest(t *testing.T) {
	w := newWatcher(t, Config{BufferSize: 2})
	sub := w.Subscribe()

	for i := range 5 {
		w.Inject(Event{Kind: KindCreate, Paths: []string{string(rune('a' + i))}})
	}
	assert.EqualValues(t, 3, w.Dropped())

	first := <-sub.Events()
	second := <-sub.Events()
	assert.Equal(t, []string{"d"}, first.Paths)
	assert.Equal(t, []string{"e"}, second.Paths)
}

func TestBroadcastReachesEverySubscriber(t *testing.T) {
	w := newWatcher(t, Config{BufferSize: 4})
	a, b := w.Subscribe(), w.Subscribe()
	w.Inject(Event{Kind: KindRemove, Paths: []string{"x"}})

	assert.Equal(t, KindRemove, (<-a.Events()).Kind)
	assert.Equal(t, KindRemove, (<-b.Events()).Kind)

	b.Close()
	b.Close()
	w.Inject(Event{Kind: KindCreate})
	assert.Equal(t, KindCreate, (<-a.Events()).Kind)
	_, open := <-b.Events()
	assert.False(t, open)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	w, err := New(Config{}, quietLogger())
	require.NoError(t, err)
	sub := w.Subscribe()
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, open := <-sub.Events()
	assert.False(t, open)
	_, open = <-w.Subscribe().Events()
	assert.False(t, open)
	assert.ErrorIs(t, w.SetWatchPath(t.TempDir()), ErrClosed)
}

func TestIgnorePatterns(t *testing.T) {
	w := newWatcher(t, Config{Ignore: []string{".git", "*.swp", ".shelf-tmp-*"}})
	root := filepath.FromSlash("/data/root")
	assert.True(t, w.ignored(root, filepath.Join(root, ".git", "objects", "ab")))
	assert.True(t, w.ignored(root, filepath.Join(root, "books", "a.md.swp")))
	assert.True(t, w.ignored(root, filepath.Join(root, ".shelf", ".shelf-tmp-123")))
	assert.False(t, w.ignored(root, filepath.Join(root, "books", ".shelf", "schema.yaml")))
	assert.False(t, w.ignored(root, root))

	_, err := New(Config{Ignore: []string{"[unclosed"}}, quietLogger())
	assert.Error(t, err)
}

func TestWatchesNewFilesAndDirs(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, Config{})
	require.NoError(t, w.SetWatchPath(root))
	seen := collect(w.Subscribe())

	file := filepath.Join(root, "new.md")
	require.NoError(t, os.WriteFile(file, []byte("# New"), 0o644))
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return seen(func(ev Event) bool { return ev.Kind == KindCreate && ev.Paths[0] == file })
	}, "create event for new.md not seen")

	sub := filepath.Join(root, "subdir")
	require.NoError(t, os.Mkdir(sub, 0o755))
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return seen(func(ev Event) bool { return ev.Kind == KindCreate && ev.Paths[0] == sub })
	}, "create event for subdir not seen")

	deep := filepath.Join(sub, "deep.md")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		// Rewrite until the new directory's watch is live.
		_ = os.WriteFile(deep, []byte("# Deep"), 0o644)
		return seen(func(ev Event) bool { return ev.Paths[0] == deep })
	}, "event inside new subdir not seen")
}

func TestSetWatchPathSwitchesRoot(t *testing.T) {
	oldRoot, newRoot := t.TempDir(), t.TempDir()
	w := newWatcher(t, Config{})
	require.NoError(t, w.SetWatchPath(oldRoot))
	require.NoError(t, w.SetWatchPath(newRoot))
	assert.Equal(t, newRoot, w.WatchPath())
	seen := collect(w.Subscribe())

	require.NoError(t, os.WriteFile(filepath.Join(oldRoot, "old.md"), []byte("x"), 0o644))
	marker := filepath.Join(newRoot, "new.md")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return seen(func(ev Event) bool { return ev.Paths[0] == marker })
	}, "event in new root not seen")
	assert.False(t, seen(func(ev Event) bool { return filepath.Dir(ev.Paths[0]) == oldRoot }))

	assert.Error(t, w.SetWatchPath(filepath.Join(newRoot, "missing")))
	assert.Equal(t, "", w.WatchPath())
}
