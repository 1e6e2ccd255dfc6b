package engine

import (
	"errors"
	"io/fs"
	"os"

	"github.com/starford/shelf/internal/storage"
	"github.com/starford/shelf/internal/watcher"
)

// Action is what one path of an event does to the index.
type Action int

const (
	ActionNone Action = iota
	ActionFileAdd
	ActionFileUpdate
	ActionFileRemove
	ActionFolderAdd
	ActionFolderRemove
)

func (a Action) String() string {
	switch a {
	case ActionFileAdd:
		return "file-add"
	case ActionFileUpdate:
		return "file-update"
	case ActionFileRemove:
		return "file-remove"
	case ActionFolderAdd:
		return "folder-add"
	case ActionFolderRemove:
		return "folder-remove"
	default:
		return "none"
	}
}

// Facts is what classification knows about one path of an event. Disk
// state is sampled when the event is handled, not when it happened.
type Facts struct {
	Event watcher.Event
	// Index is the position of the path within Event.Paths.
	Index  int
	HasExt bool
	Exists bool
	// StatFailed means existence could not be determined.
	StatFailed bool
	IsDir      bool
	IsFile     bool
}

// Observe samples the disk for path, the index-th path of ev.
func Observe(ev watcher.Event, index int, path string) Facts {
	f := Facts{Event: ev, Index: index, HasExt: storage.HasExtension(path)}
	info, err := os.Stat(path)
	switch {
	case err == nil:
		f.Exists = true
		f.IsDir = info.IsDir()
		f.IsFile = info.Mode().IsRegular()
	case !errors.Is(err, fs.ErrNotExist):
		f.StatFailed = true
	}
	return f
}

type rule struct {
	name   string
	match  func(f Facts) bool
	action Action
}

func create(entry watcher.EntryKind) func(Facts) bool {
	return func(f Facts) bool { return f.Event.Kind == watcher.KindCreate && f.Event.Entry == entry }
}

func remove(entry watcher.EntryKind) func(Facts) bool {
	return func(f Facts) bool { return f.Event.Kind == watcher.KindRemove && f.Event.Entry == entry }
}

func modify(kind watcher.ModifyKind) func(Facts) bool {
	return func(f Facts) bool { return f.Event.Kind == watcher.KindModify && f.Event.Modify == kind }
}

func rename(mode watcher.RenameMode) func(Facts) bool {
	return func(f Facts) bool { return f.Event.IsRename() && f.Event.Rename == mode }
}

func all(preds ...func(Facts) bool) func(Facts) bool {
	return func(f Facts) bool {
		for _, p := range preds {
			if !p(f) {
				return false
			}
		}
		return true
	}
}

var (
	hasExt  = func(f Facts) bool { return f.HasExt }
	noExt   = func(f Facts) bool { return !f.HasExt }
	isDir   = func(f Facts) bool { return f.IsDir }
	notDir  = func(f Facts) bool { return !f.IsDir }
	isFile  = func(f Facts) bool { return f.IsFile }
	exists  = func(f Facts) bool { return !f.StatFailed && f.Exists }
	missing = func(f Facts) bool { return !f.StatFailed && !f.Exists }
	first   = func(f Facts) bool { return f.Index == 0 }
	second  = func(f Facts) bool { return f.Index == 1 }
)

// rules is evaluated top to bottom; the first match wins.
var rules = []rule{
	{"create file", all(create(watcher.EntryFile), hasExt), ActionFileAdd},
	{"create folder", create(watcher.EntryFolder), ActionFolderAdd},
	{"create any dir", all(create(watcher.EntryAny), isDir), ActionFolderAdd},
	{"create any file", all(create(watcher.EntryAny), hasExt, notDir), ActionFileAdd},

	{"rename from file", all(rename(watcher.RenameFrom), hasExt), ActionFileRemove},
	{"rename from folder", rename(watcher.RenameFrom), ActionFolderRemove},
	{"rename to file", all(rename(watcher.RenameTo), hasExt, isFile), ActionFileAdd},
	{"rename to folder", all(rename(watcher.RenameTo), isDir), ActionFolderAdd},
	{"rename both old file", all(rename(watcher.RenameBoth), first, hasExt), ActionFileRemove},
	{"rename both old folder", all(rename(watcher.RenameBoth), first), ActionFolderRemove},
	{"rename both new file", all(rename(watcher.RenameBoth), second, hasExt, isFile), ActionFileAdd},
	{"rename both new folder", all(rename(watcher.RenameBoth), second, isDir), ActionFolderAdd},
	{"rename gone folder", all(modify(watcher.ModifyName), missing, noExt), ActionFolderRemove},
	{"rename gone file", all(modify(watcher.ModifyName), missing, hasExt), ActionFileRemove},
	{"rename present folder", all(modify(watcher.ModifyName), exists, noExt, isDir), ActionFolderAdd},
	{"rename present file", all(modify(watcher.ModifyName), exists, hasExt, isFile), ActionFileAdd},

	{"modify data", all(modify(watcher.ModifyData), hasExt, exists), ActionFileUpdate},
	{"modify any file", all(modify(watcher.ModifyAny), hasExt, isFile), ActionFileUpdate},

	{"remove file", all(remove(watcher.EntryFile), hasExt), ActionFileRemove},
	{"remove folder", remove(watcher.EntryFolder), ActionFolderRemove},
	{"remove any file", all(remove(watcher.EntryAny), hasExt), ActionFileRemove},
	{"remove any folder", all(remove(watcher.EntryAny), noExt), ActionFolderRemove},
}

// Classify maps facts to an action and names the rule that decided it.
func Classify(f Facts) (Action, string) {
	for _, r := range rules {
		if r.match(f) {
			return r.action, r.name
		}
	}
	return ActionNone, ""
}
