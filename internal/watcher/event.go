package watcher

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

// Kind is the coarse class of a file-system event.
type Kind int

const (
	KindAny Kind = iota
	KindCreate
	KindModify
	KindRemove
	KindOther
)

// EntryKind says what a create or remove event refers to, when known.
type EntryKind int

const (
	EntryAny EntryKind = iota
	EntryFile
	EntryFolder
)

// ModifyKind refines KindModify.
type ModifyKind int

const (
	ModifyAny ModifyKind = iota
	ModifyData
	ModifyName
	ModifyMetadata
)

// RenameMode refines ModifyName. From and To are the two halves of a move
// reported separately; Both carries [from, to] in one event.
type RenameMode int

const (
	RenameAny RenameMode = iota
	RenameFrom
	RenameTo
	RenameBoth
)

// Event is a normalized file-system notification. Paths are absolute.
type Event struct {
	Kind   Kind
	Entry  EntryKind
	Modify ModifyKind
	Rename RenameMode
	Paths  []string
	Time   time.Time
}

// IsRename reports whether e is a rename of any mode.
func (e Event) IsRename() bool {
	return e.Kind == KindModify && e.Modify == ModifyName
}

// normalize maps one fsnotify event onto Events. fsnotify never pairs the two
// halves of a rename: the old path arrives as Rename and the new one as
// Create, so a rename becomes From followed by a Create.
func normalize(ev fsnotify.Event, now time.Time) []Event {
	var out []Event
	paths := []string{ev.Name}
	if ev.Has(fsnotify.Create) {
		out = append(out, Event{Kind: KindCreate, Entry: EntryAny, Paths: paths, Time: now})
	}
	if ev.Has(fsnotify.Write) {
		out = append(out, Event{Kind: KindModify, Modify: ModifyData, Paths: paths, Time: now})
	}
	if ev.Has(fsnotify.Rename) {
		out = append(out, Event{Kind: KindModify, Modify: ModifyName, Rename: RenameFrom, Paths: paths, Time: now})
	}
	if ev.Has(fsnotify.Remove) {
		out = append(out, Event{Kind: KindRemove, Entry: EntryAny, Paths: paths, Time: now})
	}
	if ev.Has(fsnotify.Chmod) && len(out) == 0 {
		out = append(out, Event{Kind: KindModify, Modify: ModifyMetadata, Paths: paths, Time: now})
	}
	return out
}
