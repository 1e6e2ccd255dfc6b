// Package notify delivers index change notifications to a sink, rate limited.
package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
)

// Kind names a notification.
type Kind string

const (
	FileAdd           Kind = "FileAdd"
	FileUpdate        Kind = "FileUpdate"
	FileRemove        Kind = "FileRemove"
	FolderAdd         Kind = "FolderAdd"
	FolderRemove      Kind = "FolderRemove"
	SchemasUpdated    Kind = "SchemasUpdated"
	RateLimitOverflow Kind = "RateLimitOverflow"
	ErrorHappened     Kind = "ErrorHappened"
)

// FolderEvent describes an added or removed folder. SchemaPath is the schema
// governing an added folder, if any.
type FolderEvent struct {
	Path       string `json:"path"`
	SchemaPath string `json:"schemaPath,omitempty"`
}

// Notification is one outbound message. Which payload field is set depends
// on Kind.
type Notification struct {
	ID      string                             `json:"id"`
	Kind    Kind                               `json:"kind"`
	Time    time.Time                          `json:"time"`
	Path    string                             `json:"path,omitempty"`
	Record  *models.Record                     `json:"record,omitempty"`
	Folder  *FolderEvent                       `json:"folder,omitempty"`
	Schemas map[string]models.SchemaDefinition `json:"schemas,omitempty"`
	Error   *apperr.Error                      `json:"error,omitempty"`
}

func newNotification(kind Kind) Notification {
	return Notification{ID: uuid.NewString(), Kind: kind, Time: time.Now().UTC()}
}

func FileAdded(r models.Record) Notification {
	n := newNotification(FileAdd)
	n.Path, n.Record = r.Path, &r
	return n
}

func FileUpdated(r models.Record) Notification {
	n := newNotification(FileUpdate)
	n.Path, n.Record = r.Path, &r
	return n
}

func FileRemoved(path string) Notification {
	n := newNotification(FileRemove)
	n.Path = path
	return n
}

func FolderAdded(path, schemaPath string) Notification {
	n := newNotification(FolderAdd)
	n.Path = path
	n.Folder = &FolderEvent{Path: path, SchemaPath: schemaPath}
	return n
}

func FolderRemoved(path string) Notification {
	n := newNotification(FolderRemove)
	n.Path = path
	n.Folder = &FolderEvent{Path: path}
	return n
}

// SchemasChanged carries the full current schema list.
func SchemasChanged(list map[string]models.SchemaDefinition) Notification {
	n := newNotification(SchemasUpdated)
	n.Schemas = list
	return n
}

func Overflow() Notification { return newNotification(RateLimitOverflow) }

func Failure(err *apperr.Error) Notification {
	n := newNotification(ErrorHappened)
	n.Error = err
	return n
}
