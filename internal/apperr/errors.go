// Package apperr defines the structured, user-facing error used across the
// indexing engine, plus a few sentinel errors for callers that only need
// errors.Is.
package apperr

import (
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
)

// Kind classifies an Error.
type Kind int

const (
	KindIO Kind = iota
	KindNotFound
	KindMalformed
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindMalformed:
		return "malformed"
	case KindInvariant:
		return "invariant"
	default:
		return "io"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "not_found":
		*k = KindNotFound
	case "malformed":
		*k = KindMalformed
	case "invariant":
		*k = KindInvariant
	default:
		*k = KindIO
	}
	return nil
}

// Action is a follow-up the user can trigger from an error notification.
type Action string

const (
	ActionFileSaveRetry       Action = "FileSaveRetry"
	ActionFileSaveRetryForced Action = "FileSaveRetryForced"
	ActionFileReadRetry       Action = "FileReadRetry"
	ActionPrepareCacheRetry   Action = "PrepareCacheRetry"
	ActionWatchPathRetry      Action = "WatchPathRetry"
	ActionNoRootPath          Action = "NoRootPath"
)

// Error is a displayable failure. Subs holds errors aggregated under it, for
// example every per-file problem of one directory scan.
type Error struct {
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	Info        string   `json:"info,omitempty"`
	Raw         string   `json:"rawError,omitempty"`
	Subs        []*Error `json:"subErrors,omitempty"`
	Action      Action   `json:"actionCode,omitempty"`
	ActionLabel string   `json:"actionLabel,omitempty"`

	cause error
}

// New creates an Error of kind with a short title.
func New(kind Kind, title string) *Error {
	return &Error{Kind: kind, Title: title}
}

// Wrap creates an Error of kind whose raw text and cause come from err.
func Wrap(kind Kind, title string, err error) *Error {
	return New(kind, title).WithRaw(err)
}

func (e *Error) WithInfo(info string) *Error {
	e.Info = info
	return e
}

func (e *Error) WithRaw(err error) *Error {
	if err != nil {
		e.Raw = err.Error()
		e.cause = err
	}
	return e
}

func (e *Error) WithAction(action Action, label string) *Error {
	e.Action = action
	e.ActionLabel = label
	return e
}

// Sub appends child to e. A nil child is ignored.
func (e *Error) Sub(child *Error) *Error {
	if child != nil {
		e.Subs = append(e.Subs, child)
	}
	return e
}

func (e *Error) HasSubs() bool { return len(e.Subs) > 0 }

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Title)
	if e.Info != "" {
		b.WriteString(": ")
		b.WriteString(e.Info)
	}
	if e.Raw != "" {
		b.WriteString(": ")
		b.WriteString(e.Raw)
	}
	for _, s := range e.Subs {
		b.WriteString("; ")
		b.WriteString(s.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, len(e.Subs)+1)
	if e.cause != nil {
		out = append(out, e.cause)
	}
	for _, s := range e.Subs {
		out = append(out, s)
	}
	return out
}

// Is lets errors.Is match the package sentinels by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Action == ActionFileSaveRetryForced
	}
	return false
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Collect returns nil when agg carries no sub-errors, otherwise agg.
// It keeps "no problems" as a nil *Error rather than an empty aggregate.
func Collect(agg *Error) *Error {
	if agg == nil || !agg.HasSubs() {
		return nil
	}
	return agg
}
